package api

import (
	"errors"
	"strconv"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/datasources"
	"github.com/datadeck-io/datadeck-api/internal/services/dbchat"
	"github.com/datadeck-io/datadeck-api/internal/services/request"

	"github.com/gofiber/fiber/v2"
)

// DBChatHandler answers natural-language questions about a project's
// saved data sources.
type DBChatHandler struct {
	chatService *dbchat.Service
}

func NewDBChatHandler(chatService *dbchat.Service) *DBChatHandler {
	return &DBChatHandler{chatService: chatService}
}

func (h *DBChatHandler) Ask(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	if !h.chatService.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Database chat is not configured",
		})
	}

	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid project_id",
		})
	}

	var req models.DBChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.DataSourceID == 0 || req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "data_source_id and question are required",
		})
	}

	requestID := request.ID(c)

	if req.Stream {
		if err := h.chatService.AskStream(c, userID, uint(projectID), &req, requestID); err != nil {
			return h.handleChatError(c, err)
		}
		return nil
	}

	resp, err := h.chatService.Ask(c.Context(), userID, uint(projectID), &req, requestID)
	if err != nil {
		return h.handleChatError(c, err)
	}

	return c.JSON(resp)
}

func (h *DBChatHandler) handleChatError(c *fiber.Ctx, err error) error {
	if errors.Is(err, datasources.ErrUnauthorized) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You don't have access to this project",
		})
	}
	if errors.Is(err, datasources.ErrDataSourceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Data source not found",
		})
	}
	if errors.Is(err, dbchat.ErrChatNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Database chat is not configured",
		})
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
			"error": appErr.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Chat request failed",
	})
}
