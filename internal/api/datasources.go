package api

import (
	"errors"
	"strconv"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/datasources"
	"github.com/gofiber/fiber/v2"
)

// DataSourcesHandler exposes project-scoped saved connection targets.
// Responses never include the stored password.
type DataSourcesHandler struct {
	dataSourcesService *datasources.Service
}

func NewDataSourcesHandler(dataSourcesService *datasources.Service) *DataSourcesHandler {
	return &DataSourcesHandler{
		dataSourcesService: dataSourcesService,
	}
}

func dataSourceParams(c *fiber.Ctx) (uint, uint, error) {
	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, 0, errors.New("invalid project_id")
	}
	dataSourceID, err := strconv.ParseUint(c.Params("datasource_id"), 10, 32)
	if err != nil {
		return 0, 0, errors.New("invalid datasource_id")
	}
	return uint(projectID), uint(dataSourceID), nil
}

func (h *DataSourcesHandler) handleServiceError(c *fiber.Ctx, err error) error {
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
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Data source operation failed",
	})
}

func (h *DataSourcesHandler) Create(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid project_id",
		})
	}

	var req models.DataSourceCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ds, err := h.dataSourcesService.Create(c.Context(), userID, uint(projectID), &req)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ds.ToResponse())
}

func (h *DataSourcesHandler) List(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid project_id",
		})
	}

	list, err := h.dataSourcesService.List(c.Context(), userID, uint(projectID))
	if err != nil {
		return h.handleServiceError(c, err)
	}

	responses := make([]*models.DataSourceResponse, len(list))
	for i := range list {
		responses[i] = list[i].ToResponse()
	}

	return c.JSON(fiber.Map{
		"data_sources": responses,
		"total":        len(responses),
	})
}

func (h *DataSourcesHandler) Get(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, dataSourceID, err := dataSourceParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ds, err := h.dataSourcesService.Get(c.Context(), userID, projectID, dataSourceID)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(ds.ToResponse())
}

func (h *DataSourcesHandler) Update(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, dataSourceID, err := dataSourceParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var req models.DataSourceUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ds, err := h.dataSourcesService.Update(c.Context(), userID, projectID, dataSourceID, &req)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(ds.ToResponse())
}

func (h *DataSourcesHandler) Delete(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, dataSourceID, err := dataSourceParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.dataSourcesService.Delete(c.Context(), userID, projectID, dataSourceID); err != nil {
		return h.handleServiceError(c, err)
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// Test probes a saved target and returns the outcome. Probe failures are
// part of the 200 response body, not HTTP errors.
func (h *DataSourcesHandler) Test(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	projectID, dataSourceID, err := dataSourceParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := h.dataSourcesService.Test(c.Context(), userID, projectID, dataSourceID)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(result.ToResponse())
}
