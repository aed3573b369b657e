package api

import (
	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/connections"

	"github.com/gofiber/fiber/v2"
)

type ConnectionsHandler struct {
	connectionsService *connections.Service
}

func NewConnectionsHandler(connectionsService *connections.Service) *ConnectionsHandler {
	return &ConnectionsHandler{
		connectionsService: connectionsService,
	}
}

// TestConnection probes a database target supplied either as a raw
// connection string or as discrete form fields. Probe outcomes - success
// or failure - are always 200 with a structured body; non-200 statuses
// are reserved for request-shape problems that occur before the prober
// runs.
func (h *ConnectionsHandler) TestConnection(c *fiber.Ctx) error {
	_, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var req models.ConnectionTestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ConnectionString == "" && req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "connection_string or type is required",
		})
	}

	result := h.connectionsService.TestConnection(c.Context(), &req)

	return c.JSON(result.ToResponse())
}

// DetectType classifies a connection string without opening any network
// connection, for client-side form pre-filling.
func (h *ConnectionsHandler) DetectType(c *fiber.Ctx) error {
	_, ok := auth.GetUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var req models.DetectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ConnectionString == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "connection_string is required",
		})
	}

	return c.JSON(models.DetectResponse{
		Type: h.connectionsService.DetectType(req.ConnectionString),
	})
}
