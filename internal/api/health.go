package api

import (
	"context"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/services/database"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports liveness of the service and its backing stores.
// Customer databases are never part of the health check.
type HealthHandler struct {
	db          *database.DB
	redisClient *redis.Client
}

func NewHealthHandler(db *database.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
	}
}

// HealthCheck runs the dependency checks concurrently and returns 503
// when any of them fails.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	storeStatus := "healthy"
	redisStatus := "healthy"

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.checkStore(ctx); err != nil {
			storeStatus = "unhealthy"
		}
		return nil
	})
	g.Go(func() error {
		if h.redisClient == nil {
			redisStatus = "disabled"
			return nil
		}
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
		return nil
	})
	_ = g.Wait()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
	})
}

func (h *HealthHandler) checkStore(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
