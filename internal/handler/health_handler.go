package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/acadex-api/internal/config"
	"github.com/noah-isme/acadex-api/internal/utils"
)

// HealthCheck returns a handler that reports application health information.
// nodeID identifies this instance on the change feed.
func HealthCheck(cfg config.Config, nodeID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields := fiber.Map{
			"status":      "ok",
			"timestamp":   time.Now().UTC(),
			"service":     cfg.AppName,
			"environment": cfg.AppEnv,
			"authEnabled": cfg.AuthEnabled,
		}
		if nodeID != "" {
			fields["nodeId"] = nodeID
		}

		return utils.SendSuccess(c, "service healthy", fields)
	}
}
