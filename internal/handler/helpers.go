package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/middleware"
	"github.com/noah-isme/acadex-api/internal/service"
	"github.com/noah-isme/acadex-api/internal/utils"
)

const (
	errorValidation = "validation_error"
	errorPermission = "permission_denied"
	errorNotFound   = "not_found"
	errorConflict   = "conflict"
	errorBackend    = "backend_unavailable"
)

// actorFromRequest resolves the caller. Verified token claims win over the
// identity supplied in the body or query string.
func actorFromRequest(c *fiber.Ctx, suppliedID, suppliedRole string) service.Actor {
	actor := service.Actor{
		ID:   strings.TrimSpace(suppliedID),
		Role: strings.ToLower(strings.TrimSpace(suppliedRole)),
	}

	if id := middleware.UserID(c); id != "" {
		actor.ID = id
		actor.Role = middleware.UserRole(c)
	}

	return actor
}

// queryActor resolves the caller for read endpoints.
func queryActor(c *fiber.Ctx) service.Actor {
	return actorFromRequest(c, c.Query("userId"), c.Query("userRole"))
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// writeServiceError maps service failures onto HTTP responses. Backend
// failures are logged and answered with a generic "failed to <action>".
func writeServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrValidation), isValidationError(err):
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, err.Error(), errorValidation)
	case errors.Is(err, service.ErrPermissionDenied):
		return utils.SendErrorWithDetail(c, fiber.StatusForbidden, err.Error(), errorPermission)
	case errors.Is(err, service.ErrAssignmentNotFound), errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendErrorWithDetail(c, fiber.StatusNotFound, err.Error(), errorNotFound)
	case errors.Is(err, service.ErrSubmissionAlreadyGraded):
		return utils.SendErrorWithDetail(c, fiber.StatusConflict, err.Error(), errorConflict)
	default:
		requestLogger(logger, c).Error().Err(err).Str("action", action).Msg("request failed")
		return utils.SendErrorWithDetail(c, fiber.StatusInternalServerError, "failed to "+action, errorBackend)
	}
}

func missingIdentity(c *fiber.Ctx) error {
	return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "user id required", errorValidation)
}
