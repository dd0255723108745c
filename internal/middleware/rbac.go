package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/acadex-api/internal/utils"
)

// RequireRole lets a request through only when the verified token role is one
// of roles. Rejections use the same 403 body as service permission errors.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[UserRole(c)]; !ok {
			return utils.SendErrorWithDetail(c, fiber.StatusForbidden, "insufficient permissions", "permission_denied")
		}
		return c.Next()
	}
}
