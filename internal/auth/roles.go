package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/company-directory/pkg/util"
)

// RequireScope ensures the authenticated principal holds scope.
func RequireScope(scope Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Claims.HasScope(scope) {
			return apperrors.NewForbidden("missing scope " + string(scope))
		}
		return c.Next()
	}
}
