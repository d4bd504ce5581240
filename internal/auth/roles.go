package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sync/internal/domain"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// RequireUser ensures a portal end-user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser {
			return apperrors.NewPermissionError("end-user required", nil)
		}
		return c.Next()
	}
}

// RequireAdmin ensures an admin principal.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAdmin {
			return apperrors.NewPermissionError("admin required", nil)
		}
		return c.Next()
	}
}
