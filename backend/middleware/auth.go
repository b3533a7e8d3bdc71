package middleware

import (
	"simulador/backend/config"
	"simulador/backend/models"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := utils.ExtractTokenClaims(c, cfg); err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// TeacherMiddleware additionally requires the teacher or admin role.
// The role rides in the token claims, so no user lookup per request.
func TeacherMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractTokenClaims(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		if claims.Role != models.RoleTeacher && claims.Role != models.RoleAdmin {
			return utils.Forbidden(c, "Teacher access required")
		}
		return c.Next()
	}
}
