package utils

import (
	"time"

	"simulador/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// TokenClaims is what this service reads out of a bearer token.
type TokenClaims struct {
	UserID uint
	Role   string
}

// GenerateJWTToken mints an HS256 token carrying the user's id and
// role. Token issuance has no HTTP endpoint here; the helper exists for
// tests and external tooling that provisions tokens.
func GenerateJWTToken(userID uint, role string, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ExtractTokenClaims validates the Authorization header and returns the
// authenticated user's claims. A token without a role claim yields an
// empty Role, which no role gate accepts.
func ExtractTokenClaims(c *fiber.Ctx, cfg *config.Config) (*TokenClaims, error) {
	tokenString := c.Get("Authorization")
	if tokenString == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Missing authorization token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	role, _ := claims["role"].(string)
	return &TokenClaims{UserID: uint(userIDFloat), Role: role}, nil
}

// ExtractUserIDFromToken is the common case: handlers that only need to
// know who is calling.
func ExtractUserIDFromToken(c *fiber.Ctx, cfg *config.Config) (uint, error) {
	claims, err := ExtractTokenClaims(c, cfg)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
