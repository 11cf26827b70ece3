package middleware

import (
	"github.com/gofiber/fiber/v2"

	"trivial-go/internal/config"
	"trivial-go/pkg/token"
)

// UseToken membaca session JWT dari cookie "jwt" dan menyimpan
// identitas user di locals. Tanpa cookie yang valid, request ditolak 401.
func UseToken(c *fiber.Ctx) error {
	cookie := c.Cookies("jwt")
	if cookie == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthenticated",
			"success": false,
			"status":  401,
		})
	}
	session, err := token.Parse(cookie, config.SecretKey)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid token",
			"success": false,
			"status":  401,
		})
	}
	c.Locals("userID", session.UserID)
	c.Locals("email", session.Email)
	return c.Next()
}
