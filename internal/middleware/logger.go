package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"trivial-go/pkg/logger"
)

// ErrorHandler me-recover panic dari handler di bawahnya dan mencatat
// setiap request selesai beserta status dan latensinya.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				errMsg := fmt.Sprintf("Recovered from panic: %v", r)
				stack := string(debug.Stack())
				logger.ErrorLogger.Error(errMsg, zap.String("stack", stack))
				c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": errMsg,
				})
			}
		}()

		err := c.Next()

		logger.RequestLogger.Info("Request handled",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}
