package utils

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggerConfig tweaks InitLogger output.
type LoggerConfig struct {
	Output       *os.File
	EnableColors bool
}

// InitLogger builds the process-wide logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Simulador] "
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
}

// LoggingMiddleware logs every request with its status, latency and
// client address.
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Printf("%s %s%s %s%d%s %s %s",
			c.IP(),
			methodColor(c.Method()), c.Method(),
			statusColor(c.Response().StatusCode()), c.Response().StatusCode(), "\033[0m",
			c.Path(),
			time.Since(start),
		)
		return err
	}
}

func statusColor(status int) string {
	switch {
	case status >= 500:
		return "\033[31m"
	case status >= 400:
		return "\033[33m"
	case status >= 300:
		return "\033[36m"
	default:
		return "\033[32m"
	}
}

func methodColor(method string) string {
	switch method {
	case "GET":
		return "\033[34m"
	case "POST":
		return "\033[33m"
	case "PUT", "PATCH":
		return "\033[36m"
	case "DELETE":
		return "\033[31m"
	default:
		return "\033[37m"
	}
}
