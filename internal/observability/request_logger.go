package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestIDKey is the locals key holding the request id.
const RequestIDKey = "request_id"

// UnmatchedRoute is the counter bucket for requests no handler route
// claimed, such as ones the authentication gate rejected.
const UnmatchedRoute = "unmatched"

// RouteOf returns the pattern of the route that handled c, or
// UnmatchedRoute when only middleware ran. Counters are keyed by it so
// request paths cannot grow the key space.
func RouteOf(c *fiber.Ctx) string {
	route := c.Route()
	if route == nil || route.Path == "" || route.Path == "/" {
		return UnmatchedRoute
	}
	return route.Path
}

// RequestLogger logs one line per request and feeds the counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		metrics.RecordRequest(RouteOf(c), c.Method(), status, duration)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if id, ok := c.Locals(RequestIDKey).(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}
