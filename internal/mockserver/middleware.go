package mockserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/token"
)

const claimsKey = "auth_claims"

// authMiddleware validates bearer tokens the way the real backend does.
func authMiddleware(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(http.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// claimsFromContext retrieves the authenticated claims.
func claimsFromContext(c *fiber.Ctx) (*token.Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*token.Claims)
	return claims, ok
}

// errorHandlingMiddleware converts errors and panics to JSON responses.
func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = fiber.NewError(http.StatusInternalServerError, "internal server error")
			}
			if err != nil {
				status := http.StatusInternalServerError
				message := "internal server error"
				if fiberErr, ok := err.(*fiber.Error); ok {
					status = fiberErr.Code
					message = fiberErr.Message
				}
				if status >= http.StatusInternalServerError {
					logger.Error("request failed", zap.Error(err))
				}
				c.Status(status)
				_ = c.JSON(fiber.Map{"error": fiber.Map{"message": message}})
				err = nil
			}
		}()
		return c.Next()
	}
}

// requestLogger logs each request with latency.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
