package mockserver

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/config"
)

// New builds the development stub of the backend API: the three auth
// endpoints the session core depends on, with seeded per-role accounts.
func New(cfg config.MockServerConfig, logger *zap.Logger) (*fiber.App, error) {
	accounts, err := SeedAccounts(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	repo := NewMemoryAccountRepository(accounts)
	tokens := NewTokenManager(cfg.JWTSecret, cfg.TokenTTLMinutes)
	handlers := NewHandlers(repo, tokens, cfg.BcryptCost)

	app := fiber.New()
	app.Use(errorHandlingMiddleware(logger))
	app.Use(requestLogger(logger))

	app.Post("/api/login", handlers.Login)
	app.Get("/api/refresh", authMiddleware(tokens), handlers.Refresh)
	app.Post("/api/password-change", authMiddleware(tokens), handlers.ChangePassword)

	return app, nil
}
