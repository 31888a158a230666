package mockserver

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/medika-client/internal/api"
)

// Handlers exposes the three auth endpoints the client core consumes.
type Handlers struct {
	accounts   AccountRepository
	tokens     *TokenManager
	bcryptCost int
}

// NewHandlers constructs the handler set.
func NewHandlers(accounts AccountRepository, tokens *TokenManager, bcryptCost int) *Handlers {
	return &Handlers{accounts: accounts, tokens: tokens, bcryptCost: bcryptCost}
}

// Login handles POST /api/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req api.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	acct, ok := h.accounts.GetByUsername(req.Username)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	signed, err := h.tokens.Generate(acct)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(api.TokenResponse{Token: signed})
}

// Refresh handles GET /api/refresh: the presented token must still be valid
// (auth middleware), and a fresh one is issued.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	acct, ok := h.accounts.GetByID(claims.UserID)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unknown user")
	}

	signed, err := h.tokens.Generate(acct)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(api.TokenResponse{Token: signed})
}

// ChangePassword handles POST /api/password-change: verifies the old
// password, stores the new hash and issues a fresh token.
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	claims, ok := claimsFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	var req api.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "old and new password required")
	}

	acct, ok := h.accounts.GetByID(claims.UserID)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unknown user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.OldPassword)); err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.bcryptCost)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "password hashing failed")
	}
	h.accounts.UpdatePassword(acct.ID, string(hash))

	signed, err := h.tokens.Generate(acct)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(api.TokenResponse{Token: signed})
}
