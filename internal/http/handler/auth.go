package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"evidapi/internal/auth"
	"evidapi/internal/config"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *auth.Actor `json:"user"`
}

// Login authenticates credentials against the actor directory and issues
// a bearer token carrying the actor's identity and role.
func Login(dir *auth.Directory, cfg config.AuthConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
		}
		if req.Username == "" || req.Password == "" || req.Role == "" {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "username, password and role are required")
		}

		actor, err := dir.Authenticate(req.Username, req.Password, req.Role)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		token, expiresAt, err := auth.GenerateToken(actor, secret, cfg.TokenTTL)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(loginResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresAt:   expiresAt,
			User:        actor,
		})
	}
}
