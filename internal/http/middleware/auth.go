package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"evidapi/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// ActorLocalKey is the key under which the authenticated actor is
	// stored in Fiber's context locals.
	ActorLocalKey = "actor"
)

// Auth returns a middleware that requires a valid bearer token and stores
// the resolved actor in context locals. Missing, malformed and expired
// tokens all produce the same 401 envelope so the response does not leak
// which check failed; the client is expected to discard its session.
func Auth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractBearerToken(c.Get(authHeader))
		if err != nil {
			return unauthorized(c)
		}

		actor, err := auth.ParseToken(token, secret)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by Auth, or nil when the request
// was not authenticated.
func ActorFromCtx(c *fiber.Ctx) *auth.Actor {
	if v := c.Locals(ActorLocalKey); v != nil {
		if actor, ok := v.(*auth.Actor); ok {
			return actor
		}
	}
	return nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fiber.ErrUnauthorized
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", fiber.ErrUnauthorized
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", fiber.ErrUnauthorized
	}
	return token, nil
}

func unauthorized(c *fiber.Ctx) error {
	rid, _ := c.Locals(RequestIDLocalKey).(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": rid,
		"error": fiber.Map{
			"code":    "UNAUTHORIZED",
			"message": "missing or invalid credentials",
		},
	})
}
