package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evidapi/internal/auth"
	"evidapi/internal/config"
	"evidapi/internal/http/middleware"
	"evidapi/internal/service"
)

// HealthCheck reports readiness: it checks database connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay free of business logic: they translate between HTTP and the
// service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, dir *auth.Directory, authCfg config.AuthConfig, svc service.EvidenceService) {
	// Serve the OpenAPI spec and a CDN-backed Swagger UI page.
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Post("/auth/login", Login(dir, authCfg))

	// Everything under /evidence requires a bearer token.
	evidence := app.Group("/evidence", middleware.Auth([]byte(authCfg.JWTSecret)))
	evidence.Post("/upload", UploadEvidence(svc))
	evidence.Get("/", ListEvidence(svc))
	evidence.Get("/:id", GetEvidence(svc))
	evidence.Get("/:id/download", DownloadEvidence(svc))
	evidence.Get("/:id/history", EvidenceHistory(svc))
	evidence.Post("/:id/transfer", TransferCustody(svc))
	evidence.Post("/:id/verify", VerifyEvidence(svc))
	evidence.Post("/:id/analysis", BeginAnalysis(svc))
	evidence.Post("/:id/archive", ArchiveEvidence(svc))
}
