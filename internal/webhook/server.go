// Package webhook exposes the HTTP surface: provider webhooks that enqueue
// jobs, the operator API, and health endpoints.
package webhook

import (
	stderrors "errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/github"
	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/jira"
	"github.com/globalcomix/claude-agent/internal/queue"
	"github.com/globalcomix/claude-agent/internal/sentry"
	"github.com/globalcomix/claude-agent/internal/signature"
)

// Server wires webhook handlers to the queue and upstream clients
type Server struct {
	cfg    *config.Config
	queue  *queue.Queue
	gitlab *gitlab.Client
	github *github.Client
	sentry *sentry.Client
	tokens *jira.TokenManager
}

// New creates a webhook server with clients built from the configuration.
// tokens may be nil when the Jira OAuth client is not configured.
func New(cfg *config.Config, q *queue.Queue, tokens *jira.TokenManager) *Server {
	return &Server{
		cfg:    cfg,
		queue:  q,
		gitlab: gitlab.NewClient(cfg.GitLab),
		github: github.NewClient(cfg.GitHub.Token),
		sentry: sentry.NewClient(cfg.Sentry.AuthToken),
		tokens: tokens,
	}
}

// App builds the Fiber application with all routes registered
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "claude-agent",
		ErrorHandler: renderError,
	})

	app.Use(logger.New())

	app.Get("/health", s.HandleHealth)
	app.Get("/queue/stats", s.HandleStats)

	app.Post("/webhook", s.HandleGitLab)
	app.Post("/webhook/gitlab", s.HandleGitLab)
	app.Post("/webhook/github", s.HandleGitHub)
	app.Post("/webhook/sentry", s.HandleSentry)
	app.Post("/webhook/jira", s.HandleJira)

	api := app.Group("/api", s.requireAPIAuth)
	api.Get("/stats", s.HandleStats)
	api.Get("/failed", s.HandleFailed)
	api.Post("/retry/:id", s.HandleRetry)
	api.Post("/review", s.HandleManualReview)
	api.Post("/review/github", s.HandleManualGitHubReview)
	api.Post("/sentry-fix", s.HandleManualSentryFix)
	api.Post("/jira-fix", s.HandleManualJiraFix)
	api.Get("/check-tokens", s.HandleCheckTokens)

	return app
}

// renderError maps application errors onto JSON error responses
func renderError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}
	return c.Status(errors.StatusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

// requireAPIAuth guards the operator API with a bearer token
func (s *Server) requireAPIAuth(c *fiber.Ctx) error {
	provided := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !signature.VerifyToken(s.cfg.APIAuthToken(), provided) {
		return errors.Unauthorized("invalid API token")
	}
	return c.Next()
}
