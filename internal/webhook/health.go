package webhook

import (
	"github.com/gofiber/fiber/v2"
)

// HandleHealth returns health status
func (s *Server) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"service":        "claude-agent",
		"gitlab_token":   s.cfg.HasGitLabToken(),
		"github_token":   s.cfg.HasGitHubToken(),
		"webhook_secret": s.cfg.HasWebhookSecret(),
	})
}
