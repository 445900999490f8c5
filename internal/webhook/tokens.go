package webhook

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// tokenStatus reports one credential's health in the check-tokens response
type tokenStatus struct {
	Configured bool   `json:"configured"`
	Valid      bool   `json:"valid"`
	Info       string `json:"info,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HandleCheckTokens validates each configured credential against its
// upstream API and reports the results
func (s *Server) HandleCheckTokens(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"gitlab": s.checkGitLabToken(),
		"github": s.checkGitHubToken(),
		"sentry": s.checkSentryToken(c),
		"claude": s.checkClaudeKey(),
		"jira":   s.checkJiraToken(c),
	})
}

func (s *Server) checkGitLabToken() tokenStatus {
	if !s.cfg.HasGitLabToken() {
		return tokenStatus{}
	}
	user, err := s.gitlab.CurrentUser()
	if err != nil {
		return tokenStatus{Configured: true, Error: err.Error()}
	}
	return tokenStatus{Configured: true, Valid: true, Info: "@" + user.Username}
}

func (s *Server) checkGitHubToken() tokenStatus {
	if !s.cfg.HasGitHubToken() {
		return tokenStatus{}
	}
	user, err := s.github.CurrentUser()
	if err != nil {
		return tokenStatus{Configured: true, Error: err.Error()}
	}
	return tokenStatus{Configured: true, Valid: true, Info: "@" + user.Login}
}

func (s *Server) checkSentryToken(c *fiber.Ctx) tokenStatus {
	if s.cfg.Sentry.AuthToken == "" {
		return tokenStatus{}
	}
	orgs, err := s.sentry.ListOrganizations(c.Context())
	if err != nil {
		return tokenStatus{Configured: true, Error: err.Error()}
	}
	return tokenStatus{
		Configured: true,
		Valid:      true,
		Info:       fmt.Sprintf("%d organizations", len(orgs)),
	}
}

// checkClaudeKey validates the key format without an API call;
// the key is only ever handed to worker pods
func (s *Server) checkClaudeKey() tokenStatus {
	key := s.cfg.Anthropic.APIKey
	if key == "" {
		return tokenStatus{}
	}
	switch {
	case strings.HasPrefix(key, "sk-ant-oat01-"):
		return tokenStatus{Configured: true, Valid: true, Info: "OAuth token"}
	case strings.HasPrefix(key, "sk-ant-api"):
		return tokenStatus{Configured: true, Valid: true, Info: "API key"}
	default:
		return tokenStatus{Configured: true, Error: "unrecognized key format"}
	}
}

func (s *Server) checkJiraToken(c *fiber.Ctx) tokenStatus {
	if !s.cfg.HasJiraOAuth() || s.tokens == nil {
		return tokenStatus{}
	}
	_, remaining, err := s.tokens.AccessTokenWithExpiry(c.Context())
	if err != nil {
		return tokenStatus{Configured: true, Error: err.Error()}
	}
	return tokenStatus{
		Configured: true,
		Valid:      true,
		Info:       fmt.Sprintf("expires in %dm", int(remaining.Minutes())),
	}
}
