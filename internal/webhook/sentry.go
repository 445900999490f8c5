package webhook

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/sentry"
	"github.com/globalcomix/claude-agent/internal/signature"
)

// HandleSentry handles Sentry issue alert webhooks
func (s *Server) HandleSentry(c *fiber.Ctx) error {
	body := c.Body()
	if s.cfg.Sentry.WebhookSecret != "" {
		if !signature.VerifyHMAC(s.cfg.Sentry.WebhookSecret, body, c.Get("Sentry-Hook-Signature")) {
			return errors.Unauthorized("invalid webhook signature")
		}
	}

	var event sentry.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid Sentry event", err)
	}

	if !event.ShouldTrigger() {
		return ignored(c, "alert does not trigger a fix")
	}

	issue := event.Data.Issue
	mapping := s.cfg.MappingForSentryProject(issue.Project.Slug)
	if mapping == nil {
		return ignored(c, "no repository mapping for Sentry project "+issue.Project.Slug)
	}

	branch := issue.FixBranch()
	if s.fixBranchExists(mapping.VCSPlatform, mapping.VCSProject, branch) {
		return skipped(c, "fix branch "+branch+" already exists")
	}

	id, err := s.queue.Push(c.Context(), payload.NewSentryFix(payload.SentryFixPayload{
		ShortID:       issue.ShortID,
		Title:         issue.Title,
		Culprit:       issue.Culprit,
		Platform:      issue.Platform,
		IssueType:     issue.TypeOrDefault(),
		IssueCategory: issue.CategoryOrDefault(),
		URL:           issue.Permalink,
		IssueID:       issue.ID,
		Organization:  s.cfg.Sentry.Organization,
		Project:       issue.Project.Slug,
		CloneURL:      mapping.CloneURL,
		VCSPlatform:   mapping.VCSPlatform,
		VCSProject:    mapping.VCSProject,
		TargetBranch:  mapping.TargetBranch,
		FixBranch:     branch,
	}))
	if err != nil {
		return errors.Store("enqueueing sentry fix", err)
	}
	return queued(c, id)
}

// fixBranchExists checks idempotency branches on the mapped VCS platform.
// Lookup failures allow the job through; the worker handles duplicates.
func (s *Server) fixBranchExists(platform, project, branch string) bool {
	var exists bool
	var err error
	switch platform {
	case payload.PlatformGitHub:
		exists, err = s.github.BranchExists(project, branch)
	default:
		exists, err = s.gitlab.BranchExists(project, branch)
	}
	if err != nil {
		logging.Warn("Branch check failed for %s on %s: %v", branch, project, err)
		return false
	}
	return exists
}
