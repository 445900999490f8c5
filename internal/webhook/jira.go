package webhook

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/jira"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/signature"
)

// HandleJira handles Jira comment webhooks
func (s *Server) HandleJira(c *fiber.Ctx) error {
	body := c.Body()
	if s.cfg.Jira.WebhookSecret != "" {
		provided := c.Get("X-Hub-Signature")
		if provided == "" {
			provided = c.Get("X-Atlassian-Webhook-Signature")
		}
		if !signature.VerifyHMAC(s.cfg.Jira.WebhookSecret, body, provided) {
			return errors.Unauthorized("invalid webhook signature")
		}
	}

	var event jira.CommentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid Jira event", err)
	}

	if !event.ShouldTrigger(s.cfg.Jira.BotAccountID) {
		return ignored(c, "comment does not summon the agent")
	}

	issue := event.Issue
	mapping := s.cfg.MappingForJiraIssue(issue.Key)
	if mapping == nil {
		return ignored(c, "no repository mapping for Jira issue "+issue.Key)
	}

	branch := issue.FixBranch()
	if s.fixBranchExists(mapping.VCSPlatform, mapping.VCSProject, branch) {
		return skipped(c, "fix branch "+branch+" already exists")
	}

	logging.Info("Jira trigger on %s by %s", issue.Key, event.Comment.Author.DisplayName)

	id, err := s.queue.Push(c.Context(), payload.NewJiraTicket(payload.JiraTicketPayload{
		IssueKey:       issue.Key,
		IssueID:        issue.ID,
		Summary:        issue.Fields.Summary,
		Description:    issue.Fields.DescriptionText(),
		IssueType:      issue.Fields.IssueTypeName(),
		Priority:       issue.Fields.PriorityName(),
		Status:         issue.Fields.StatusName(),
		Labels:         issue.Fields.Labels,
		JiraURL:        issue.WebURL(),
		TriggerComment: event.Comment.BodyText(),
		TriggerAuthor:  event.Comment.Author.DisplayName,
		CloneURL:       mapping.CloneURL,
		VCSPlatform:    mapping.VCSPlatform,
		VCSProject:     mapping.VCSProject,
		TargetBranch:   mapping.TargetBranch,
		FixBranch:      branch,
	}))
	if err != nil {
		return errors.Store("enqueueing jira ticket", err)
	}
	return queued(c, id)
}
