package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/github"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/signature"
)

// HandleGitHub handles GitHub pull_request webhooks
func (s *Server) HandleGitHub(c *fiber.Ctx) error {
	body := c.Body()
	if !signature.VerifyHMAC(s.cfg.Webhook.Secret, body, c.Get("X-Hub-Signature-256")) {
		return errors.Unauthorized("invalid webhook signature")
	}

	if event := c.Get("X-GitHub-Event"); event != "pull_request" {
		return ignored(c, "unhandled event kind: "+event)
	}

	var event github.PullRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid pull request event", err)
	}

	action, ok := event.ReviewAction()
	if !ok {
		return ignored(c, "pull request action does not trigger a review")
	}

	pr := event.PullRequest
	number := pr.Number
	if number == 0 {
		number = event.Number
	}

	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:    event.Repository.HTMLURL,
		Project:      event.Repository.FullName,
		MRIID:        strconv.Itoa(number),
		CloneURL:     event.Repository.CloneURL,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		Title:        pr.Title,
		Description:  pr.Body,
		Author:       pr.User.Login,
		Action:       action,
		Platform:     payload.PlatformGitHub,
	}))
	if err != nil {
		return errors.Store("enqueueing review", err)
	}
	return queued(c, id)
}
