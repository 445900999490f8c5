package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/signature"
)

// defaultInstruction is used when a bot mention carries no text after it
const defaultInstruction = "review this"

// HandleGitLab dispatches a GitLab webhook by object_kind
func (s *Server) HandleGitLab(c *fiber.Ctx) error {
	if !signature.VerifyToken(s.cfg.Webhook.Secret, c.Get("X-Gitlab-Token")) {
		return errors.Unauthorized("invalid webhook token")
	}

	body := c.Body()
	var kind struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(body, &kind); err != nil {
		return errors.BadRequest("invalid JSON payload", err)
	}

	switch kind.ObjectKind {
	case "merge_request":
		return s.handleGitLabMR(c, body)
	case "pipeline":
		return s.handleGitLabPipeline(c, body)
	case "note":
		return s.handleGitLabNote(c, body)
	default:
		return ignored(c, "unhandled event kind: "+kind.ObjectKind)
	}
}

func (s *Server) handleGitLabMR(c *fiber.Ctx, body []byte) error {
	var event gitlab.MergeRequestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid merge request event", err)
	}

	action, ok := event.ReviewAction()
	if !ok {
		return ignored(c, "merge request state does not trigger a review")
	}
	if event.HasLabel(gitlab.SkipLabel) {
		return skipped(c, "merge request labeled "+gitlab.SkipLabel)
	}

	attrs := event.ObjectAttributes
	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:    s.cfg.GitLab.BaseURL,
		Project:      event.Project.PathWithNamespace,
		MRIID:        strconv.Itoa(attrs.IID),
		CloneURL:     event.Project.GitHTTPURL,
		SourceBranch: attrs.SourceBranch,
		TargetBranch: attrs.TargetBranch,
		Title:        attrs.Title,
		Description:  attrs.Description,
		Author:       event.User.Username,
		Action:       action,
	}))
	if err != nil {
		return errors.Store("enqueueing review", err)
	}
	return queued(c, id)
}

func (s *Server) handleGitLabPipeline(c *fiber.Ctx, body []byte) error {
	var event gitlab.PipelineEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid pipeline event", err)
	}

	if !event.Failed() {
		return ignored(c, "pipeline did not fail")
	}
	if !s.cfg.IsAuthorAllowed(event.User.Username) {
		return ignored(c, "author not in allowlist")
	}

	project := event.Project.PathWithNamespace
	mr := event.MergeRequest
	if mr == nil {
		// Pipeline events for detached MR pipelines omit the MR block
		fetched, err := s.gitlab.FetchMRByBranch(project, event.ObjectAttributes.Ref)
		if err != nil {
			return errors.Upstream("looking up merge request for branch", err)
		}
		if fetched == nil {
			return ignored(c, "no open merge request for branch "+event.ObjectAttributes.Ref)
		}
		mr = &gitlab.EventMergeRequest{
			IID:          fetched.IID,
			Title:        fetched.Title,
			Description:  fetched.Description,
			State:        fetched.State,
			SourceBranch: fetched.SourceBranch,
			TargetBranch: fetched.TargetBranch,
			URL:          fetched.WebURL,
		}
	}

	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:    s.cfg.GitLab.BaseURL,
		Project:      project,
		MRIID:        strconv.Itoa(mr.IID),
		CloneURL:     event.Project.GitHTTPURL,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Title:        mr.Title,
		Description:  mr.Description,
		Author:       event.User.Username,
		Action:       payload.ActionLintFix,
	}))
	if err != nil {
		return errors.Store("enqueueing lint fix", err)
	}
	return queued(c, id)
}

func (s *Server) handleGitLabNote(c *fiber.Ctx, body []byte) error {
	var event gitlab.NoteEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.BadRequest("invalid note event", err)
	}

	if !event.ShouldTrigger() {
		return ignored(c, "note does not summon the agent")
	}

	instruction := event.Instruction()
	if instruction == "" {
		instruction = defaultInstruction
	}
	logging.Info("Comment trigger on %s!%d by %s",
		event.Project.PathWithNamespace, event.MergeRequest.IID, event.User.Username)

	mr := event.MergeRequest
	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:      s.cfg.GitLab.BaseURL,
		Project:        event.Project.PathWithNamespace,
		MRIID:          strconv.Itoa(mr.IID),
		CloneURL:       event.Project.GitHTTPURL,
		SourceBranch:   mr.SourceBranch,
		TargetBranch:   mr.TargetBranch,
		Title:          mr.Title,
		Description:    mr.Description,
		Author:         event.User.Username,
		Action:         payload.ActionComment,
		TriggerComment: instruction,
	}))
	if err != nil {
		return errors.Store("enqueueing comment job", err)
	}
	return queued(c, id)
}
