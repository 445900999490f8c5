package webhook

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/globalcomix/claude-agent/internal/errors"
	"github.com/globalcomix/claude-agent/internal/payload"
)

// failedListLimit caps how many failed items the API returns
const failedListLimit = 100

// HandleStats returns queue depth counters
func (s *Server) HandleStats(c *fiber.Ctx) error {
	stats, err := s.queue.Stats(c.Context())
	if err != nil {
		return errors.Store("reading queue stats", err)
	}
	return c.JSON(stats)
}

// HandleFailed lists recently failed jobs
func (s *Server) HandleFailed(c *fiber.Ctx) error {
	items, err := s.queue.ListFailed(c.Context(), failedListLimit)
	if err != nil {
		return errors.Store("listing failed jobs", err)
	}
	return c.JSON(fiber.Map{
		"failed": items,
		"count":  len(items),
	})
}

// HandleRetry requeues a failed job by ID
func (s *Server) HandleRetry(c *fiber.Ctx) error {
	id := c.Params("id")
	retried, err := s.queue.RetryFailed(c.Context(), id)
	if err != nil {
		return errors.Store("retrying job", err)
	}
	if !retried {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status": "not_found",
			"id":     id,
		})
	}
	return c.JSON(fiber.Map{
		"status": "retried",
		"id":     id,
	})
}

// manualReviewRequest queues a GitLab review without a webhook
type manualReviewRequest struct {
	Project   string `json:"project"`
	MRIID     int    `json:"mr_iid"`
	GitLabURL string `json:"gitlab_url"`
	Action    string `json:"action"`
}

// HandleManualReview enqueues a review for an existing GitLab MR
func (s *Server) HandleManualReview(c *fiber.Ctx) error {
	var req manualReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	if req.Project == "" || req.MRIID == 0 {
		return errors.BadRequest("project and mr_iid are required", nil)
	}
	if req.GitLabURL == "" {
		req.GitLabURL = s.cfg.GitLab.BaseURL
	}

	mr, err := s.gitlab.FetchMR(req.Project, req.MRIID)
	if err != nil {
		return errors.Upstream("fetching merge request", err)
	}
	project, err := s.gitlab.FetchProject(req.Project)
	if err != nil {
		return errors.Upstream("fetching project", err)
	}

	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:    req.GitLabURL,
		Project:      req.Project,
		MRIID:        strconv.Itoa(mr.IID),
		CloneURL:     project.HTTPURLToRepo,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Title:        mr.Title,
		Description:  mr.Description,
		Author:       mr.Author.Username,
		Action:       req.Action,
	}))
	if err != nil {
		return errors.Store("enqueueing review", err)
	}
	return queued(c, id)
}

// manualGitHubReviewRequest queues a GitHub review without a webhook
type manualGitHubReviewRequest struct {
	Repo   string `json:"repo"`
	PR     int    `json:"pr"`
	Action string `json:"action"`
}

// HandleManualGitHubReview enqueues a review for an existing GitHub PR
func (s *Server) HandleManualGitHubReview(c *fiber.Ctx) error {
	var req manualGitHubReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	if req.Repo == "" || req.PR == 0 {
		return errors.BadRequest("repo and pr are required", nil)
	}

	pr, err := s.github.FetchPR(req.Repo, req.PR)
	if err != nil {
		return errors.Upstream("fetching pull request", err)
	}

	id, err := s.queue.Push(c.Context(), payload.NewReview(payload.ReviewPayload{
		GitLabURL:    pr.HTMLURL,
		Project:      req.Repo,
		MRIID:        strconv.Itoa(pr.Number),
		CloneURL:     "https://github.com/" + req.Repo + ".git",
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		Title:        pr.Title,
		Description:  pr.Body,
		Author:       pr.User.Login,
		Action:       req.Action,
		Platform:     payload.PlatformGitHub,
	}))
	if err != nil {
		return errors.Store("enqueueing review", err)
	}
	return queued(c, id)
}

// manualSentryFixRequest queues a Sentry fix without a webhook
type manualSentryFixRequest struct {
	Organization string `json:"organization"`
	Project      string `json:"project"`
	IssueID      string `json:"issue_id"`
}

// HandleManualSentryFix enqueues a fix for an existing Sentry issue
func (s *Server) HandleManualSentryFix(c *fiber.Ctx) error {
	var req manualSentryFixRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	if req.Project == "" || req.IssueID == "" {
		return errors.BadRequest("project and issue_id are required", nil)
	}
	org := req.Organization
	if org == "" {
		org = s.cfg.Sentry.Organization
	}

	mapping := s.cfg.MappingForSentryProject(req.Project)
	if mapping == nil {
		return errors.BadRequest("no repository mapping for Sentry project "+req.Project, nil)
	}

	issue, err := s.sentry.GetIssue(c.Context(), org, req.IssueID)
	if err != nil {
		return errors.Upstream("fetching Sentry issue", err)
	}

	id, err := s.queue.Push(c.Context(), payload.NewSentryFix(payload.SentryFixPayload{
		ShortID:       issue.ShortID,
		Title:         issue.Title,
		Culprit:       issue.Culprit,
		Platform:      issue.Platform,
		IssueType:     issue.TypeOrDefault(),
		IssueCategory: issue.CategoryOrDefault(),
		URL:           issue.Permalink,
		IssueID:       req.IssueID,
		Organization:  org,
		Project:       req.Project,
		CloneURL:      mapping.CloneURL,
		VCSPlatform:   mapping.VCSPlatform,
		VCSProject:    mapping.VCSProject,
		TargetBranch:  mapping.TargetBranch,
		FixBranch:     issue.FixBranch(),
	}))
	if err != nil {
		return errors.Store("enqueueing sentry fix", err)
	}
	return queued(c, id)
}

// manualJiraFixRequest queues a Jira ticket job without a webhook
type manualJiraFixRequest struct {
	IssueKey string `json:"issue_key"`
	JiraURL  string `json:"jira_url"`
}

// HandleManualJiraFix enqueues a fix for an existing Jira ticket.
// Ticket details are not fetched; the prompt carries the key and URL and
// the agent reads the rest from the repository context.
func (s *Server) HandleManualJiraFix(c *fiber.Ctx) error {
	var req manualJiraFixRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	if req.IssueKey == "" || req.JiraURL == "" {
		return errors.BadRequest("issue_key and jira_url are required", nil)
	}

	mapping := s.cfg.MappingForJiraIssue(req.IssueKey)
	if mapping == nil {
		return errors.BadRequest("no repository mapping for Jira issue "+req.IssueKey, nil)
	}

	id, err := s.queue.Push(c.Context(), payload.NewJiraTicket(payload.JiraTicketPayload{
		IssueKey:       req.IssueKey,
		Summary:        req.IssueKey,
		IssueType:      "Unknown",
		Status:         "Unknown",
		JiraURL:        req.JiraURL,
		TriggerComment: "Triggered via API",
		CloneURL:       mapping.CloneURL,
		VCSPlatform:    mapping.VCSPlatform,
		VCSProject:     mapping.VCSProject,
		TargetBranch:   mapping.TargetBranch,
		FixBranch:      "jira-fix/" + strings.ToLower(req.IssueKey),
	}))
	if err != nil {
		return errors.Store("enqueueing jira ticket", err)
	}
	return queued(c, id)
}
