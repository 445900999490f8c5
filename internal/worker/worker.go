// Package worker executes a single queued job inside an ephemeral pod:
// clone, gather context, build the prompt and hand it to the agent.
package worker

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/globalcomix/claude-agent/internal/agent"
	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/github"
	"github.com/globalcomix/claude-agent/internal/gitlab"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/sentry"
)

// envelopeEnv carries the base64 queue item into the pod
const envelopeEnv = "REVIEW_PAYLOAD"

// Worker runs one job to completion
type Worker struct {
	cfg     *config.Config
	workDir string
	gitlab  *gitlab.Client
	github  *github.Client
	sentry  *sentry.Client
}

// New creates a worker rooted at workDir
func New(cfg *config.Config, workDir string) *Worker {
	return &Worker{
		cfg:     cfg,
		workDir: workDir,
		gitlab:  gitlab.NewClient(cfg.GitLab),
		github:  github.NewClient(cfg.GitHub.Token),
		sentry:  sentry.NewClient(cfg.Sentry.AuthToken),
	}
}

// Run decodes the job envelope from the environment and executes it.
// Returns the exit code the pod should finish with.
func (w *Worker) Run(ctx context.Context) (int, error) {
	encoded := os.Getenv(envelopeEnv)
	if encoded == "" {
		return 1, fmt.Errorf("%s not set", envelopeEnv)
	}
	item, err := payload.DecodeEnvelope(encoded)
	if err != nil {
		return 1, err
	}
	logging.JobInfo(item.ID, "Starting "+item.Payload.Describe())

	switch {
	case item.Payload.SentryFix != nil:
		return w.runSentryFix(ctx, item.Payload.SentryFix)
	case item.Payload.JiraTicket != nil:
		return w.runJiraTicket(ctx, item.Payload.JiraTicket)
	case item.Payload.Review != nil:
		return w.runReview(ctx, item.Payload.Review)
	default:
		return 1, fmt.Errorf("queue item %s carries no payload", item.ID)
	}
}

// platformToken returns the VCS token for a platform
func (w *Worker) platformToken(platform string) string {
	if platform == payload.PlatformGitHub {
		return w.cfg.GitHub.Token
	}
	return w.cfg.GitLab.Token
}

func (w *Worker) runReview(ctx context.Context, rp *payload.ReviewPayload) (int, error) {
	cloneURL := InjectCredentials(rp.CloneURL, rp.Platform, w.platformToken(rp.Platform))
	repo, err := cloneRepo(ctx, w.workDir, cloneURL, rp.SourceBranch)
	if err != nil {
		return 1, err
	}
	if err := repo.fetchTarget(ctx, rp.TargetBranch); err != nil {
		return 1, err
	}

	diff, err := repo.diff(ctx, rp.TargetBranch)
	if err != nil {
		return 1, err
	}
	files, err := repo.changedFiles(ctx, rp.TargetBranch)
	if err != nil {
		return 1, err
	}

	reviewCtx := &agent.ReviewContext{
		Platform:     rp.Platform,
		Project:      rp.Project,
		MRID:         rp.MRIID,
		Title:        rp.Title,
		Description:  rp.Description,
		Author:       rp.Author,
		SourceBranch: rp.SourceBranch,
		TargetBranch: rp.TargetBranch,
		Diff:         diff,
		ChangedFiles: files,
	}

	prompt, err := w.buildReviewPrompt(ctx, rp, repo, reviewCtx)
	if err != nil {
		return 1, err
	}
	if prompt == "" {
		logging.Info("Nothing to do for %s!%s", rp.Project, rp.MRIID)
		return 0, nil
	}
	return agent.Run(ctx, repo.dir, prompt)
}

// buildReviewPrompt assembles the action-specific prompt. An empty prompt
// with a nil error means the job is a no-op.
func (w *Worker) buildReviewPrompt(ctx context.Context, rp *payload.ReviewPayload, repo *repo, reviewCtx *agent.ReviewContext) (string, error) {
	isGitHub := rp.Platform == payload.PlatformGitHub

	switch rp.Action {
	case payload.ActionOpen, payload.ActionReopen, "":
		if isGitHub {
			return reviewCtx.BuildGitHubPrompt(), nil
		}
		if err := w.fillDiffSHAs(ctx, repo, rp.TargetBranch, reviewCtx); err != nil {
			return "", err
		}
		return reviewCtx.BuildReviewPrompt(), nil

	case payload.ActionUpdate:
		if isGitHub {
			comments, err := w.fetchComments(rp)
			if err != nil {
				return "", err
			}
			return reviewCtx.BuildGitHubUpdatePrompt(comments), nil
		}
		discussions, err := w.fetchDiscussions(rp)
		if err != nil {
			return "", err
		}
		return reviewCtx.BuildUpdatePrompt(discussions), nil

	case payload.ActionLintFix:
		output := runLinters(ctx, repo.dir, reviewCtx.ChangedFiles)
		if output == "" {
			// No local findings to fix
			return "", nil
		}
		return reviewCtx.BuildLintFixPrompt(output), nil

	case payload.ActionComment:
		instruction := rp.TriggerComment
		if instruction == "" {
			instruction = "review this"
		}
		var threads string
		var err error
		if isGitHub {
			threads, err = w.fetchComments(rp)
		} else {
			threads, err = w.fetchDiscussions(rp)
		}
		if err != nil {
			return "", err
		}
		return reviewCtx.BuildCommentPrompt(instruction, threads), nil

	default:
		return "", fmt.Errorf("unknown review action %q", rp.Action)
	}
}

// fillDiffSHAs computes the anchors GitLab needs for inline comments
func (w *Worker) fillDiffSHAs(ctx context.Context, repo *repo, target string, reviewCtx *agent.ReviewContext) error {
	base, err := repo.mergeBase(ctx, target)
	if err != nil {
		return err
	}
	head, err := repo.headSHA(ctx)
	if err != nil {
		return err
	}
	reviewCtx.BaseSHA = base
	reviewCtx.HeadSHA = head
	reviewCtx.StartSHA = base
	return nil
}

func (w *Worker) fetchDiscussions(rp *payload.ReviewPayload) (string, error) {
	iid, err := strconv.Atoi(rp.MRIID)
	if err != nil {
		return "", fmt.Errorf("invalid MR IID %q: %w", rp.MRIID, err)
	}
	discussions, err := w.gitlab.FetchUnresolvedDiscussions(rp.Project, iid)
	if err != nil {
		return "", fmt.Errorf("fetching discussions: %w", err)
	}
	return FormatDiscussions(discussions), nil
}

func (w *Worker) fetchComments(rp *payload.ReviewPayload) (string, error) {
	number, err := strconv.Atoi(rp.MRIID)
	if err != nil {
		return "", fmt.Errorf("invalid PR number %q: %w", rp.MRIID, err)
	}
	comments, err := w.github.FetchReviewComments(rp.Project, number)
	if err != nil {
		return "", fmt.Errorf("fetching review comments: %w", err)
	}
	return FormatComments(comments), nil
}

func (w *Worker) runSentryFix(ctx context.Context, sp *payload.SentryFixPayload) (int, error) {
	cloneURL := InjectCredentials(sp.CloneURL, sp.VCSPlatform, w.platformToken(sp.VCSPlatform))
	// Fix jobs branch off the target branch
	repo, err := cloneRepo(ctx, w.workDir, cloneURL, sp.TargetBranch)
	if err != nil {
		return 1, err
	}

	fixCtx := &agent.SentryFixContext{
		ShortID:      sp.ShortID,
		Title:        sp.Title,
		Culprit:      sp.Culprit,
		Platform:     sp.Platform,
		WebURL:       sp.URL,
		VCSProject:   sp.VCSProject,
		TargetBranch: sp.TargetBranch,
		VCSPlatform:  sp.VCSPlatform,
	}

	if w.cfg.Sentry.AuthToken != "" {
		if event, err := w.sentry.GetLatestEvent(ctx, sp.IssueID); err == nil {
			fixCtx.Stacktrace = event.FormatStacktrace()
			for _, tag := range event.Tags {
				fixCtx.Tags = append(fixCtx.Tags, [2]string{tag.Key, tag.Value})
			}
		} else {
			logging.Warn("Fetching latest event for %s: %v", sp.IssueID, err)
		}
	}

	return agent.Run(ctx, repo.dir, fixCtx.BuildPrompt())
}

func (w *Worker) runJiraTicket(ctx context.Context, jp *payload.JiraTicketPayload) (int, error) {
	cloneURL := InjectCredentials(jp.CloneURL, jp.VCSPlatform, w.platformToken(jp.VCSPlatform))
	repo, err := cloneRepo(ctx, w.workDir, cloneURL, jp.TargetBranch)
	if err != nil {
		return 1, err
	}

	ticketCtx := &agent.JiraTicketContext{
		IssueKey:       jp.IssueKey,
		Summary:        jp.Summary,
		Description:    jp.Description,
		IssueType:      jp.IssueType,
		Priority:       jp.Priority,
		Status:         jp.Status,
		Labels:         jp.Labels,
		WebURL:         jp.JiraURL,
		TriggerComment: jp.TriggerComment,
		TriggerAuthor:  jp.TriggerAuthor,
		VCSProject:     jp.VCSProject,
		TargetBranch:   jp.TargetBranch,
		VCSPlatform:    jp.VCSPlatform,
	}
	return agent.Run(ctx, repo.dir, ticketCtx.BuildPrompt())
}
