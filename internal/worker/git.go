package worker

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
)

// cloneDepth limits history fetched for review and fix jobs
const cloneDepth = "50"

// InjectCredentials embeds an access token into an https clone URL.
// Non-https URLs (ssh remotes, local paths) pass through unchanged.
func InjectCredentials(cloneURL, platform, token string) string {
	if token == "" || !strings.HasPrefix(cloneURL, "https://") {
		return cloneURL
	}
	user := "oauth2"
	if platform == payload.PlatformGitHub {
		user = "x-access-token"
	}
	return "https://" + user + ":" + token + "@" + strings.TrimPrefix(cloneURL, "https://")
}

// repo is a cloned working copy
type repo struct {
	dir string
}

// cloneRepo clones a single branch into workDir/repo
func cloneRepo(ctx context.Context, workDir, cloneURL, branch string) (*repo, error) {
	dir := filepath.Join(workDir, "repo")
	logging.Info("Cloning branch %s into %s", branch, dir)

	cmd := exec.CommandContext(ctx, "git", "clone",
		"--depth", cloneDepth, "--branch", branch, cloneURL, dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git clone failed: %w: %s", err, redactTokens(string(out)))
	}
	return &repo{dir: dir}, nil
}

// git runs a git subcommand in the working copy and returns its output
func (r *repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", args[0], err, redactTokens(string(out)))
	}
	return string(out), nil
}

// fetchTarget makes the target branch available as origin/<target>
func (r *repo) fetchTarget(ctx context.Context, target string) error {
	_, err := r.git(ctx, "fetch", "origin",
		fmt.Sprintf("%s:refs/remotes/origin/%s", target, target))
	return err
}

// diff returns the full three-dot diff against the target branch
func (r *repo) diff(ctx context.Context, target string) (string, error) {
	return r.git(ctx, "diff", "origin/"+target+"...HEAD")
}

// changedFiles lists paths changed relative to the target branch
func (r *repo) changedFiles(ctx context.Context, target string) ([]string, error) {
	out, err := r.git(ctx, "diff", "--name-only", "origin/"+target+"...HEAD")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			files = append(files, trimmed)
		}
	}
	return files, nil
}

// mergeBase returns the common ancestor with the target branch
func (r *repo) mergeBase(ctx context.Context, target string) (string, error) {
	out, err := r.git(ctx, "merge-base", "origin/"+target, "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// headSHA returns the checked-out commit
func (r *repo) headSHA(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// redactTokens strips credentials from URLs embedded in git output
func redactTokens(out string) string {
	for _, user := range []string{"oauth2:", "x-access-token:"} {
		for {
			start := strings.Index(out, user)
			if start < 0 {
				break
			}
			end := strings.Index(out[start:], "@")
			if end < 0 {
				break
			}
			out = out[:start] + "***" + out[start+end:]
		}
	}
	return out
}
