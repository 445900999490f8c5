package agent

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/globalcomix/claude-agent/internal/logging"
)

// claudeBinary is the coding agent CLI expected on PATH inside the worker
// image
const claudeBinary = "claude"

// Run invokes the coding agent with the assembled prompt in workDir.
// The agent's stdout/stderr stream through to the worker's own output.
// Returns the agent's exit code.
func Run(ctx context.Context, workDir, prompt string) (int, error) {
	logging.Info("Invoking agent (prompt %d bytes) in %s", len(prompt), workDir)

	cmd := exec.CommandContext(ctx, claudeBinary, "-p", prompt, "--dangerously-skip-permissions")
	cmd.Dir = workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
