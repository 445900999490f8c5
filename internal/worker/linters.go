package worker

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/globalcomix/claude-agent/internal/logging"
)

// lintCommand is one linter invocation for a set of changed files
type lintCommand struct {
	bin  string
	args []string
}

// lintCommands picks the linters to run for the changed files.
// Project-wide linters (clippy, golangci-lint) take no file arguments.
func lintCommands(files []string) []lintCommand {
	var php, js, py []string
	var rust, golang bool

	for _, file := range files {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".php":
			php = append(php, file)
		case ".rs":
			rust = true
		case ".js", ".jsx", ".ts", ".tsx":
			js = append(js, file)
		case ".py":
			py = append(py, file)
		case ".go":
			golang = true
		}
	}

	var commands []lintCommand
	if len(php) > 0 {
		commands = append(commands,
			lintCommand{bin: "phpstan", args: append([]string{"analyse", "--no-progress"}, php...)},
			lintCommand{bin: "mago", args: append([]string{"lint"}, php...)},
		)
	}
	if rust {
		commands = append(commands,
			lintCommand{bin: "cargo", args: []string{"clippy", "--message-format", "short"}})
	}
	if len(js) > 0 {
		commands = append(commands, lintCommand{bin: "eslint", args: js})
	}
	if len(py) > 0 {
		commands = append(commands, lintCommand{bin: "ruff", args: append([]string{"check"}, py...)})
	}
	if golang {
		commands = append(commands, lintCommand{bin: "golangci-lint", args: []string{"run"}})
	}
	return commands
}

// runLinters executes the relevant linters in the working copy and returns
// their combined output. Linters missing from the image are skipped; a
// non-zero exit just means findings, so output is collected either way.
func runLinters(ctx context.Context, dir string, files []string) string {
	var b strings.Builder
	for _, lc := range lintCommands(files) {
		if _, err := exec.LookPath(lc.bin); err != nil {
			continue
		}
		logging.Info("Running %s on %d changed files", lc.bin, len(files))
		cmd := exec.CommandContext(ctx, lc.bin, lc.args...)
		cmd.Dir = dir
		out, _ := cmd.CombinedOutput()
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			b.WriteString(trimmed)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
