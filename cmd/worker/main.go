package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/worker"
)

// defaultWorkDir is the emptyDir volume mounted into worker pods
const defaultWorkDir = "/work"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("Loading configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workDir := os.Getenv("WORK_DIR")
	if workDir == "" {
		workDir = defaultWorkDir
	}

	code, err := worker.New(cfg, workDir).Run(ctx)
	if err != nil {
		logging.Error("Worker failed: %v", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}
