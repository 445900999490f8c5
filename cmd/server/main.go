package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/jira"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/queue"
	"github.com/globalcomix/claude-agent/internal/scheduler"
	"github.com/globalcomix/claude-agent/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("Loading configuration: %v", err)
		os.Exit(1)
	}
	if !cfg.HasGitLabToken() {
		logging.Warn("GITLAB_TOKEN not set, GitLab jobs will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := queue.New(ctx, cfg.Redis.URL)
	if err != nil {
		logging.Error("Connecting to Redis: %v", err)
		os.Exit(1)
	}
	defer func() { _ = q.Close() }()

	kube, err := kubeClient()
	if err != nil {
		logging.Error("Connecting to Kubernetes: %v", err)
		os.Exit(1)
	}

	var tokens *jira.TokenManager
	if cfg.HasJiraOAuth() {
		tokens = jira.NewTokenManager(cfg.Jira, kube, cfg.Scheduler.Namespace)
	}

	sched := scheduler.New(kube, q, cfg.Scheduler)
	go func() {
		if err := sched.Run(ctx); err != nil {
			logging.Error("Scheduler stopped: %v", err)
		}
	}()

	app := webhook.New(cfg, q, tokens).App()
	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	logging.Info("claude-agent listening on %s", cfg.Server.ListenAddr)
	if err := app.Listen(cfg.Server.ListenAddr); err != nil {
		logging.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}

// kubeClient prefers in-cluster credentials and falls back to kubeconfig
// for local development
func kubeClient() (kubernetes.Interface, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return nil, err
			}
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, err
		}
	}
	return kubernetes.NewForConfig(restCfg)
}
