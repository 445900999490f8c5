// agentctl is an operator CLI that talks straight to the Redis queue.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalcomix/claude-agent/internal/payload"
	"github.com/globalcomix/claude-agent/internal/queue"
)

var redisURL string

func main() {
	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Inspect and manage the claude-agent job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("REDIS_URL")
	if defaultURL == "" {
		defaultURL = "redis://127.0.0.1:6379"
	}
	root.PersistentFlags().StringVar(&redisURL, "redis-url", defaultURL, "Redis connection URL")

	root.AddCommand(statsCmd(), listCmd(), queueCmd(), retryCmd(), clearFailedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*queue.Queue, error) {
	return queue.New(ctx, redisURL)
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			stats, err := q.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("pending:    %d\n", stats.Pending)
			fmt.Printf("processing: %d\n", stats.Processing)
			fmt.Printf("failed:     %d\n", stats.Failed)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var failed bool
	var limit int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !failed {
				return fmt.Errorf("only --failed listing is supported")
			}
			ctx := cmd.Context()
			q, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			items, err := q.ListFailed(ctx, limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No failed jobs.")
				return nil
			}
			for _, item := range items {
				fmt.Printf("%s  %-30s  attempts=%d  %s\n    %s\n",
					item.Item.ID,
					item.Item.Payload.Describe(),
					item.Item.Attempts,
					item.FailedAt.Format(time.RFC3339),
					item.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failed, "failed", false, "List failed jobs")
	cmd.Flags().Int64Var(&limit, "limit", 10, "Maximum entries to show")
	return cmd
}

func queueCmd() *cobra.Command {
	var review payload.ReviewPayload

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue a review job directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			if review.Project == "" || review.MRIID == "" {
				return fmt.Errorf("--project and --mr-iid are required")
			}
			ctx := cmd.Context()
			q, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			id, err := q.Push(ctx, payload.NewReview(review))
			if err != nil {
				return err
			}
			fmt.Println("Queued job", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&review.GitLabURL, "gitlab-url", "https://gitlab.com", "GitLab base URL")
	cmd.Flags().StringVar(&review.Project, "project", "", "Project path (group/name)")
	cmd.Flags().StringVar(&review.MRIID, "mr-iid", "", "Merge request IID")
	cmd.Flags().StringVar(&review.CloneURL, "clone-url", "", "HTTPS clone URL")
	cmd.Flags().StringVar(&review.SourceBranch, "source-branch", "", "Source branch")
	cmd.Flags().StringVar(&review.TargetBranch, "target-branch", "main", "Target branch")
	cmd.Flags().StringVar(&review.Title, "title", "", "Merge request title")
	cmd.Flags().StringVar(&review.Author, "author", "", "Merge request author")
	cmd.Flags().StringVar(&review.Action, "action", "open", "Review action")
	cmd.Flags().StringVar(&review.Platform, "platform", "gitlab", "VCS platform")
	return cmd
}

func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			retried, err := q.RetryFailed(ctx, args[0])
			if err != nil {
				return err
			}
			if !retried {
				return fmt.Errorf("no failed job with ID %s", args[0])
			}
			fmt.Println("Requeued job", args[0])
			return nil
		},
	}
}

func clearFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Drop all failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			count, err := q.ClearFailed(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d failed jobs\n", count)
			return nil
		},
	}
}
