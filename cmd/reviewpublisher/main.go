package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ReviewPublisher/internal/app"
	"ReviewPublisher/internal/config"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/logging"
	"ReviewPublisher/internal/schedule"
	"ReviewPublisher/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := newRootCmd(cfg, logger).ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "reviewpublisher",
		Short:         "Generate and publish affiliate product reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(cfg, logger),
		newServeCmd(cfg, logger),
		newScheduleCmd(cfg),
	)
	return root
}

func newRunCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		keywords []string
		model    string
		count    int
		paced    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one keyword batch in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			req := application.BatchRequest(keywords)
			if model != "" {
				req.Model = domain.AIModel(model)
				if !req.Model.Valid() {
					return fmt.Errorf("unknown model %q", model)
				}
			}
			if count > 0 {
				req.ProductCount = count
			}
			if paced {
				req.Settings.Enabled = true
			}

			snap, err := application.RunBatch(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), usecase.Digest(snap))
			if snap.State.Status != domain.StatusCompleted {
				return fmt.Errorf("batch ended with status %s: %s", snap.State.Status, snap.State.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&keywords, "keyword", "k", nil, "keyword to publish (repeatable); defaults to the configured batch")
	cmd.Flags().StringVar(&model, "model", "", "generation model: claude or gemini")
	cmd.Flags().IntVar(&count, "count", 0, "products per post")
	cmd.Flags().BoolVar(&paced, "schedule", false, "pace keywords by the configured publish slots")
	return cmd
}

func newServeCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the cron trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

func newScheduleCmd(cfg config.Config) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the next publish slots for the configured window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive")
			}

			settings := cfg.Publish
			slots := schedule.GenerateSlots(count, settings, time.Now().In(cfg.Scheduler.Location()))
			out := cmd.OutOrStdout()
			for _, slot := range slots {
				fmt.Fprintf(out, "%3d  %s\n", slot.Index+1, slot.Date.Format("2006-01-02 15:04 MST"))
			}
			if summary := schedule.Summarize(slots, settings); summary != nil {
				fmt.Fprintf(out, "\n%d posts, %d per day, %d day(s)\n", summary.TotalPosts, summary.DailyCapacity, summary.RequiredDays)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 10, "number of slots to preview")
	return cmd
}
