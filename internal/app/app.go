package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ReviewPublisher/internal/api"
	"ReviewPublisher/internal/config"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/infrastructure/coupang"
	"ReviewPublisher/internal/infrastructure/llm"
	"ReviewPublisher/internal/infrastructure/scheduler"
	"ReviewPublisher/internal/infrastructure/storage"
	"ReviewPublisher/internal/infrastructure/telegram"
	"ReviewPublisher/internal/infrastructure/wordpress"
	"ReviewPublisher/internal/logging"
	"ReviewPublisher/internal/metrics"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	history   *storage.HistoryRepository
	metrics   *metrics.Metrics
	publisher *wordpress.Publisher
	runner    *usecase.Runner
}

// New builds the application. A configured database is opened and its
// schema ensured; everything else is lazy.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.New()}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		a.db = db
		a.history = storage.NewHistoryRepository(db)
		if err := a.history.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	searcher := coupang.NewClient(coupang.Config{
		BaseURL:           cfg.Coupang.BaseURL,
		AccessKey:         cfg.Coupang.AccessKey,
		SecretKey:         cfg.Coupang.SecretKey,
		PartnerID:         cfg.Coupang.PartnerID,
		RequestsPerMinute: cfg.Coupang.RequestsPerMinute,
	}, nil, baseLogger.With("component", "coupang"))

	generators := map[domain.AIModel]ports.ContentGenerator{}
	if cfg.Claude.APIKey != "" {
		generators[domain.ModelClaude] = llm.NewClaudeGenerator(llmConfig(cfg.Claude), baseLogger.With("component", "llm.claude"))
	}
	if cfg.Gemini.APIKey != "" {
		generators[domain.ModelGemini] = llm.NewGeminiGenerator(llmConfig(cfg.Gemini), nil, baseLogger.With("component", "llm.gemini"))
	}

	wpClient := wordpress.NewClient(wordpress.Config{
		URL:                cfg.WordPress.URL,
		Username:           cfg.WordPress.Username,
		AppPassword:        cfg.WordPress.AppPassword,
		UploadDelay:        cfg.WordPress.UploadDelay,
		ImageFetchTimeout:  cfg.WordPress.ImageFetchTimeout,
		ImageFetchAttempts: cfg.WordPress.ImageFetchAttempts,
	}, nil, baseLogger.With("component", "wordpress"))
	a.publisher = wordpress.NewPublisher(wpClient)

	location := cfg.Scheduler.Location()
	now := func() time.Time { return time.Now().In(location) }

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Searcher:   searcher,
		Generators: generators,
		Uploader:   wordpress.NewMediaUploader(wpClient, nil),
		Publisher:  a.publisher,
		Logger:     baseLogger.With("component", "pipeline"),
		Now:        now,
	})

	sinks := []ports.ResultSink{a.metrics}
	if a.history != nil {
		sinks = append(sinks, usecase.NewHistoryRecorder(a.history, now))
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.BaseURL)
	}

	a.runner = usecase.NewRunner(usecase.RunnerDeps{
		Executor:     pipeline,
		Sinks:        sinks,
		Notifier:     notifier,
		Logger:       baseLogger.With("component", "runner"),
		Now:          now,
		PollInterval: cfg.Scheduler.PollInterval,
		OnChange:     a.metrics.ObserveRun(),
	})

	return a, nil
}

func llmConfig(m config.ModelConfig) llm.Config {
	return llm.Config{APIKey: m.APIKey, Model: m.Model, MaxTokens: m.MaxTokens, BaseURL: m.BaseURL}
}

// BatchRequest builds the configured batch with keywords overriding the
// configured list when non-empty.
func (a *Application) BatchRequest(keywords []string) usecase.BatchRequest {
	if len(keywords) == 0 {
		keywords = a.cfg.Batch.Keywords
	}
	return usecase.BatchRequest{
		Keywords:     keywords,
		Model:        a.cfg.Batch.Model,
		ProductCount: a.cfg.Batch.ProductCount,
		SearchLimit:  a.cfg.Batch.SearchLimit,
		Selection:    a.cfg.Selection,
		Settings:     a.cfg.Publish,
	}
}

// RunBatch executes one batch in the foreground.
func (a *Application) RunBatch(ctx context.Context, req usecase.BatchRequest) (usecase.RunSnapshot, error) {
	if err := a.publisher.TestConnection(ctx); err != nil {
		a.logger.Warn("wordpress connection check failed", "error", err)
	}
	return a.runner.Run(ctx, req)
}

// Serve runs the HTTP API and, when configured, the cron trigger until ctx
// is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	location := a.cfg.Scheduler.Location()

	handler := api.NewHandler(api.Deps{
		Runs:     a.runner,
		History:  a.historyPort(),
		Defaults: a.BatchRequest(nil),
		Metrics:  a.metrics.Handler(),
		Logger:   a.logger.With("component", "api"),
		Now:      func() time.Time { return time.Now().In(location) },
	})

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var cronJob *usecase.Scheduler
	if a.cfg.Scheduler.CronExpression != "" && len(a.cfg.Batch.Keywords) > 0 {
		driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, location, a.logger.With("component", "cron"))
		cronJob = usecase.NewScheduler(driver, a.runner, a.BatchRequest(nil), a.logger.With("component", "scheduler"))
		if err := cronJob.Start(ctx); err != nil {
			return fmt.Errorf("start cron: %w", err)
		}
		if next, err := driver.Next(time.Now()); err == nil {
			a.logger.Info("cron batch scheduled", "expression", a.cfg.Scheduler.CronExpression, "next", next)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	a.runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cronJob != nil {
		if err := cronJob.Stop(shutdownCtx); err != nil {
			a.logger.Warn("cron stop failed", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", "error", err)
	}

	// no new batches can start past this point
	a.runner.Stop()
	if err := a.runner.Wait(shutdownCtx); err != nil {
		a.logger.Warn("background batch still running at shutdown", "error", err)
	}

	return serveErr
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Application) historyPort() ports.HistoryRepository {
	if a.history == nil {
		return nil
	}
	return a.history
}
