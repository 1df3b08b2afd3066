package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"newsfeed/internal/api"
	"newsfeed/internal/classify"
	"newsfeed/internal/config"
	"newsfeed/internal/enrich"
	"newsfeed/internal/infrastructure/freshrss"
	"newsfeed/internal/infrastructure/llm"
	"newsfeed/internal/infrastructure/scheduler"
	"newsfeed/internal/infrastructure/storage"
	"newsfeed/internal/infrastructure/telegram"
	"newsfeed/internal/logging"
	"newsfeed/internal/ports"
	"newsfeed/internal/related"
	"newsfeed/internal/thumbnail"
	"newsfeed/internal/usecase"
)

// Application wires configuration to the pipeline jobs and the read API.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	repo   *storage.Repository
	runner *usecase.JobRunner
	server *http.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	flavor := storage.Postgres
	driver := "postgres"
	if cfg.Database.Driver == "sqlite" {
		flavor = storage.SQLite
		driver = "sqlite"
	}

	db, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if flavor == storage.SQLite {
		db.SetMaxOpenConns(1)
	}

	repository := storage.New(db, flavor)

	source := freshrss.NewClient(
		cfg.FreshRSS.BaseURL,
		cfg.FreshRSS.Username,
		cfg.FreshRSS.Password,
		cfg.FreshRSS.PageSize,
		nil,
		baseLogger.With("component", "freshrss"),
	)

	var generator ports.TextGenerator
	if cfg.Ollama.URL != "" && cfg.Ollama.Model != "" {
		generator, err = llm.NewOllamaClient(cfg.Ollama)
		if err != nil {
			return nil, fmt.Errorf("build ollama client: %w", err)
		}
	}
	classifier := classify.New(generator, baseLogger.With("component", "classifier"))

	thumbnails := thumbnail.NewProcessor(cfg.Thumbnails.Dir, nil, baseLogger.With("component", "thumbnails"))
	enricher := enrich.NewEnricher(nil, thumbnails, thumbnails, baseLogger.With("component", "enricher"))

	ingest := usecase.NewIngest(usecase.IngestDeps{
		Source:     source,
		Repository: repository,
		Classifier: classifier,
		Related:    related.NewFinder(),
		Thumbnails: thumbnails,
		Logger:     baseLogger.With("component", "ingest"),
		WindowDays: cfg.FreshRSS.WindowDays,
	})
	enrichSweep := usecase.NewEnrichSweep(repository, enricher, 0, baseLogger.With("component", "enrich"))
	retention := usecase.NewRetention(repository, thumbnails, cfg.Jobs.RetentionDays, baseLogger.With("component", "retention"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	runner := usecase.NewJobRunner(usecase.JobPolicy{
		SoftTimeLimit: time.Duration(cfg.Jobs.SoftTimeLimitMinutes) * time.Minute,
		HardTimeLimit: time.Duration(cfg.Jobs.TimeLimitMinutes) * time.Minute,
	}, notifier, baseLogger.With("component", "jobs"))

	runner.Register(usecase.Job{
		Name:   "ingest",
		Driver: scheduler.NewIntervalScheduler(time.Duration(cfg.Jobs.IngestIntervalMinutes) * time.Minute),
		Run:    ingest.Run,
	})
	runner.Register(usecase.Job{
		Name:   "enrich",
		Driver: scheduler.NewIntervalScheduler(time.Duration(cfg.Jobs.EnrichIntervalMinutes) * time.Minute),
		Run:    enrichSweep.Run,
	})
	runner.Register(usecase.Job{
		Name:   "retention",
		Driver: scheduler.NewIntervalScheduler(time.Duration(cfg.Jobs.RetentionIntervalMinutes) * time.Minute),
		Run:    retention.Run,
	})

	readAPI := api.NewServer(repository, cfg.Thumbnails.Dir, baseLogger.With("component", "api"))
	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: readAPI.Router(),
	}

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		repo:   repository,
		runner: runner,
		server: server,
	}, nil
}

// Run starts the jobs and the read API and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("read api listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("read api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.runner.Stop(shutdownCtx); err != nil {
		a.logger.Warn("job shutdown incomplete", "error", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}

	return nil
}
