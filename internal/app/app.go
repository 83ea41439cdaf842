package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stugorf/hdc-digest/internal/config"
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/infrastructure/llm"
	"github.com/stugorf/hdc-digest/internal/infrastructure/parser"
	"github.com/stugorf/hdc-digest/internal/infrastructure/scheduler"
	"github.com/stugorf/hdc-digest/internal/infrastructure/storage"
	"github.com/stugorf/hdc-digest/internal/infrastructure/telegram"
	"github.com/stugorf/hdc-digest/internal/logging"
	"github.com/stugorf/hdc-digest/internal/ports"
	"github.com/stugorf/hdc-digest/internal/salvage"
	"github.com/stugorf/hdc-digest/internal/scanner"
	"github.com/stugorf/hdc-digest/internal/usecase"
)

// ErrNoHistory reports that the stored history lives only in this process.
var ErrNoHistory = errors.New("no database configured, set database.dsn or DATABASE_DSN to read stored history")

// Store is what the application needs from persistence.
type Store interface {
	ports.SeenStore
	ports.ItemReader
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	store    Store
	pipeline *usecase.Pipeline
	trends   *usecase.TrendAnalyzer
}

// New connects storage and builds every adapter and use case. With no
// database DSN the history lives in memory for the life of the process.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.store = repo
	} else {
		baseLogger.Warn("no database configured, history is kept in memory only")
		a.store = storage.NewMemoryStore()
	}

	agent := llm.NewChatGPTClient(cfg.Agent)
	salvager := salvage.NewParser(salvage.WithLogger(baseLogger.With("component", "salvage")))

	registry := scanner.NewRegistry()
	registry.Register(parser.NewAgentScanner(agent, salvager, baseLogger.With("component", "scanner.agent")))
	registry.Register(parser.NewArxivScanner(nil, baseLogger.With("component", "scanner.arxiv")))

	source := parser.NewStrategySource(registry, cfg.Sections, cfg.Digest, baseLogger.With("component", "source"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Agent:    agent,
		Parser:   salvager,
		Store:    a.store,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	a.trends = usecase.NewTrendAnalyzer(usecase.TrendDeps{
		Reader:      a.store,
		Agent:       agent,
		Parser:      salvager,
		Keywords:    keywordTopics(cfg.Trends.Keywords),
		SampleSize:  cfg.Trends.SampleSize,
		TopicPrompt: cfg.Trends.TopicPrompt,
		Logger:      baseLogger.With("component", "trends"),
	})

	return a, nil
}

// Reader exposes the read-only query surface over the stored history.
func (a *Application) Reader() ports.ItemReader {
	return a.store
}

// Persistent reports whether history outlives the process.
func (a *Application) Persistent() bool {
	return a.db != nil
}

// Config returns the effective configuration.
func (a *Application) Config() config.Config {
	return a.cfg
}

// RunDigest performs a single pipeline execution.
func (a *Application) RunDigest(ctx context.Context, opts usecase.RunOptions) (domain.Digest, error) {
	return a.pipeline.Run(ctx, opts)
}

// AnalyzeTrends runs the trend analyzer over the kept history.
func (a *Application) AnalyzeTrends(ctx context.Context, opts usecase.TrendOptions) (domain.TrendAnalysis, error) {
	return a.trends.Analyze(ctx, opts)
}

// DefaultTrendOptions maps trend configuration onto analyzer options.
func (a *Application) DefaultTrendOptions() usecase.TrendOptions {
	return usecase.TrendOptions{
		WeeksBack:  a.cfg.Trends.WeeksBack,
		TopN:       a.cfg.Trends.TopN,
		PeriodType: domain.PeriodType(a.cfg.Trends.PeriodType),
		UseAgent:   !a.cfg.Trends.KeywordsOnly,
	}
}

// Serve runs digests on the configured cron schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"),
	)
	if err != nil {
		return err
	}

	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("serving digests", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()
	return sched.Stop(context.WithoutCancel(ctx))
}

// Close releases the database connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func keywordTopics(cfg []config.KeywordTopic) []usecase.KeywordTopic {
	out := make([]usecase.KeywordTopic, 0, len(cfg))
	for _, k := range cfg {
		out = append(out, usecase.KeywordTopic{Topic: k.Topic, Keywords: k.Keywords})
	}
	return out
}
