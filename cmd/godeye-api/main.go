package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/godeye/godeye/internal/api"
	"github.com/godeye/godeye/internal/api/uistatic"
	"github.com/godeye/godeye/internal/archive"
	"github.com/godeye/godeye/internal/assistant"
	"github.com/godeye/godeye/internal/auth"
	"github.com/godeye/godeye/internal/catalog"
	"github.com/godeye/godeye/internal/chart"
	"github.com/godeye/godeye/internal/config"
	"github.com/godeye/godeye/internal/dispatch"
	historypostgres "github.com/godeye/godeye/internal/history/postgres"
	"github.com/godeye/godeye/internal/llm"
	"github.com/godeye/godeye/internal/nl2sql"
	"github.com/godeye/godeye/internal/observability"
	"github.com/godeye/godeye/internal/prompt"
	"github.com/godeye/godeye/internal/query"
	duckdbengine "github.com/godeye/godeye/internal/query/duckdb"
	postgresengine "github.com/godeye/godeye/internal/query/postgres"
	"github.com/godeye/godeye/internal/slack"
	s3store "github.com/godeye/godeye/internal/storage/s3"
	"github.com/godeye/godeye/internal/store"
	"github.com/godeye/godeye/internal/summarize"
	"github.com/godeye/godeye/internal/telegram"
)

func main() {
	cfg, err := config.LoadFromEnv("godeye-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completer, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	freshness := freshnessFrom(cfg.Freshness)
	latest, _ := freshness.Latest()
	latestYear := 0
	if !latest.IsZero() {
		latestYear = latest.Year()
	}
	summaryModel := cfg.AI.SummaryModel
	if summaryModel == "" {
		summaryModel = cfg.AI.Model
	}

	service := &assistant.Service{
		Defaults: storeDefaults(cfg.Store),
		Schema:   catalog.NewBuilder(logger),
		Engine: query.NewRouter(map[string]query.Engine{
			store.DriverPostgres: postgresengine.NewEngine(cfg.Store.QueryTimeout, logger),
			store.DriverDuckDB:   duckdbengine.NewEngine(cfg.Store.QueryTimeout, logger),
		}),
		Generator: &nl2sql.ModelGenerator{Completer: completer, Model: cfg.AI.Model},
		Explainer: &summarize.Explainer{
			Completer:  completer,
			Model:      summaryModel,
			MaxRows:    cfg.Ask.SummaryRows,
			LatestYear: latestYear,
		},
		Charts:       &chart.Classifier{Completer: completer, Model: cfg.AI.Model},
		Freshness:    freshness,
		MaxAttempts:  cfg.Ask.MaxAttempts,
		Deadline:     cfg.Ask.Deadline,
		ChartEnabled: cfg.Ask.ChartEnabled,
		Logger:       logger,
	}
	readiness := []api.ReadinessCheck{api.CheckStore(service.TestConnection), api.CheckAIConfig(cfg)}

	var historyDB *sql.DB
	if cfg.History.Enabled {
		historyDB, err = historypostgres.Open(ctx, cfg.History)
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()
		repo := historypostgres.NewRepository(historyDB)
		service.History = repo
		readiness = append(readiness, repo.HealthCheck)
	}

	var objectStore *s3store.Store
	if cfg.ObjectStore.Enabled {
		objectStore, err = s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		service.Archiver = archive.NewArchiver(objectStore)
		readiness = append(readiness, objectStore.Ping)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Assistant:         service,
		History:           service.History,
		TableRows:         cfg.Ask.SummaryRows,
		UI:                uistatic.Handler(),
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: 5 * time.Second,
	}
	if objectStore != nil {
		deps.Archive = objectStore
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Slack.Enabled {
		poster, err := slack.NewClient(cfg.Slack.APIBaseURL, cfg.Slack.BotToken, 10*time.Second)
		if err != nil {
			logger.Error("failed to initialize slack client", slog.Any("error", err))
			os.Exit(1)
		}
		deduper := slack.NewDeduper(cfg.Slack.DedupTTL, cfg.Slack.DedupMaxKeys)
		queue := dispatch.NewQueue("slack", cfg.Slack.Workers, cfg.Slack.Workers*16, logger)
		deps.Slack = &slack.Handler{
			Asker:         service,
			Poster:        poster,
			Deduper:       deduper,
			Queue:         queue,
			SigningSecret: cfg.Slack.SigningSecret,
			BotUserID:     cfg.Slack.BotUserID,
			TableRows:     cfg.Ask.SummaryRows,
			Logger:        logger,
		}
		group.Go(func() error { return deduper.Run(groupCtx, cfg.Slack.DedupTTL) })
		group.Go(func() error { return queue.Run(groupCtx) })
	}

	if cfg.Telegram.Enabled {
		sender, err := telegram.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.Token, 10*time.Second)
		if err != nil {
			logger.Error("failed to initialize telegram client", slog.Any("error", err))
			os.Exit(1)
		}
		queue := dispatch.NewQueue("telegram", cfg.Telegram.Workers, cfg.Telegram.Workers*16, logger)
		deps.Telegram = &telegram.Handler{
			Asker:       service,
			Sender:      sender,
			Queue:       queue,
			SecretToken: cfg.Telegram.SecretToken,
			Latest:      latest,
			ReplyLimit:  cfg.Ask.ReplyLimit,
			Logger:      logger,
		}
		group.Go(func() error { return queue.Run(groupCtx) })
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	group.Go(func() error {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store", service.Params(nil).Target()),
			slog.Bool("slack", cfg.Slack.Enabled),
			slog.Bool("telegram", cfg.Telegram.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("api server failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func storeDefaults(cfg config.StoreConfig) store.Params {
	return store.Params{
		Driver:    cfg.Driver,
		Host:      cfg.Host,
		Port:      cfg.Port,
		Database:  cfg.Database,
		User:      cfg.User,
		Password:  cfg.Password,
		SSLMode:   cfg.SSLMode,
		Path:      cfg.Path,
		Namespace: cfg.Namespace,
	}
}

func freshnessFrom(cfg config.FreshnessConfig) prompt.Freshness {
	hints := make([]prompt.Hint, 0, len(cfg.Hints))
	for _, hint := range cfg.Hints {
		hints = append(hints, prompt.Hint{Column: hint.Column, Min: hint.Min, Max: hint.Max})
	}
	return prompt.Freshness{Hints: hints, ReferenceColumn: cfg.ReferenceColumn}
}
