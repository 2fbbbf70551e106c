package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ghga-de/dcs-go/internal/config"
	"github.com/ghga-de/dcs-go/internal/core"
	"github.com/ghga-de/dcs-go/internal/dao"
	"github.com/ghga-de/dcs-go/internal/ekss"
	"github.com/ghga-de/dcs-go/internal/eventbus"
	"github.com/ghga-de/dcs-go/internal/outbox"
	"github.com/jackc/pgx/v5/pgxpool"
)

// app is the CoreDependencies value named in spec.md §9: every long-lived
// handle the orchestrator and its adapters share, built once at process
// start and closed once at shutdown.
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	storage   *outbox.ObjectStorages
	envelopes *ekss.Client
	publisher *eventbus.Publisher
	repo      *core.DataRepository
}

// buildApp loads configuration and constructs every port the Data
// Repository composes. Callers must invoke app.Close() on every exit path.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := dao.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	storage, err := outbox.New(ctx, cfg.ObjectStorages)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure outbox: %w", err)
	}

	envelopes := ekss.New(cfg.EKSS.BaseURL, time.Duration(cfg.EKSS.TimeoutSeconds)*time.Second)

	publisher, err := eventbus.NewPublisher(cfg.Kafka)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure event publisher: %w", err)
	}

	repo := core.New(core.Dependencies{
		DAO:       dao.New(pool),
		Storage:   storage,
		Envelopes: envelopes,
		Publisher: publisher,
		Config: core.Config{
			OutboxBucket:             cfg.Repository.OutboxBucket,
			DrsServerURI:             cfg.Repository.DrsServerURI,
			RetryAccessAfter:         time.Duration(cfg.Repository.RetryAccessAfterSeconds) * time.Second,
			PresignedURLExpiresAfter: time.Duration(cfg.Repository.PresignedURLExpiresAfter) * time.Second,
			CacheTimeout:             time.Duration(cfg.Repository.CacheTimeoutDays) * 24 * time.Hour,
		},
	})

	return &app{
		cfg:       cfg,
		pool:      pool,
		storage:   storage,
		envelopes: envelopes,
		publisher: publisher,
		repo:      repo,
	}, nil
}

// storageAliases returns every configured object storage alias, the set
// cleanup_outbox iterates over.
func (a *app) storageAliases() []string {
	aliases := make([]string, 0, len(a.cfg.ObjectStorages.Storages))
	for alias := range a.cfg.ObjectStorages.Storages {
		aliases = append(aliases, alias)
	}
	return aliases
}

// Close releases every long-lived handle, in the reverse order they were
// acquired.
func (a *app) Close() {
	a.publisher.Close()
	a.pool.Close()
}
