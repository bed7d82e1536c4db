// Package app wires the application graph from configuration. Both binaries
// (the API server and the cron scheduler) share this bootstrap so a rule
// processed by either path goes through identical services.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"paychain/internal/events"
	"paychain/internal/events/kafka"
	"paychain/internal/ledger"
	ledgermetrics "paychain/internal/ledger/metrics"
	ledgerstore "paychain/internal/ledger/store"
	"paychain/internal/platform/config"
	"paychain/internal/platform/logger"
	"paychain/internal/platform/postgres"
	redisplatform "paychain/internal/platform/redis"
	"paychain/internal/processor"
	processormetrics "paychain/internal/processor/metrics"
	"paychain/internal/receipts"
	receiptstore "paychain/internal/receipts/store"
	scheduleservice "paychain/internal/schedule/service"
	schedulestore "paychain/internal/schedule/store"
)

// App holds the wired application graph.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Ledger    *ledger.Service
	Rules     *scheduleservice.Service
	Receipts  *receipts.Service
	Processor *processor.Processor

	db       *sql.DB
	redis    *redisplatform.Client
	kafkaPub *kafka.Publisher
}

// New builds the application graph. Postgres, Redis and Kafka are each
// optional; absent ones fall back to in-process implementations.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger.New(logger.ParseLevel(cfg.LogLevel)),
	}

	var (
		ledgerSt   ledgerstore.Store
		ruleSt     schedulestore.Store
		receiptSt  receiptstore.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("bootstrap postgres: %w", err)
		}
		a.db = db
		ledgerSt = ledgerstore.NewPostgres(db)
		ruleSt = schedulestore.NewPostgres(db)
		receiptSt = receiptstore.NewPostgres(db)
	} else {
		ledgerSt = ledgerstore.NewInMemory()
		ruleSt = schedulestore.NewInMemory()
		receiptSt = receiptstore.NewInMemory()
	}

	a.Receipts = receipts.New(receiptSt, a.Logger)

	publishers := events.Fanout{a.Receipts}
	if len(cfg.KafkaBrokers) > 0 {
		a.kafkaPub = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, a.kafkaPub)
	}

	a.Ledger = ledger.New(ledgerSt, a.Logger,
		ledger.WithPublisher(publishers),
		ledger.WithMetrics(ledgermetrics.New()),
		ledger.WithStrictRecipients(cfg.StrictRecipients),
	)
	a.Rules = scheduleservice.New(ruleSt, ledgerSt)

	var leaser processor.Leaser = processor.NewInMemoryLeaser()
	if cfg.RedisURL != "" {
		client, err := redisplatform.New(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		a.redis = client
		leaser = processor.NewRedisLeaser(client.Client)
	}

	a.Processor = processor.New(ruleSt, a.Ledger, leaser, a.Logger,
		processor.WithMetrics(processormetrics.New()),
		processor.WithLeaseTTL(cfg.LeaseTTL),
	)
	return a, nil
}

// Seed provisions demo accounts with the standard 1000.00 starting balance.
// Existing accounts are left alone.
func (a *App) Seed(ctx context.Context, principals []string) error {
	starting := decimal.NewFromInt(1000)
	for _, principal := range principals {
		if _, err := a.Ledger.AccountByPrincipal(ctx, principal); err == nil {
			continue
		}
		if _, err := a.Ledger.CreateAccount(ctx, principal, starting); err != nil {
			return fmt.Errorf("seed account %s: %w", principal, err)
		}
		a.Logger.InfoContext(ctx, "seeded account", "principal", principal)
	}
	return nil
}

// Close releases external resources in reverse dependency order.
func (a *App) Close() {
	if a.kafkaPub != nil {
		if err := a.kafkaPub.Close(); err != nil {
			a.Logger.Warn("kafka publisher close failed", "error", err.Error())
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err.Error())
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn("postgres close failed", "error", err.Error())
		}
	}
}
