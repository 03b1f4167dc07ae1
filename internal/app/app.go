// Package app wires configuration into the running services shared by the
// curvectl commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/blockchain/solbc"
	"github.com/rovshanmuradov/launchlab/internal/config"
	"github.com/rovshanmuradov/launchlab/internal/events"
	"github.com/rovshanmuradov/launchlab/internal/export"
	"github.com/rovshanmuradov/launchlab/internal/history"
	"github.com/rovshanmuradov/launchlab/internal/history/clickhouse"
	"github.com/rovshanmuradov/launchlab/internal/metrics"
	"github.com/rovshanmuradov/launchlab/internal/storage"
	"github.com/rovshanmuradov/launchlab/internal/storage/leveldb"
	"github.com/rovshanmuradov/launchlab/internal/storage/memory"
	"github.com/rovshanmuradov/launchlab/internal/storage/postgres"
	"github.com/rovshanmuradov/launchlab/internal/trade"
	"github.com/rovshanmuradov/launchlab/internal/wallet"
)

const (
	eventBufferSize      = 256
	journalFlushInterval = 5 * time.Second
)

// ErrNoLedger is returned by operations that need an RPC endpoint when none
// is configured.
var ErrNoLedger = errors.New("rpc_url is not configured")

// App holds the services built from one Config.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	Store    *storage.CurveStore
	Bus      *events.Bus
	Trades   *trade.Service
	Ledger   *solbc.Client  // nil without rpc_url
	Wallet   *wallet.Wallet // nil when settlement is simulated
	History  history.Store  // nil without clickhouse_url

	shutdown *ShutdownHandler
}

// New builds the services described by cfg. On error everything opened so
// far is closed again.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *App, err error) {
	a = &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		shutdown: NewShutdownHandler(logger.Named("shutdown"), 0),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
			a = nil
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewCollector(a.Registry)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = storage.NewCurveStore(backend, logger,
		storage.WithMetrics(a.Metrics),
		storage.WithListConcurrency(cfg.ListConcurrency))
	a.shutdown.Add("curve store", a.Store)

	a.Bus = events.NewBus(logger, eventBufferSize)

	if cfg.JournalPath != "" {
		journal, err := export.NewTradeJournal(cfg.JournalPath, journalFlushInterval, logger)
		if err != nil {
			return nil, fmt.Errorf("open trade journal: %w", err)
		}
		a.shutdown.Add("trade journal", journal)
		a.Bus.Subscribe(events.TradeApplied, journal)
	}

	if cfg.ClickHouseURL != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.ClickHouseURL)
		if err != nil {
			return nil, err
		}
		a.shutdown.Add("clickhouse", conn)
		if err := clickhouse.RunMigrations(ctx, conn); err != nil {
			return nil, err
		}
		a.History = clickhouse.NewTradeStore(conn)
		a.Bus.Subscribe(events.TradeApplied, history.NewRecorder(a.History, logger))
	}

	// Registered last so it drains into the sinks above before they close.
	a.shutdown.AddFunc("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.Bus.Shutdown(ctx)
	})

	if cfg.RPCURL != "" {
		a.Ledger = solbc.NewClient(cfg.RPCURL, logger, a.Metrics)
	}

	settler, err := a.newSettler()
	if err != nil {
		return nil, err
	}
	a.Trades = trade.NewService(a.Store, settler, logger,
		trade.WithPublisher(a.Bus),
		trade.WithMetrics(a.Metrics))

	return a, nil
}

func (a *App) newSettler() (trade.Settler, error) {
	if a.Config.Simulated() {
		a.Logger.Info("No wallet configured, trades settle in simulation")
		return trade.NewSimulatedSettler(), nil
	}
	if a.Ledger == nil {
		return nil, ErrNoLedger
	}

	w, err := wallet.Resolve(a.Config.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	vault, err := solana.PublicKeyFromBase58(a.Config.CurveVault)
	if err != nil {
		return nil, fmt.Errorf("invalid curve_vault: %w", err)
	}
	a.Wallet = w

	scfg := wallet.DefaultSettlerConfig(vault)
	scfg.ComputeUnits = a.Config.ComputeUnits
	scfg.PriorityFee = a.Config.PriorityFee
	scfg.MaxTries = uint(a.Config.Retries) + 1

	a.Logger.Info("Wallet loaded", zap.String("wallet", w.String()))
	return wallet.NewSettler(w, a.Ledger, scfg, a.Logger), nil
}

// Close releases every service in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.NewBackend(), nil
	case config.BackendLevelDB:
		return leveldb.Open(cfg.Storage.Path)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
