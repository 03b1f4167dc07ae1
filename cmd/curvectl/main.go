package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/app"
	"github.com/rovshanmuradov/launchlab/internal/config"
	"github.com/rovshanmuradov/launchlab/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "curvectl",
		Short:        "Launch and trade tokens on bonding curves",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("backend", "", "storage backend (memory, leveldb, postgres)")
	pf.String("data-dir", "", "leveldb data directory")
	pf.String("postgres-url", "", "Postgres DSN")
	pf.String("clickhouse-url", "", "ClickHouse DSN for trade history")
	pf.String("rpc", "", "Solana RPC URL")
	pf.String("vault", "", "curve vault address receiving settlements")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "JSON log file")
	pf.String("journal", "", "CSV journal of applied trades")
	pf.Uint64("priority-fee", 0, "priority fee in micro-lamports per compute unit")

	root.AddCommand(
		newCreateCmd(),
		newQuoteCmd(),
		newBuyCmd(),
		newSellCmd(),
		newListCmd(),
		newExportCmd(),
		newPurgeCmd(),
		newBalanceCmd(),
		newHistoryCmd(),
		newServeCmd(),
		newWatchCmd(),
	)
	return root
}

// session is the runtime shared by every command.
type session struct {
	*app.App
	log *logger.Logger
}

// open loads configuration and builds the application. The returned close
// function must run before exit.
func open(cmd *cobra.Command) (*session, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, onlyChanged(cmd.Flags()))
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(cmd.Context(), cfg, log.Logger)
	if err != nil {
		log.Error("Failed to start", zap.Error(err))
		_ = log.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("Shutdown finished with errors", zap.Error(err))
		}
		_ = log.Close()
	}
	return &session{App: a, log: log}, closeFn, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.File = cfg.Log.File
	lc.MaxSizeMB = cfg.Log.MaxSizeMB
	lc.Pretty = cfg.Log.Pretty
	return logger.New(lc)
}

// onlyChanged returns the flags the user actually set, so unset flags do
// not override the config file with their zero values.
func onlyChanged(flags *pflag.FlagSet) *pflag.FlagSet {
	out := pflag.NewFlagSet("changed", pflag.ContinueOnError)
	flags.Visit(func(f *pflag.Flag) {
		out.AddFlag(f)
	})
	return out
}
