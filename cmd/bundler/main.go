package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/bundle"
	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/config"
	"github.com/soltools/bundler/internal/jito"
	"github.com/soltools/bundler/internal/logger"
	"github.com/soltools/bundler/internal/wallet"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "bundler",
		Short:         "Multi-wallet token bundler",
		Long:          "Plans, simulates and submits atomic multi-wallet trade bundles against a bonding curve or pool venue.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "path to config file")

	rootCmd.AddCommand(newLaunchCmd())
	rootCmd.AddCommand(newBuyCmd())
	rootCmd.AddCommand(newSellCmd())
	rootCmd.AddCommand(newBalancesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the wired-up application shared by every command.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	chain   *chain.Client
	relay   *jito.Client
	wallets []*wallet.Wallet
	engine  *bundle.Engine
}

// newApp loads config, wallets and clients. The first wallet in the
// CSV is the fee payer (and creator on launches); the rest trade.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Options{Debug: cfg.DebugLogging, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	wallets, err := wallet.Load(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	chainClient := chain.New(cfg.RPCList[0], cfg.RPCRateLimit, log)
	relay := jito.NewClient(cfg.JitoEndpoints, cfg.JitoUUID, log)

	engine := bundle.NewEngine(chainClient, relay, wallets[0], engineConfig(cfg), log)

	return &app{
		cfg:     cfg,
		log:     log,
		chain:   chainClient,
		relay:   relay,
		wallets: wallets,
		engine:  engine,
	}, nil
}

func engineConfig(cfg *config.Config) bundle.EngineConfig {
	retry := bundle.DefaultRetryConfig()
	retry.MaxTries = uint(cfg.SubmitRetries)

	rec := bundle.DefaultReconcilerConfig()
	rec.WaitTimeout = msDuration(cfg.ReconcileWaitMs)
	rec.PollInterval = msDuration(cfg.ReconcilePollMs)

	return bundle.EngineConfig{
		Planner: bundle.PlannerConfig{
			CurveBuyChunkSize:  cfg.CurveBuyChunkSize,
			CurveSellChunkSize: cfg.CurveSellChunkSize,
			PoolChunkSize:      cfg.PoolChunkSize,
			SlippagePercent:    cfg.SlippagePercent,
		},
		Assembler: bundle.AssemblerConfig{
			ComputeUnitBase:  cfg.ComputeUnitBase,
			ComputeUnitPerOp: cfg.ComputeUnitPerOp,
			ComputeUnitPrice: cfg.ComputeUnitPrice,
			TipLamports:      cfg.TipLamports,
		},
		Retry:      retry,
		Reconciler: rec,
	}
}

// traders returns the wallets that place operations: everything after
// the fee payer.
func (a *app) traders() []*wallet.Wallet {
	if len(a.wallets) < 2 {
		return nil
	}
	return a.wallets[1:]
}

func (a *app) close() {
	_ = a.log.Sync()
}
