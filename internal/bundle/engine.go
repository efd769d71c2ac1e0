package bundle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/wallet"
)

// EngineConfig aggregates the tuning of every stage.
type EngineConfig struct {
	Planner    PlannerConfig
	Assembler  AssemblerConfig
	Retry      RetryConfig
	Reconciler ReconcilerConfig
	// SkipSimulation bypasses the dry-run gate. Only for venues where
	// every transaction depends on in-bundle state anyway.
	SkipSimulation bool
}

// RunRequest describes one run: a single mint, an optional creation,
// and the wallet operations to execute against it.
type RunRequest struct {
	Mint     solana.PublicKey
	Creation *CreationRequest
	Ops      []Operation
	// Skipped carries wallets the caller already dropped (no balance,
	// unreadable account) so the report accounts for every wallet.
	Skipped []SkippedWallet
	// LookupTable, when set, is resolved and compiled into every
	// transaction to keep per-operation account cost down.
	LookupTable solana.PublicKey
}

// RunReport is the aggregate result the caller acts on.
type RunReport struct {
	Market   *Market
	Plan     *Plan
	Outcomes []BundleOutcome
	// SkippedWallets aggregates every wallet dropped before submission,
	// both caller-side skips and operations that failed to compile.
	SkippedWallets []SkippedWallet
	TotalTxs       int
	ConfirmedTxs   int
	// Success mirrors per-bundle semantics: at least one transaction
	// confirmed somewhere in the run.
	Success bool
}

// Engine wires the stages together: resolve, plan, assemble, gate,
// submit, reconcile.
type Engine struct {
	chain    ChainClient
	relay    RelayClient
	feePayer *wallet.Wallet
	cfg      EngineConfig
	logger   *zap.Logger
}

// NewEngine creates an engine. The fee payer fronts transaction fees
// and the validator tip for every bundle.
func NewEngine(chainClient ChainClient, relay RelayClient, feePayer *wallet.Wallet, cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		chain:    chainClient,
		relay:    relay,
		feePayer: feePayer,
		cfg:      cfg,
		logger:   logger.Named("engine"),
	}
}

// Run executes one complete run. Any error before submission aborts
// with nothing sent; after submission the report always comes back,
// carrying whatever reconciliation could prove.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	market, err := ResolveMarket(ctx, e.chain, req.Mint, req.Creation != nil, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve market: %w", err)
	}

	planner, err := NewPlanner(e.cfg.Planner, e.logger)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Plan(market.Venue, market.Reserves, req.Creation, req.Ops)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	var lookupTables map[solana.PublicKey]solana.PublicKeySlice
	if !req.LookupTable.IsZero() {
		addresses, err := e.chain.FetchLookupTable(ctx, req.LookupTable)
		if err != nil {
			return nil, err
		}
		lookupTables = map[solana.PublicKey]solana.PublicKeySlice{req.LookupTable: addresses}
	}

	blockhash, err := e.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	compiler := NewCompiler(market, e.logger)
	skipped := append(append([]SkippedWallet{}, req.Skipped...), compiler.PruneUncompilable(plan)...)
	if len(plan.Bundles) == 0 {
		return nil, fmt.Errorf("no executable operations: %d wallet(s) skipped", len(skipped))
	}

	assembler := NewAssembler(e.cfg.Assembler, e.feePayer, lookupTables, e.logger)
	bundles, err := assembler.AssemblePlan(plan, compiler, blockhash)
	if err != nil {
		return nil, fmt.Errorf("assembly failed: %w", err)
	}

	if !e.cfg.SkipSimulation {
		gate := NewSimulationGate(e.chain, e.logger)
		if err := gate.Check(ctx, bundles); err != nil {
			return nil, fmt.Errorf("simulation gate refused the run: %w", err)
		}
	}

	balances := e.snapshotBalances(ctx, market, plan)

	outcomes := e.submitAndReconcile(ctx, market, balances, bundles)

	report := &RunReport{
		Market:         market,
		Plan:           plan,
		Outcomes:       outcomes,
		SkippedWallets: skipped,
	}
	for _, o := range outcomes {
		report.TotalTxs += len(o.Txs)
		report.ConfirmedTxs += o.ConfirmedCount()
		if o.OverallSuccess {
			report.Success = true
		}
	}

	e.logger.Info("run complete",
		zap.String("mint", req.Mint.String()),
		zap.String("venue", market.Venue.String()),
		zap.Int("bundles", len(outcomes)),
		zap.Int("skipped_wallets", len(skipped)),
		zap.Int("confirmed_txs", report.ConfirmedTxs),
		zap.Int("total_txs", report.TotalTxs),
		zap.Bool("success", report.Success))

	return report, nil
}

// snapshotBalances reads each operation wallet's base-token balance
// before submission so the reconciler can judge balance deltas instead
// of absolutes. A wallet whose balance cannot be read is left out of
// the snapshot; its transactions can then only resolve via signatures.
func (e *Engine) snapshotBalances(ctx context.Context, market *Market, plan *Plan) BalanceSnapshot {
	snapshot := make(BalanceSnapshot)
	for _, op := range plan.Operations() {
		if _, done := snapshot[op.Wallet.PublicKey]; done {
			continue
		}
		ata, err := op.Wallet.GetATA(market.Venue.Mint)
		if err != nil {
			continue
		}
		balance, err := e.chain.GetTokenBalance(ctx, ata)
		if err != nil && !chain.IsAccountNotFoundError(err) {
			e.logger.Warn("balance snapshot read failed",
				zap.String("wallet", op.Wallet.PublicKey.String()),
				zap.Error(err))
			continue
		}
		snapshot[op.Wallet.PublicKey] = balance
	}
	return snapshot
}

// submitAndReconcile pushes every bundle concurrently and reconciles
// each as soon as its submission settles. Outcomes come back in bundle
// order regardless of completion order.
func (e *Engine) submitAndReconcile(ctx context.Context, market *Market, balances BalanceSnapshot, bundles []*AssembledBundle) []BundleOutcome {
	submitter := NewSubmitter(e.relay, e.cfg.Retry, e.logger)
	reconciler := NewReconciler(e.cfg.Reconciler, e.chain, market, balances, e.logger)

	outcomes := make([]BundleOutcome, len(bundles))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bundles {
		g.Go(func() error {
			sub := submitter.Submit(gctx, b)
			outcomes[i] = reconciler.Reconcile(gctx, sub, b)
			return nil
		})
	}
	// Workers never return errors; partial failure is data, not an
	// abort condition.
	_ = g.Wait()
	return outcomes
}
