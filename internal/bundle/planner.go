package bundle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/venue"
)

// PlannerConfig tunes how many operations share one transaction.
// Curve instructions are smaller than pool swaps, and sells skip the
// ATA creation instruction, so the three limits differ.
type PlannerConfig struct {
	CurveBuyChunkSize  int
	CurveSellChunkSize int
	PoolChunkSize      int
	// SlippagePercent widens each operation's minOut threshold.
	SlippagePercent uint64
}

// Planner prices a run of operations sequentially and packs them into
// relay-sized bundles of size-bounded chunks.
type Planner struct {
	cfg    PlannerConfig
	logger *zap.Logger
}

// NewPlanner validates the config and returns a planner.
func NewPlanner(cfg PlannerConfig, logger *zap.Logger) (*Planner, error) {
	if cfg.CurveBuyChunkSize <= 0 || cfg.CurveSellChunkSize <= 0 || cfg.PoolChunkSize <= 0 {
		return nil, fmt.Errorf("chunk sizes must be positive: %+v", cfg)
	}
	if cfg.SlippagePercent > 100 {
		return nil, fmt.Errorf("slippage percent %d out of range", cfg.SlippagePercent)
	}
	return &Planner{cfg: cfg, logger: logger.Named("planner")}, nil
}

// chunkSize returns the per-transaction operation limit for the venue
// and direction.
func (p *Planner) chunkSize(v venue.Venue, dir venue.Direction) int {
	if v.Kind == venue.KindPool {
		return p.cfg.PoolChunkSize
	}
	if dir == venue.Buy {
		return p.cfg.CurveBuyChunkSize
	}
	return p.cfg.CurveSellChunkSize
}

// Plan walks the operations in order, carrying reserve state forward
// from each quote into the next, then chunks the priced operations and
// groups the chunks into bundles. With a creation request the creator's
// dev buy is priced first and rides in the same transaction as the
// create instruction.
func (p *Planner) Plan(v venue.Venue, reserves venue.ReserveState, creation *CreationRequest, ops []Operation) (*Plan, error) {
	if creation != nil && v.Kind != venue.KindBondingCurve {
		return nil, fmt.Errorf("creation requires a bonding curve venue, got %s", v.Kind)
	}
	if creation == nil && len(ops) == 0 {
		return nil, fmt.Errorf("nothing to plan")
	}

	dir, err := uniformDirection(creation, ops)
	if err != nil {
		return nil, err
	}

	sim := venue.NewSimulator(v, reserves)

	var devBuy *PricedOperation
	if creation != nil {
		if creation.DevBuyLamports == 0 {
			return nil, fmt.Errorf("creation requires a nonzero dev buy")
		}
		priced, err := p.price(sim, Operation{
			Wallet:    creation.Creator,
			Direction: venue.Buy,
			AmountIn:  creation.DevBuyLamports,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to price dev buy: %w", err)
		}
		devBuy = &priced
	}

	priced := make([]PricedOperation, 0, len(ops))
	for i, op := range ops {
		po, err := p.price(sim, op)
		if err != nil {
			return nil, fmt.Errorf("failed to price operation %d (%s): %w", i, op.Wallet.PublicKey, err)
		}
		priced = append(priced, po)
	}

	if creation != nil && dir == venue.Buy {
		if err := venue.ValidateCreationPlan(reserves, sim.TotalBaseOut()); err != nil {
			return nil, fmt.Errorf("creation plan infeasible: %w", err)
		}
	}

	chunks := p.chunk(v, dir, creation, devBuy, priced)
	bundles := groupIntoBundles(chunks)

	p.logger.Info("plan ready",
		zap.String("venue", v.String()),
		zap.Int("operations", len(priced)),
		zap.Bool("creation", creation != nil),
		zap.Int("chunks", len(chunks)),
		zap.Int("bundles", len(bundles)))

	return &Plan{
		Venue:          v,
		ReservesBefore: reserves,
		ReservesAfter:  sim.Reserves(),
		Bundles:        bundles,
	}, nil
}

func (p *Planner) price(sim *venue.Simulator, op Operation) (PricedOperation, error) {
	out, err := sim.Apply(op.AmountIn, op.Direction)
	if err != nil {
		return PricedOperation{}, err
	}
	if out == 0 {
		// The curve real reserves are exhausted by earlier operations in
		// this same plan; executing would spend for nothing.
		return PricedOperation{}, fmt.Errorf("operation quotes zero output")
	}
	minOut, err := venue.MinOut(out, p.cfg.SlippagePercent)
	if err != nil {
		return PricedOperation{}, err
	}
	return PricedOperation{
		Operation:   op,
		ExpectedOut: out,
		MinOut:      minOut,
	}, nil
}

// chunk packs priced operations into chunks. The creation chunk holds
// only the create instruction and the dev buy; regular chunks hold up
// to chunkSize operations each.
func (p *Planner) chunk(v venue.Venue, dir venue.Direction, creation *CreationRequest, devBuy *PricedOperation, ops []PricedOperation) []Chunk {
	var chunks []Chunk
	if creation != nil {
		c := Chunk{Creation: creation}
		if devBuy != nil {
			c.Ops = []PricedOperation{*devBuy}
		}
		chunks = append(chunks, c)
	}

	size := p.chunkSize(v, dir)
	for start := 0; start < len(ops); start += size {
		end := start + size
		if end > len(ops) {
			end = len(ops)
		}
		chunks = append(chunks, Chunk{Ops: ops[start:end]})
	}
	return chunks
}

// groupIntoBundles splits chunks into relay-sized bundles and marks
// the tip carrier: the last chunk of every bundle.
func groupIntoBundles(chunks []Chunk) []PlannedBundle {
	var bundles []PlannedBundle
	for start := 0; start < len(chunks); start += MaxBundleTransactions {
		end := start + MaxBundleTransactions
		if end > len(chunks) {
			end = len(chunks)
		}
		bundleIdx := len(bundles)
		bundle := PlannedBundle{Index: bundleIdx}
		for i := start; i < end; i++ {
			c := chunks[i]
			c.BundleIndex = bundleIdx
			c.Index = i - start
			c.IncludeTip = i == end-1
			bundle.Chunks = append(bundle.Chunks, c)
		}
		bundles = append(bundles, bundle)
	}
	return bundles
}

// uniformDirection rejects mixed buy/sell runs. Sequential pricing is
// only meaningful when every operation pushes the price the same way.
func uniformDirection(creation *CreationRequest, ops []Operation) (venue.Direction, error) {
	if len(ops) == 0 {
		return venue.Buy, nil
	}
	dir := ops[0].Direction
	for i, op := range ops[1:] {
		if op.Direction != dir {
			return dir, fmt.Errorf("mixed directions: operation %d is %s, expected %s", i+1, op.Direction, dir)
		}
	}
	if creation != nil && dir != venue.Buy {
		return dir, fmt.Errorf("creation run cannot contain sells")
	}
	return dir, nil
}
