package bundle

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/venue"
)

func badOp(t *testing.T, name string) PricedOperation {
	t.Helper()
	return PricedOperation{
		Operation: Operation{
			Wallet:    newTestWallet(t, name),
			Direction: venue.Direction(0),
			AmountIn:  100_000_000,
		},
		ExpectedOut: 1,
		MinOut:      1,
	}
}

func TestPruneUncompilableSkipsAndRenumbers(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	market := testCurveMarket(t, mint)
	compiler := NewCompiler(market, zap.NewNop())

	good := pricedBuys(t, 2)
	plan := &Plan{
		Venue: market.Venue,
		Bundles: []PlannedBundle{{
			Index: 0,
			Chunks: []Chunk{
				{BundleIndex: 0, Index: 0, Ops: []PricedOperation{good[0], badOp(t, "bad1")}},
				{BundleIndex: 0, Index: 1, Ops: []PricedOperation{good[1]}},
				{BundleIndex: 0, Index: 2, Ops: []PricedOperation{badOp(t, "bad2")}, IncludeTip: true},
			},
		}},
	}

	skipped := compiler.PruneUncompilable(plan)

	require.Len(t, skipped, 2, "both uncompilable wallets must be reported")
	for _, sw := range skipped {
		assert.NotEmpty(t, sw.Wallet)
		assert.NotEmpty(t, sw.Reason)
	}

	require.Len(t, plan.Bundles, 1)
	chunks := plan.Bundles[0].Chunks
	require.Len(t, chunks, 2, "the chunk left without operations is dropped")

	assert.Len(t, chunks[0].Ops, 1)
	assert.Equal(t, good[0].Wallet.PublicKey, chunks[0].Ops[0].Wallet.PublicKey)
	assert.Len(t, chunks[1].Ops, 1)

	// Indices stay contiguous and the tip moves to the new last chunk.
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 0, c.BundleIndex)
	}
	assert.False(t, chunks[0].IncludeTip)
	assert.True(t, chunks[1].IncludeTip)
}

func TestPruneUncompilableDropsEmptyBundle(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	market := testCurveMarket(t, mint)
	compiler := NewCompiler(market, zap.NewNop())

	plan := &Plan{
		Venue: market.Venue,
		Bundles: []PlannedBundle{{
			Index: 0,
			Chunks: []Chunk{
				{Ops: []PricedOperation{badOp(t, "bad")}, IncludeTip: true},
			},
		}},
	}

	skipped := compiler.PruneUncompilable(plan)

	assert.Len(t, skipped, 1)
	assert.Empty(t, plan.Bundles, "a bundle with nothing left to execute is dropped")
}

func TestPruneUncompilableKeepsCleanPlanIntact(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	market := testCurveMarket(t, mint)
	compiler := NewCompiler(market, zap.NewNop())

	plan := &Plan{
		Venue: market.Venue,
		Bundles: []PlannedBundle{{
			Index: 0,
			Chunks: []Chunk{
				{BundleIndex: 0, Index: 0, Ops: pricedBuys(t, 3)},
				{BundleIndex: 0, Index: 1, Ops: pricedBuys(t, 2), IncludeTip: true},
			},
		}},
	}

	skipped := compiler.PruneUncompilable(plan)

	assert.Empty(t, skipped)
	require.Len(t, plan.Bundles, 1)
	require.Len(t, plan.Bundles[0].Chunks, 2)
	assert.Len(t, plan.Bundles[0].Chunks[0].Ops, 3)
	assert.Len(t, plan.Bundles[0].Chunks[1].Ops, 2)
	assert.True(t, plan.Bundles[0].Chunks[1].IncludeTip)
}
