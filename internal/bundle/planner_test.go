package bundle

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/pumpfun"
	"github.com/soltools/bundler/internal/venue"
	"github.com/soltools/bundler/internal/wallet"
)

func testPlannerConfig() PlannerConfig {
	return PlannerConfig{
		CurveBuyChunkSize:  4,
		CurveSellChunkSize: 5,
		PoolChunkSize:      3,
		SlippagePercent:    5,
	}
}

func newTestWallet(t *testing.T, name string) *wallet.Wallet {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := wallet.New(name, key.String())
	require.NoError(t, err)
	return w
}

func testCurveReserves() venue.ReserveState {
	return venue.ReserveState{
		BaseReserve:  1_073_000_000_000_000,
		QuoteReserve: 30_000_000_000,
		RealBase:     793_100_000_000_000,
	}
}

func buyOps(t *testing.T, n int, lamports uint64) []Operation {
	t.Helper()
	ops := make([]Operation, 0, n)
	for i := 0; i < n; i++ {
		ops = append(ops, Operation{
			Wallet:    newTestWallet(t, fmt.Sprintf("w%02d", i)),
			Direction: venue.Buy,
			AmountIn:  lamports,
		})
	}
	return ops
}

func TestPlanLaunchWithTwentyFourWallets(t *testing.T) {
	planner, err := NewPlanner(testPlannerConfig(), zap.NewNop())
	require.NoError(t, err)

	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	creation := &CreationRequest{
		Creator:        newTestWallet(t, "creator"),
		Mint:           mintKey,
		Metadata:       pumpfun.TokenMetadata{Name: "Test", Symbol: "TST", URI: "https://example.com/meta.json"},
		DevBuyLamports: 500_000_000,
	}

	v := venue.BondingCurve(mintKey.PublicKey())
	plan, err := planner.Plan(v, testCurveReserves(), creation, buyOps(t, 24, 100_000_000))
	require.NoError(t, err)

	// 1 creation chunk + ceil(24/4) buy chunks = 7 chunks across 2 bundles.
	require.Len(t, plan.Bundles, 2)
	assert.Len(t, plan.Bundles[0].Chunks, 5)
	assert.Len(t, plan.Bundles[1].Chunks, 2)

	first := plan.Bundles[0].Chunks[0]
	require.NotNil(t, first.Creation)
	require.Len(t, first.Ops, 1, "creation chunk carries only the dev buy")
	assert.Equal(t, creation.Creator.PublicKey, first.Ops[0].Wallet.PublicKey)

	var total int
	for bi, b := range plan.Bundles {
		assert.Equal(t, bi, b.Index)
		for ci, c := range b.Chunks {
			assert.Equal(t, bi, c.BundleIndex)
			assert.Equal(t, ci, c.Index)
			wantTip := ci == len(b.Chunks)-1
			assert.Equal(t, wantTip, c.IncludeTip, "tip must ride on the last chunk of bundle %d", bi)
			if c.Creation == nil {
				assert.LessOrEqual(t, len(c.Ops), 4)
				total += len(c.Ops)
			}
		}
	}
	assert.Equal(t, 24, total)
}

func TestPlanPricesSequentially(t *testing.T) {
	planner, err := NewPlanner(testPlannerConfig(), zap.NewNop())
	require.NoError(t, err)

	mint := solana.NewWallet().PublicKey()
	plan, err := planner.Plan(venue.BondingCurve(mint), testCurveReserves(), nil, buyOps(t, 10, 100_000_000))
	require.NoError(t, err)

	ops := plan.Operations()
	require.Len(t, ops, 10)
	for i := 1; i < len(ops); i++ {
		assert.Less(t, ops[i].ExpectedOut, ops[i-1].ExpectedOut,
			"identical spends must yield strictly less as reserves shift")
	}
	for _, op := range ops {
		want, err := venue.MinOut(op.ExpectedOut, 5)
		require.NoError(t, err)
		assert.Equal(t, want, op.MinOut)
		assert.Less(t, op.MinOut, op.ExpectedOut)
	}

	assert.Greater(t, plan.ReservesAfter.QuoteReserve, plan.ReservesBefore.QuoteReserve)
	assert.Less(t, plan.ReservesAfter.BaseReserve, plan.ReservesBefore.BaseReserve)
}

func TestPlanSellChunkSize(t *testing.T) {
	planner, err := NewPlanner(testPlannerConfig(), zap.NewNop())
	require.NoError(t, err)

	reserves := testCurveReserves()
	reserves.RealQuote = 10_000_000_000

	ops := make([]Operation, 0, 12)
	for i := 0; i < 12; i++ {
		ops = append(ops, Operation{
			Wallet:    newTestWallet(t, fmt.Sprintf("s%02d", i)),
			Direction: venue.Sell,
			AmountIn:  1_000_000_000,
		})
	}

	mint := solana.NewWallet().PublicKey()
	plan, err := planner.Plan(venue.BondingCurve(mint), reserves, nil, ops)
	require.NoError(t, err)

	// ceil(12/5) = 3 chunks, one bundle.
	require.Len(t, plan.Bundles, 1)
	require.Len(t, plan.Bundles[0].Chunks, 3)
	assert.Len(t, plan.Bundles[0].Chunks[0].Ops, 5)
	assert.Len(t, plan.Bundles[0].Chunks[2].Ops, 2)
}

func TestPlanRejectsMixedDirections(t *testing.T) {
	planner, err := NewPlanner(testPlannerConfig(), zap.NewNop())
	require.NoError(t, err)

	ops := buyOps(t, 2, 100_000_000)
	ops[1].Direction = venue.Sell

	mint := solana.NewWallet().PublicKey()
	_, err = planner.Plan(venue.BondingCurve(mint), testCurveReserves(), nil, ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed directions")
}

func TestPlanRejectsCreationOnPool(t *testing.T) {
	planner, err := NewPlanner(testPlannerConfig(), zap.NewNop())
	require.NoError(t, err)

	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	creation := &CreationRequest{
		Creator:        newTestWallet(t, "creator"),
		Mint:           mintKey,
		Metadata:       pumpfun.TokenMetadata{Name: "Test", Symbol: "TST"},
		DevBuyLamports: 1_000_000,
	}

	pool := solana.NewWallet().PublicKey()
	_, err = planner.Plan(venue.Pool(pool, mintKey.PublicKey()), venue.ReserveState{
		BaseReserve:  10_000_000_000,
		QuoteReserve: 5_000_000_000,
	}, creation, nil)
	require.Error(t, err)
}

func TestPlanRejectsInfeasibleCreation(t *testing.T) {
	planner, err := NewPlanner(PlannerConfig{
		CurveBuyChunkSize:  4,
		CurveSellChunkSize: 5,
		PoolChunkSize:      3,
		SlippagePercent:    0,
	}, zap.NewNop())
	require.NoError(t, err)

	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	creation := &CreationRequest{
		Creator:        newTestWallet(t, "creator"),
		Mint:           mintKey,
		Metadata:       pumpfun.TokenMetadata{Name: "Test", Symbol: "TST"},
		DevBuyLamports: 50_000_000_000,
	}

	// Buys large enough to drain the real reserves: once the curve is
	// empty later wallets quote zero output and the plan must refuse.
	ops := buyOps(t, 24, 20_000_000_000)
	_, err = planner.Plan(venue.BondingCurve(mintKey.PublicKey()), testCurveReserves(), creation, ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero output")
}
