package venue

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshCurveReserves() ReserveState {
	return ReserveState{
		BaseReserve:  1_073_000_000_000_000,
		QuoteReserve: 30_000_000_000,
		RealBase:     793_100_000_000_000,
		RealQuote:    0,
	}
}

func TestSequentialBuysDiminishingOutput(t *testing.T) {
	v := BondingCurve(solana.NewWallet().PublicKey())
	sim := NewSimulator(v, freshCurveReserves())

	var prev uint64
	for i := 0; i < 10; i++ {
		out, err := sim.Apply(100_000_000, Buy) // 0.1 SOL each
		require.NoError(t, err)
		require.NotZero(t, out)
		if i > 0 {
			assert.LessOrEqual(t, out, prev,
				"later buy of equal size must not yield more tokens")
		}
		prev = out
	}
}

func TestSingleQuoteMatchesFormula(t *testing.T) {
	v := BondingCurve(solana.NewWallet().PublicKey())
	r := freshCurveReserves()
	amountIn := uint64(250_000_000)

	q, err := v.QuoteSwap(r, amountIn, Buy)
	require.NoError(t, err)

	// out = vBase - k/(vQuote + in), integer floor division.
	k := new(big.Int).Mul(new(big.Int).SetUint64(r.QuoteReserve), new(big.Int).SetUint64(r.BaseReserve))
	den := new(big.Int).SetUint64(r.QuoteReserve + amountIn)
	want := r.BaseReserve - new(big.Int).Div(k, den).Uint64()
	assert.Equal(t, want, q.AmountOut)

	// A simulator with exactly one operation is equivalent to one quote.
	sim := NewSimulator(v, r)
	out, err := sim.Apply(amountIn, Buy)
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, out)
	assert.Equal(t, q.Reserves, sim.Reserves())
}

func TestCurveBuyCappedByRealReserves(t *testing.T) {
	v := BondingCurve(solana.NewWallet().PublicKey())
	r := ReserveState{
		BaseReserve:  1_000_000,
		QuoteReserve: 1_000,
		RealBase:     200_000, // far below what the virtual math would give
	}

	q, err := v.QuoteSwap(r, 1_000_000, Buy)
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000), q.AmountOut,
		"buy output must be capped at the real base reserve")
	assert.Zero(t, q.Reserves.RealBase)
}

func TestTwentyFourWalletBuyPlan(t *testing.T) {
	v := BondingCurve(solana.NewWallet().PublicKey())
	initial := freshCurveReserves()
	sim := NewSimulator(v, initial)

	for i := 0; i < 24; i++ {
		_, err := sim.Apply(100_000_000, Buy)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, sim.TotalBaseOut(), initial.RealBase,
		"cumulative token output must never exceed the real token reserve")
	require.NoError(t, ValidateCreationPlan(initial, sim.TotalBaseOut()))
}

func TestPoolSellExactIntegerOutput(t *testing.T) {
	v := Pool(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	r := ReserveState{BaseReserve: 10_000_000_000, QuoteReserve: 5_000_000_000}

	// 50% of a 2,000,000,000 base-unit balance.
	amountIn := uint64(1_000_000_000)
	q, err := v.QuoteSwap(r, amountIn, Sell)
	require.NoError(t, err)

	k := new(big.Int).Mul(new(big.Int).SetUint64(r.BaseReserve), new(big.Int).SetUint64(r.QuoteReserve))
	den := new(big.Int).SetUint64(r.BaseReserve + amountIn)
	want := r.QuoteReserve - new(big.Int).Div(k, den).Uint64()
	assert.Equal(t, want, q.AmountOut)
	assert.Equal(t, r.BaseReserve+amountIn, q.Reserves.BaseReserve)
	assert.Equal(t, r.QuoteReserve-q.AmountOut, q.Reserves.QuoteReserve)
}

func TestMinOut(t *testing.T) {
	tests := []struct {
		name     string
		out      uint64
		slippage uint64
		want     uint64
		wantErr  error
	}{
		{name: "zero slippage", out: 1000, slippage: 0, want: 1000},
		{name: "five percent", out: 1000, slippage: 5, want: 950},
		{name: "floor division", out: 999, slippage: 1, want: 989}, // 999*99/100 = 989.01
		{name: "full slippage", out: 1000, slippage: 100, want: 0},
		{name: "over 100 rejected", out: 1000, slippage: 101, wantErr: ErrInvalidSlippage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinOut(tt.out, tt.slippage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, tt.out)
		})
	}
}

func TestValidateCreationPlanRejectsInvariantViolation(t *testing.T) {
	// Virtual base not strictly above real base after the plan.
	r := ReserveState{BaseReserve: 1_000_000, QuoteReserve: 1_000, RealBase: 1_000_000}
	err := ValidateCreationPlan(r, 10)
	assert.ErrorIs(t, err, ErrReserveInvariant)

	// Plan output exceeding real reserves.
	r = freshCurveReserves()
	err = ValidateCreationPlan(r, r.RealBase+1)
	assert.ErrorIs(t, err, ErrReserveInvariant)

	// A sane plan passes.
	assert.NoError(t, ValidateCreationPlan(r, 100_000_000_000))
}

func TestQuoteSwapInputValidation(t *testing.T) {
	v := BondingCurve(solana.NewWallet().PublicKey())

	_, err := v.QuoteSwap(freshCurveReserves(), 0, Buy)
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = v.QuoteSwap(ReserveState{}, 100, Buy)
	assert.ErrorIs(t, err, ErrZeroReserves)
}
