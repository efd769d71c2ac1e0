package venue

import (
	"errors"
	"fmt"
	"math/big"
)

// Direction of an operation relative to the base asset.
type Direction uint8

const (
	// Buy spends quote units (lamports) and receives base units (tokens).
	Buy Direction = iota + 1
	// Sell spends base units and receives quote units.
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

var (
	ErrZeroAmount       = errors.New("amount must be greater than 0")
	ErrZeroReserves     = errors.New("venue has zero reserves")
	ErrInvalidSlippage  = errors.New("slippage percent must be in [0,100]")
	ErrReserveInvariant = errors.New("virtual base reserves would not exceed real base reserves")
)

// ReserveState holds the reserves a quote is computed against. For a
// bonding curve, BaseReserve/QuoteReserve are the virtual pair and
// RealBase/RealQuote are the actual balances backing the curve. For a
// pool there is no virtual/real split and only BaseReserve/QuoteReserve
// are meaningful.
//
// A ReserveState is a forward projection local to one planning pass:
// it is mutated only by sequential quoting, never refreshed from chain
// mid-plan, and must not be shared across concurrent runs.
type ReserveState struct {
	BaseReserve  uint64
	QuoteReserve uint64
	RealBase     uint64
	RealQuote    uint64
}

// Quote is the projected result of one operation plus the reserve state
// every subsequent operation in the same plan must be priced against.
type Quote struct {
	AmountOut uint64
	Reserves  ReserveState
}

// constantProduct computes the exact x*y=k swap output
// out = reserveOut - k/(reserveIn + amountIn) with integer floor
// division. The product k exceeds uint64 for realistic curve reserves,
// hence big.Int.
func constantProduct(reserveIn, reserveOut, amountIn uint64) uint64 {
	k := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(reserveOut))
	den := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(amountIn))
	rem := new(big.Int).Div(k, den)
	return new(big.Int).Sub(new(big.Int).SetUint64(reserveOut), rem).Uint64()
}

// QuoteSwap computes the output of a single operation against the venue
// and returns the updated reserves. The caller feeds the returned
// reserves into the next quote of the same plan; quoting N operations
// against the unmodified initial reserves is incorrect.
func (v Venue) QuoteSwap(r ReserveState, amountIn uint64, dir Direction) (Quote, error) {
	if amountIn == 0 {
		return Quote{}, ErrZeroAmount
	}
	if r.BaseReserve == 0 || r.QuoteReserve == 0 {
		return Quote{}, ErrZeroReserves
	}

	switch v.Kind {
	case KindBondingCurve:
		return quoteCurve(r, amountIn, dir)
	case KindPool:
		return quotePool(r, amountIn, dir)
	default:
		return Quote{}, fmt.Errorf("unknown venue kind %d", v.Kind)
	}
}

func quoteCurve(r ReserveState, amountIn uint64, dir Direction) (Quote, error) {
	switch dir {
	case Buy:
		out := constantProduct(r.QuoteReserve, r.BaseReserve, amountIn)
		// A buy can never extract more base asset than actually exists,
		// even if the virtual-curve math implies more.
		if out > r.RealBase {
			out = r.RealBase
		}
		r.BaseReserve -= out
		r.QuoteReserve += amountIn
		r.RealBase -= out
		r.RealQuote += amountIn
		return Quote{AmountOut: out, Reserves: r}, nil
	case Sell:
		out := constantProduct(r.BaseReserve, r.QuoteReserve, amountIn)
		if out > r.RealQuote {
			out = r.RealQuote
		}
		r.BaseReserve += amountIn
		r.QuoteReserve -= out
		r.RealBase += amountIn
		r.RealQuote -= out
		return Quote{AmountOut: out, Reserves: r}, nil
	default:
		return Quote{}, fmt.Errorf("unknown direction %d", dir)
	}
}

func quotePool(r ReserveState, amountIn uint64, dir Direction) (Quote, error) {
	switch dir {
	case Buy:
		out := constantProduct(r.QuoteReserve, r.BaseReserve, amountIn)
		r.BaseReserve -= out
		r.QuoteReserve += amountIn
		return Quote{AmountOut: out, Reserves: r}, nil
	case Sell:
		out := constantProduct(r.BaseReserve, r.QuoteReserve, amountIn)
		r.BaseReserve += amountIn
		r.QuoteReserve -= out
		return Quote{AmountOut: out, Reserves: r}, nil
	default:
		return Quote{}, fmt.Errorf("unknown direction %d", dir)
	}
}

// MinOut applies the slippage tolerance to a projected output. The
// returned value, not the projection, is what gets embedded on-chain as
// the revert threshold.
func MinOut(amountOut uint64, slippagePercent uint64) (uint64, error) {
	if slippagePercent > 100 {
		return 0, ErrInvalidSlippage
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(amountOut), new(big.Int).SetUint64(100-slippagePercent))
	return new(big.Int).Div(num, big.NewInt(100)).Uint64(), nil
}

// Simulator walks a sequence of operations against one venue, carrying
// the projected reserve state from each operation into the next.
type Simulator struct {
	venue    Venue
	reserves ReserveState
	totalOut uint64
}

// NewSimulator starts a planning pass from a single initial reserve read.
func NewSimulator(v Venue, initial ReserveState) *Simulator {
	return &Simulator{venue: v, reserves: initial}
}

// Apply prices one operation against the carried reserves and advances
// the projection.
func (s *Simulator) Apply(amountIn uint64, dir Direction) (uint64, error) {
	q, err := s.venue.QuoteSwap(s.reserves, amountIn, dir)
	if err != nil {
		return 0, err
	}
	s.reserves = q.Reserves
	if dir == Buy {
		s.totalOut += q.AmountOut
	}
	return q.AmountOut, nil
}

// Reserves returns the current projected reserve state.
func (s *Simulator) Reserves() ReserveState { return s.reserves }

// TotalBaseOut returns the cumulative base-asset output of all buys
// applied so far.
func (s *Simulator) TotalBaseOut() uint64 { return s.totalOut }

// ValidateCreationPlan refuses a curve-creation plan whose cumulative
// buy output would leave the virtual base reserves at or below the real
// base reserves. The program rejects such a state deterministically, so
// the plan must be refused before any transaction is built.
func ValidateCreationPlan(initial ReserveState, cumulativeBaseOut uint64) error {
	if cumulativeBaseOut >= initial.BaseReserve {
		return fmt.Errorf("planned output %d exceeds virtual base reserves %d: %w",
			cumulativeBaseOut, initial.BaseReserve, ErrReserveInvariant)
	}
	if cumulativeBaseOut > initial.RealBase {
		return fmt.Errorf("planned output %d exceeds real base reserves %d: %w",
			cumulativeBaseOut, initial.RealBase, ErrReserveInvariant)
	}
	if initial.BaseReserve-cumulativeBaseOut <= initial.RealBase-cumulativeBaseOut {
		return fmt.Errorf("virtual base %d would not exceed real base %d after plan: %w",
			initial.BaseReserve-cumulativeBaseOut, initial.RealBase-cumulativeBaseOut, ErrReserveInvariant)
	}
	return nil
}
