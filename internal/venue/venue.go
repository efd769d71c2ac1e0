// Package venue models the two liquidity mechanisms a token can trade
// against: the early-stage bonding curve and the post-graduation
// constant-product pool. The variant is closed; every consumer switches
// exhaustively on Kind so a new mechanism cannot be added silently.
package venue

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Kind identifies the liquidity mechanism backing a venue.
type Kind uint8

const (
	// KindBondingCurve is the issuance curve with virtual/real reserve pairs.
	KindBondingCurve Kind = iota + 1
	// KindPool is the constant-product swap pool a graduated token trades on.
	KindPool
)

func (k Kind) String() string {
	switch k {
	case KindBondingCurve:
		return "bonding-curve"
	case KindPool:
		return "pool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Venue is a closed tagged union over the two mechanisms. Pool is only
// set for KindPool. A Venue is detected once per run and treated as
// immutable for that run.
type Venue struct {
	Kind Kind
	Mint solana.PublicKey
	Pool solana.PublicKey
}

// BondingCurve constructs a curve venue for the given token mint.
func BondingCurve(mint solana.PublicKey) Venue {
	return Venue{Kind: KindBondingCurve, Mint: mint}
}

// Pool constructs a pool venue for the given pool account and token mint.
func Pool(pool, mint solana.PublicKey) Venue {
	return Venue{Kind: KindPool, Mint: mint, Pool: pool}
}

func (v Venue) String() string {
	if v.Kind == KindPool {
		return fmt.Sprintf("%s(%s, mint %s)", v.Kind, v.Pool, v.Mint)
	}
	return fmt.Sprintf("%s(mint %s)", v.Kind, v.Mint)
}

// Validate checks the variant is well formed.
func (v Venue) Validate() error {
	switch v.Kind {
	case KindBondingCurve:
		if v.Mint.IsZero() {
			return fmt.Errorf("bonding curve venue requires a mint")
		}
	case KindPool:
		if v.Mint.IsZero() || v.Pool.IsZero() {
			return fmt.Errorf("pool venue requires a pool address and a mint")
		}
	default:
		return fmt.Errorf("unknown venue kind %d", v.Kind)
	}
	return nil
}
