// Package bundle is the construction and reconciliation engine: it
// prices multi-wallet operations sequentially, packs them into
// size-bounded transactions, gates submission behind dry-run
// simulation, ships bundles to the relay and reconciles what actually
// landed.
package bundle

import (
	"github.com/gagliardetto/solana-go"

	"github.com/soltools/bundler/internal/pumpfun"
	"github.com/soltools/bundler/internal/venue"
	"github.com/soltools/bundler/internal/wallet"
)

// MaxTransactionSize is the wire-size ceiling of one serialized
// transaction. Anything larger is rejected by the network before it
// reaches a leader.
const MaxTransactionSize = 1232

// MaxBundleTransactions mirrors the relay's per-bundle cap.
const MaxBundleTransactions = 5

// Operation is one wallet's requested trade before pricing.
type Operation struct {
	Wallet    *wallet.Wallet
	Direction venue.Direction
	// AmountIn is lamports for buys and base tokens for sells.
	AmountIn uint64
}

// PricedOperation is an operation after its slot in the sequential
// price-impact walk has been fixed.
type PricedOperation struct {
	Operation
	// ExpectedOut is the quoted output assuming every earlier operation
	// in the run lands first.
	ExpectedOut uint64
	// MinOut is ExpectedOut less slippage, embedded in the instruction
	// as the on-chain revert threshold.
	MinOut uint64
}

// SkippedWallet records a wallet that was dropped from a run and why.
// Skips are always surfaced in the run report, never just logged.
type SkippedWallet struct {
	Wallet string
	Reason string
}

// CreationRequest describes the launch that leads a creation run: the
// create instruction plus the creator's dev buy in the same
// transaction.
type CreationRequest struct {
	Creator        *wallet.Wallet
	Mint           solana.PrivateKey
	Metadata       pumpfun.TokenMetadata
	DevBuyLamports uint64
}

// Chunk is the unit of transaction assembly: at most one creation and
// a bounded run of operations that share a transaction.
type Chunk struct {
	BundleIndex int
	Index       int
	Creation    *CreationRequest
	Ops         []PricedOperation
	// IncludeTip marks the chunk that carries the validator tip. Exactly
	// one chunk per bundle has it set, always the last.
	IncludeTip bool
}

// Wallets returns the distinct signing wallets the chunk needs beyond
// the fee payer.
func (c *Chunk) Wallets() []*wallet.Wallet {
	seen := make(map[string]struct{}, len(c.Ops)+1)
	var wallets []*wallet.Wallet
	add := func(w *wallet.Wallet) {
		key := w.PublicKey.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		wallets = append(wallets, w)
	}
	if c.Creation != nil {
		add(c.Creation.Creator)
	}
	for i := range c.Ops {
		add(c.Ops[i].Wallet)
	}
	return wallets
}

// Plan is the full output of planning: priced chunks grouped into
// relay-sized bundles, plus the reserve states bracketing the run.
type Plan struct {
	Venue          venue.Venue
	ReservesBefore venue.ReserveState
	ReservesAfter  venue.ReserveState
	Bundles        []PlannedBundle
}

// PlannedBundle is one relay submission: an ordered set of chunks that
// will become at most MaxBundleTransactions transactions.
type PlannedBundle struct {
	Index  int
	Chunks []Chunk
}

// Operations returns every priced operation in plan order.
func (p *Plan) Operations() []PricedOperation {
	var ops []PricedOperation
	for _, b := range p.Bundles {
		for _, c := range b.Chunks {
			ops = append(ops, c.Ops...)
		}
	}
	return ops
}

// AssembledTransaction is a signed, size-checked transaction ready for
// simulation and submission.
type AssembledTransaction struct {
	Chunk     Chunk
	Tx        *solana.Transaction
	Signature solana.Signature
	Size      int
}

// AssembledBundle pairs a planned bundle with its signed transactions.
type AssembledBundle struct {
	Index int
	Txs   []*AssembledTransaction
}

// TxStatus is the reconciled state of one transaction.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// TxOutcome is the reconciled result of one transaction in a
// submitted bundle.
type TxOutcome struct {
	Signature solana.Signature
	Status    TxStatus
	// Err carries the on-chain error for failed transactions.
	Err interface{}
}

// BundleOutcome is the reconciled result of one bundle submission.
type BundleOutcome struct {
	BundleIndex int
	BundleID    string
	State       SubmitState
	Txs         []TxOutcome
	// OverallSuccess is true when at least one transaction confirmed.
	// Partial landings count: the run report carries the per-tx detail.
	OverallSuccess bool
}

// ConfirmedCount returns how many transactions in the bundle landed.
func (o *BundleOutcome) ConfirmedCount() int {
	n := 0
	for _, tx := range o.Txs {
		if tx.Status == TxSuccess {
			n++
		}
	}
	return n
}
