package bundle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/jito"
	"github.com/soltools/bundler/internal/wallet"
)

// AssemblerConfig tunes the per-transaction compute budget and the
// validator tip.
type AssemblerConfig struct {
	// ComputeUnitBase plus ComputeUnitPerOp times the operation count
	// is the requested compute limit.
	ComputeUnitBase  uint32
	ComputeUnitPerOp uint32
	// ComputeUnitPrice is the priority fee in micro-lamports per unit.
	ComputeUnitPrice uint64
	TipLamports      uint64
}

// Assembler turns compiled chunks into signed, size-checked
// transactions sharing one blockhash and lookup table set.
type Assembler struct {
	cfg          AssemblerConfig
	feePayer     *wallet.Wallet
	lookupTables map[solana.PublicKey]solana.PublicKeySlice
	logger       *zap.Logger
}

// NewAssembler creates an assembler. lookupTables may be nil when the
// run compiles without address tables.
func NewAssembler(cfg AssemblerConfig, feePayer *wallet.Wallet, lookupTables map[solana.PublicKey]solana.PublicKeySlice, logger *zap.Logger) *Assembler {
	return &Assembler{
		cfg:          cfg,
		feePayer:     feePayer,
		lookupTables: lookupTables,
		logger:       logger.Named("assembler"),
	}
}

// Assemble compiles, wraps, signs and size-checks one chunk. The
// returned transaction is final: it is the exact bytes that will be
// simulated and submitted. A SizeError means the chunk cannot ship at
// any fee and planning must shrink it.
func (a *Assembler) Assemble(chunk *Chunk, compiler *Compiler, blockhash solana.Hash, tipAccount solana.PublicKey) (*AssembledTransaction, error) {
	chunkIxs, err := compiler.CompileChunk(chunk)
	if err != nil {
		return nil, err
	}

	opCount := len(chunk.Ops)
	if chunk.Creation != nil {
		opCount++
	}
	limit := a.cfg.ComputeUnitBase + a.cfg.ComputeUnitPerOp*uint32(opCount)

	instructions := make([]solana.Instruction, 0, len(chunkIxs)+3)
	instructions = append(instructions,
		computebudget.NewSetComputeUnitLimitInstruction(limit).Build())
	if a.cfg.ComputeUnitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(a.cfg.ComputeUnitPrice).Build())
	}
	instructions = append(instructions, chunkIxs...)
	if chunk.IncludeTip {
		instructions = append(instructions,
			jito.TipInstruction(a.feePayer.PublicKey, tipAccount, a.cfg.TipLamports))
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(a.feePayer.PublicKey)}
	if len(a.lookupTables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(a.lookupTables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction for chunk %d/%d: %w", chunk.BundleIndex, chunk.Index, err)
	}

	if err := a.sign(tx, chunk); err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	if len(raw) > MaxTransactionSize {
		return nil, &SizeError{
			BundleIndex: chunk.BundleIndex,
			ChunkIndex:  chunk.Index,
			Size:        len(raw),
			Limit:       MaxTransactionSize,
		}
	}

	a.logger.Debug("transaction assembled",
		zap.Int("bundle", chunk.BundleIndex),
		zap.Int("chunk", chunk.Index),
		zap.Int("size", len(raw)),
		zap.Uint32("compute_limit", limit),
		zap.Bool("tip", chunk.IncludeTip))

	return &AssembledTransaction{
		Chunk:     *chunk,
		Tx:        tx,
		Signature: tx.Signatures[0],
		Size:      len(raw),
	}, nil
}

// sign collects every required keypair: the fee payer, each operation
// wallet, and the mint keypair for a creation chunk.
func (a *Assembler) sign(tx *solana.Transaction, chunk *Chunk) error {
	keys := make(map[solana.PublicKey]*solana.PrivateKey)
	keys[a.feePayer.PublicKey] = &a.feePayer.PrivateKey
	for _, w := range chunk.Wallets() {
		keys[w.PublicKey] = &w.PrivateKey
	}
	if chunk.Creation != nil {
		mintKey := chunk.Creation.Mint
		keys[mintKey.PublicKey()] = &mintKey
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return keys[key]
	}); err != nil {
		return fmt.Errorf("failed to sign chunk %d/%d: %w", chunk.BundleIndex, chunk.Index, err)
	}
	return nil
}

// AssemblePlan assembles every chunk of a plan against one blockhash
// and one tip account per bundle.
func (a *Assembler) AssemblePlan(plan *Plan, compiler *Compiler, blockhash solana.Hash) ([]*AssembledBundle, error) {
	bundles := make([]*AssembledBundle, 0, len(plan.Bundles))
	for _, pb := range plan.Bundles {
		tipAccount := jito.RandomTipAccount()
		ab := &AssembledBundle{Index: pb.Index}
		for i := range pb.Chunks {
			tx, err := a.Assemble(&pb.Chunks[i], compiler, blockhash, tipAccount)
			if err != nil {
				return nil, err
			}
			ab.Txs = append(ab.Txs, tx)
		}
		bundles = append(bundles, ab)
	}
	return bundles, nil
}
