package bundle

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/pumpfun"
	"github.com/soltools/bundler/internal/pumpswap"
	"github.com/soltools/bundler/internal/venue"
)

// Compiler turns priced chunks into instruction lists for one resolved
// market. It is pure address and byte assembly; nothing here touches
// the network.
type Compiler struct {
	market *Market
	logger *zap.Logger
}

// NewCompiler creates a compiler bound to one market.
func NewCompiler(market *Market, logger *zap.Logger) *Compiler {
	return &Compiler{market: market, logger: logger.Named("compiler")}
}

// CompileChunk produces the chunk's instructions in execution order:
// the create instruction when present, then per operation the ATA
// setup and the swap itself. Compute budget and tip instructions are
// the assembler's concern.
func (c *Compiler) CompileChunk(chunk *Chunk) ([]solana.Instruction, error) {
	var instructions []solana.Instruction

	if chunk.Creation != nil {
		if c.market.Venue.Kind != venue.KindBondingCurve {
			return nil, fmt.Errorf("creation chunk on non-curve venue %s", c.market.Venue.Kind)
		}
		createIx, err := pumpfun.BuildCreateInstruction(
			c.market.Curve,
			chunk.Creation.Creator.PublicKey,
			chunk.Creation.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build create instruction: %w", err)
		}
		instructions = append(instructions, createIx)
	}

	for i := range chunk.Ops {
		opIxs, err := c.compileOp(&chunk.Ops[i])
		if err != nil {
			return nil, &CompileError{
				BundleIndex: chunk.BundleIndex,
				ChunkIndex:  chunk.Index,
				Wallet:      chunk.Ops[i].Wallet.PublicKey.String(),
				Err:         err,
			}
		}
		instructions = append(instructions, opIxs...)
	}

	if len(instructions) == 0 {
		return nil, fmt.Errorf("chunk %d/%d compiled to no instructions", chunk.BundleIndex, chunk.Index)
	}
	c.logger.Debug("chunk compiled",
		zap.Int("bundle", chunk.BundleIndex),
		zap.Int("chunk", chunk.Index),
		zap.Int("instructions", len(instructions)))
	return instructions, nil
}

// PruneUncompilable walks the plan and removes operations that cannot
// be compiled, returning one record per skipped wallet. The rest of
// the run proceeds: chunks left without operations are dropped, the
// tip moves to each bundle's new last chunk, and bundle and chunk
// indices are renumbered to stay contiguous.
func (c *Compiler) PruneUncompilable(plan *Plan) []SkippedWallet {
	var skipped []SkippedWallet

	bundles := plan.Bundles[:0]
	for _, pb := range plan.Bundles {
		chunks := pb.Chunks[:0]
		for _, chunk := range pb.Chunks {
			ops := chunk.Ops[:0]
			for i := range chunk.Ops {
				op := chunk.Ops[i]
				if _, err := c.compileOp(&op); err != nil {
					skipped = append(skipped, SkippedWallet{
						Wallet: op.Wallet.PublicKey.String(),
						Reason: err.Error(),
					})
					c.logger.Warn("skipping uncompilable operation",
						zap.String("wallet", op.Wallet.PublicKey.String()),
						zap.Error(err))
					continue
				}
				ops = append(ops, op)
			}
			chunk.Ops = ops
			if len(chunk.Ops) == 0 && chunk.Creation == nil {
				continue
			}
			chunks = append(chunks, chunk)
		}
		if len(chunks) == 0 {
			continue
		}
		pb.Chunks = chunks
		pb.Index = len(bundles)
		for i := range pb.Chunks {
			pb.Chunks[i].BundleIndex = pb.Index
			pb.Chunks[i].Index = i
			pb.Chunks[i].IncludeTip = i == len(pb.Chunks)-1
		}
		bundles = append(bundles, pb)
	}
	plan.Bundles = bundles
	return skipped
}

func (c *Compiler) compileOp(op *PricedOperation) ([]solana.Instruction, error) {
	switch c.market.Venue.Kind {
	case venue.KindBondingCurve:
		return c.compileCurveOp(op)
	case venue.KindPool:
		return c.compilePoolOp(op)
	default:
		return nil, fmt.Errorf("unknown venue kind %d", c.market.Venue.Kind)
	}
}

// compileCurveOp emits the instructions for one curve trade. Buys get
// the idempotent ATA creation in front; sells assume the ATA holds the
// tokens being sold.
func (c *Compiler) compileCurveOp(op *PricedOperation) ([]solana.Instruction, error) {
	user := op.Wallet.PublicKey
	mint := c.market.Venue.Mint

	switch op.Direction {
	case venue.Buy:
		buyIx, err := pumpfun.BuildBuyInstruction(c.market.Curve, user, op.MinOut, op.AmountIn)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{
			pumpfun.CreateATAIdempotentInstruction(user, user, mint),
			buyIx,
		}, nil
	case venue.Sell:
		sellIx, err := pumpfun.BuildSellInstruction(c.market.Curve, user, op.AmountIn, op.MinOut)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{sellIx}, nil
	default:
		return nil, fmt.Errorf("unknown direction %s", op.Direction)
	}
}

// compilePoolOp emits the instructions for one pool swap. Pool quotes
// are WSOL, so buys wrap lamports into the quote ATA first and both
// directions make sure the ATAs exist.
func (c *Compiler) compilePoolOp(op *PricedOperation) ([]solana.Instruction, error) {
	user := op.Wallet.PublicKey
	pool := c.market.Pool

	userBaseATA, err := op.Wallet.GetATA(pool.BaseMint)
	if err != nil {
		return nil, err
	}
	userQuoteATA, err := op.Wallet.GetATA(pool.QuoteMint)
	if err != nil {
		return nil, err
	}

	params := &pumpswap.SwapInstructionParams{
		PoolAddress:                      c.market.Venue.Pool,
		User:                             user,
		GlobalConfig:                     c.market.GlobalConfigAddr,
		BaseMint:                         pool.BaseMint,
		QuoteMint:                        pool.QuoteMint,
		UserBaseTokenAccount:             userBaseATA,
		UserQuoteTokenAccount:            userQuoteATA,
		PoolBaseTokenAccount:             pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            pool.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             c.market.ProtocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: c.market.ProtocolFeeRecipientATA,
		EventAuthority:                   c.market.EventAuthority,
		CoinCreatorVaultATA:              c.market.CreatorVaultATA,
		CoinCreatorVaultAuthority:        c.market.CreatorVaultAuthority,
	}

	switch op.Direction {
	case venue.Buy:
		params.IsBuy = true
		params.Amount1 = op.MinOut   // base out
		params.Amount2 = op.AmountIn // max quote in
		ixs := []solana.Instruction{
			pumpfun.CreateATAIdempotentInstruction(user, user, pool.BaseMint),
			pumpfun.CreateATAIdempotentInstruction(user, user, pool.QuoteMint),
			system.NewTransferInstruction(op.AmountIn, user, userQuoteATA).Build(),
			token.NewSyncNativeInstruction(userQuoteATA).Build(),
			pumpswap.NewSwapInstruction(params),
		}
		return ixs, nil
	case venue.Sell:
		params.IsBuy = false
		params.Amount1 = op.AmountIn // base in
		params.Amount2 = op.MinOut   // min quote out
		ixs := []solana.Instruction{
			pumpfun.CreateATAIdempotentInstruction(user, user, pool.QuoteMint),
			pumpswap.NewSwapInstruction(params),
			// Unwrap the received WSOL back to lamports.
			closeAccountInstruction(userQuoteATA, user, user),
		}
		return ixs, nil
	default:
		return nil, fmt.Errorf("unknown direction %s", op.Direction)
	}
}

// closeAccountInstruction closes a token account and sends its
// lamports to destination. Used to unwrap WSOL after a sell.
func closeAccountInstruction(account, destination, owner solana.PublicKey) solana.Instruction {
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(owner, false, true),
	}
	// CloseAccount instruction discriminator.
	return solana.NewInstruction(solana.TokenProgramID, metas, []byte{9})
}
