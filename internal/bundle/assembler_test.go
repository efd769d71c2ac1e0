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
)

func testAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		ComputeUnitBase:  40_000,
		ComputeUnitPerOp: 70_000,
		ComputeUnitPrice: 1_000,
		TipLamports:      1_000_000,
	}
}

func testCurveMarket(t *testing.T, mint solana.PublicKey) *Market {
	t.Helper()
	accounts, err := pumpfun.AccountsForMint(mint)
	require.NoError(t, err)
	accounts.FeeRecipient = solana.NewWallet().PublicKey()
	return &Market{
		Venue:    venue.BondingCurve(mint),
		Reserves: testCurveReserves(),
		Curve:    accounts,
	}
}

func pricedBuys(t *testing.T, n int) []PricedOperation {
	t.Helper()
	ops := make([]PricedOperation, 0, n)
	for i := 0; i < n; i++ {
		ops = append(ops, PricedOperation{
			Operation: Operation{
				Wallet:    newTestWallet(t, fmt.Sprintf("a%02d", i)),
				Direction: venue.Buy,
				AmountIn:  100_000_000,
			},
			ExpectedOut: 3_400_000_000_000,
			MinOut:      3_230_000_000_000,
		})
	}
	return ops
}

func TestAssembleCurveBuyChunk(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	market := testCurveMarket(t, mint)
	compiler := NewCompiler(market, zap.NewNop())

	feePayer := newTestWallet(t, "payer")
	assembler := NewAssembler(testAssemblerConfig(), feePayer, nil, zap.NewNop())

	chunk := &Chunk{Ops: pricedBuys(t, 4), IncludeTip: true}
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	at, err := assembler.Assemble(chunk, compiler, blockhash, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	assert.LessOrEqual(t, at.Size, MaxTransactionSize)
	assert.False(t, at.Signature.IsZero())

	// Fee payer + four distinct wallets must all have signed.
	require.Len(t, at.Tx.Signatures, 5)
	for i, sig := range at.Tx.Signatures {
		assert.False(t, sig.IsZero(), "missing signature %d", i)
	}

	// Compute limit + price + 4x(ATA + buy) + tip.
	assert.Len(t, at.Tx.Message.Instructions, 11)
}

func TestAssembleRejectsOversizedChunk(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	market := testCurveMarket(t, mint)
	compiler := NewCompiler(market, zap.NewNop())

	feePayer := newTestWallet(t, "payer")
	assembler := NewAssembler(testAssemblerConfig(), feePayer, nil, zap.NewNop())

	// Twelve distinct wallets cannot fit one transaction: the signature
	// section alone approaches the wire ceiling.
	chunk := &Chunk{BundleIndex: 1, Index: 2, Ops: pricedBuys(t, 12)}
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	_, err := assembler.Assemble(chunk, compiler, blockhash, solana.NewWallet().PublicKey())
	require.Error(t, err)

	var sizeErr *SizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 1, sizeErr.BundleIndex)
	assert.Equal(t, 2, sizeErr.ChunkIndex)
	assert.Greater(t, sizeErr.Size, MaxTransactionSize)
	assert.Equal(t, MaxTransactionSize, sizeErr.Limit)
}

func TestAssembleCreationChunkSignsMint(t *testing.T) {
	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	market := testCurveMarket(t, mintKey.PublicKey())
	compiler := NewCompiler(market, zap.NewNop())

	creator := newTestWallet(t, "creator")
	feePayer := newTestWallet(t, "payer")
	assembler := NewAssembler(testAssemblerConfig(), feePayer, nil, zap.NewNop())

	chunk := &Chunk{
		Creation: &CreationRequest{
			Creator:        creator,
			Mint:           mintKey,
			Metadata:       pumpfun.TokenMetadata{Name: "Test", Symbol: "TST", URI: "https://example.com/m.json"},
			DevBuyLamports: 500_000_000,
		},
		Ops: []PricedOperation{{
			Operation:   Operation{Wallet: creator, Direction: venue.Buy, AmountIn: 500_000_000},
			ExpectedOut: 17_000_000_000_000,
			MinOut:      16_150_000_000_000,
		}},
		IncludeTip: true,
	}

	blockhash := solana.Hash(solana.NewWallet().PublicKey())
	at, err := assembler.Assemble(chunk, compiler, blockhash, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	// Payer, creator and the mint keypair all sign.
	require.Len(t, at.Tx.Signatures, 3)
	for _, sig := range at.Tx.Signatures {
		assert.False(t, sig.IsZero())
	}
	assert.LessOrEqual(t, at.Size, MaxTransactionSize)
}
