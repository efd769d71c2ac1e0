package bundle

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/jito"
)

// ChainClient is the slice of the RPC surface the engine consumes.
// *chain.Client implements it; tests substitute fakes.
type ChainClient interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetAccountData(ctx context.Context, pubkey solana.PublicKey) (*chain.AccountData, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]chain.SignatureStatus, error)
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters []rpc.RPCFilter) ([]chain.ProgramAccount, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error)
	FetchLookupTable(ctx context.Context, table solana.PublicKey) (solana.PublicKeySlice, error)
}

// RelayClient is the relay surface the submitter consumes.
// *jito.Client implements it.
type RelayClient interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

var (
	_ ChainClient = (*chain.Client)(nil)
	_ RelayClient = (*jito.Client)(nil)
)
