// Package chain is a thin adapter over the Solana RPC surface the
// bundler needs: blockhash and account reads, dry-run simulation,
// signature status polling and address lookup table resolution.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError reports whether an RPC error means the
// account does not exist rather than a transport failure.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// Client wraps a solana-go RPC client with logging and a request rate
// limiter shared by all callers.
type Client struct {
	rpc     *rpc.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a client for the given RPC URL. requestsPerSecond bounds
// the outbound request rate; zero disables limiting.
func New(rpcURL string, requestsPerSecond float64, logger *zap.Logger) *Client {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		rpc:     rpc.New(rpcURL),
		logger:  logger.Named("chain"),
		limiter: limiter,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// GetLatestBlockhash returns a recent blockhash at confirmed
// commitment. Every transaction in a bundle shares one blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// AccountData is the raw content of one account read.
type AccountData struct {
	Owner    solana.PublicKey
	Data     []byte
	Lamports uint64
}

// GetAccountData fetches an account and returns its raw binary data.
// Returns ErrAccountNotFound when the account does not exist.
func (c *Client) GetAccountData(ctx context.Context, pubkey solana.PublicKey) (*AccountData, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		c.logger.Debug("GetAccountData error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, ErrAccountNotFound
	}
	return &AccountData{
		Owner:    result.Value.Owner,
		Data:     result.Value.Data.GetBinary(),
		Lamports: result.Value.Lamports,
	}, nil
}

// GetMultipleAccounts fetches several accounts in one request. The
// result slice is index-aligned with pubkeys; missing accounts are nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) ([]*AccountData, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	accounts := make([]*AccountData, len(pubkeys))
	for i, v := range res.Value {
		if v == nil {
			continue
		}
		accounts[i] = &AccountData{
			Owner:    v.Owner,
			Data:     v.Data.GetBinary(),
			Lamports: v.Lamports,
		}
	}
	return accounts, nil
}

// ProgramAccount is one account returned by a program scan.
type ProgramAccount struct {
	Pubkey solana.PublicKey
	Data   []byte
}

// GetProgramAccounts scans a program's accounts with memcmp filters.
// Used for pool discovery; keep the filters tight.
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters []rpc.RPCFilter) ([]ProgramAccount, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		c.logger.Debug("GetProgramAccounts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	result := make([]ProgramAccount, 0, len(accounts))
	for _, acc := range accounts {
		result = append(result, ProgramAccount{
			Pubkey: acc.Pubkey,
			Data:   acc.Account.Data.GetBinary(),
		})
	}
	return result, nil
}

// SimulationResult is the outcome of one dry-run simulation.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// Failed reports whether the simulated transaction would have errored.
func (r *SimulationResult) Failed() bool {
	return r.Err != nil
}

// SimulateTransaction dry-runs a signed transaction. Signature
// verification is skipped and the blockhash replaced so a transaction
// built moments earlier still simulates cleanly.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, err
	}
	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// SignatureStatus is the confirmation state of one signature.
type SignatureStatus struct {
	Found     bool
	Confirmed bool
	Err       interface{}
}

// GetSignatureStatuses looks up signatures with history search on, so
// transactions landed several slots ago still resolve.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) ([]SignatureStatus, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetSignatureStatuses(ctx, true, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	statuses := make([]SignatureStatus, len(signatures))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		statuses[i] = SignatureStatus{
			Found: true,
			Confirmed: v.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				v.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
			Err: v.Err,
		}
	}
	return statuses, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetTokenBalance returns the raw token amount held by a token
// account, or zero with ErrAccountNotFound if it does not exist.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return 0, ErrAccountNotFound
		}
		c.logger.Debug("GetTokenBalance error",
			zap.String("account", account.String()),
			zap.Error(err))
		return 0, err
	}
	if result == nil || result.Value == nil {
		return 0, ErrAccountNotFound
	}
	var amount uint64
	if _, err := fmt.Sscan(result.Value.Amount, &amount); err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}
