package bundle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/pumpfun"
	"github.com/soltools/bundler/internal/pumpswap"
	"github.com/soltools/bundler/internal/venue"
)

// Market is a fully resolved trading venue: the venue identity, the
// reserve snapshot planning starts from, and every account the
// instruction builders need. Resolved once per run; the venue never
// changes mid-run.
type Market struct {
	Venue    venue.Venue
	Reserves venue.ReserveState

	// Bonding curve fields.
	Curve pumpfun.InstructionAccounts

	// Pool fields.
	Pool                    *pumpswap.Pool
	GlobalConfigAddr        solana.PublicKey
	EventAuthority          solana.PublicKey
	ProtocolFeeRecipient    solana.PublicKey
	ProtocolFeeRecipientATA solana.PublicKey
	CreatorVaultAuthority   solana.PublicKey
	CreatorVaultATA         solana.PublicKey
}

// freshCurveReserves are the constants every new bonding curve starts
// with. Creation runs plan against these without a chain read, since
// the curve account does not exist yet.
func freshCurveReserves() venue.ReserveState {
	return venue.ReserveState{
		BaseReserve:  1_073_000_000_000_000,
		QuoteReserve: 30_000_000_000,
		RealBase:     793_100_000_000_000,
		RealQuote:    0,
	}
}

// ResolveMarket resolves the venue for a mint: probe the bonding curve
// PDA first, and when the curve is absent or complete fall back to the
// canonical pool. forCreation skips the probe and resolves a fresh,
// not-yet-existing curve.
func ResolveMarket(ctx context.Context, client ChainClient, mint solana.PublicKey, forCreation bool, logger *zap.Logger) (*Market, error) {
	curveAccounts, err := pumpfun.AccountsForMint(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive curve accounts: %w", err)
	}

	if forCreation {
		m := &Market{
			Venue:    venue.BondingCurve(mint),
			Reserves: freshCurveReserves(),
			Curve:    curveAccounts,
		}
		return m, m.fillFeeRecipient(ctx, client)
	}

	curveData, err := client.GetAccountData(ctx, curveAccounts.BondingCurve)
	switch {
	case err == nil:
		state, err := pumpfun.ParseCurveState(curveData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse curve state: %w", err)
		}
		if !state.Complete {
			logger.Debug("venue resolved to bonding curve",
				zap.String("mint", mint.String()),
				zap.Uint64("virtual_base", state.VirtualTokenReserves))
			m := &Market{
				Venue: venue.BondingCurve(mint),
				Reserves: venue.ReserveState{
					BaseReserve:  state.VirtualTokenReserves,
					QuoteReserve: state.VirtualSolReserves,
					RealBase:     state.RealTokenReserves,
					RealQuote:    state.RealSolReserves,
				},
				Curve: curveAccounts,
			}
			return m, m.fillFeeRecipient(ctx, client)
		}
		// Curve graduated; trading moved to the pool.
	case chain.IsAccountNotFoundError(err):
		// No curve account; token trades on the pool or nowhere.
	default:
		return nil, fmt.Errorf("failed to probe bonding curve: %w", err)
	}

	return resolvePoolMarket(ctx, client, mint, logger)
}

// fillFeeRecipient fetches the curve program's global account and fills
// the fee recipient every buy and sell instruction references.
func (m *Market) fillFeeRecipient(ctx context.Context, client ChainClient) error {
	data, err := client.GetAccountData(ctx, m.Curve.Global)
	if err != nil {
		return fmt.Errorf("failed to fetch global account: %w", err)
	}
	global, err := pumpfun.ParseGlobalAccount(data.Data)
	if err != nil {
		return err
	}
	m.Curve.FeeRecipient = global.FeeRecipient
	return nil
}

// resolvePoolMarket resolves a graduated token's canonical pool and
// the accounts a pool swap needs, including the live vault balances
// the plan prices against.
func resolvePoolMarket(ctx context.Context, client ChainClient, mint solana.PublicKey, logger *zap.Logger) (*Market, error) {
	globalConfigAddr, err := pumpswap.DeriveGlobalConfig()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := pumpswap.DeriveEventAuthority()
	if err != nil {
		return nil, err
	}

	poolAddr, pool, err := findPool(ctx, client, mint, pumpswap.WSOLMint)
	if err != nil {
		return nil, fmt.Errorf("no venue for mint %s: curve absent and %w", mint.String(), err)
	}

	configData, err := client.GetAccountData(ctx, globalConfigAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool global config: %w", err)
	}
	globalConfig, err := pumpswap.ParseGlobalConfig(configData.Data)
	if err != nil {
		return nil, err
	}
	protocolFeeRecipient := globalConfig.ProtocolFeeRecipients[0]
	protocolFeeRecipientATA, _, err := solana.FindAssociatedTokenAddress(protocolFeeRecipient, pool.QuoteMint)
	if err != nil {
		return nil, err
	}

	vaultAuthority, vaultATA, err := pumpswap.DeriveCreatorVault(pool.CoinCreator, pool.QuoteMint)
	if err != nil {
		return nil, err
	}

	baseBalance, err := client.GetTokenBalance(ctx, pool.PoolBaseTokenAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool base reserve: %w", err)
	}
	quoteBalance, err := client.GetTokenBalance(ctx, pool.PoolQuoteTokenAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool quote reserve: %w", err)
	}

	logger.Debug("venue resolved to pool",
		zap.String("mint", mint.String()),
		zap.String("pool", poolAddr.String()),
		zap.Uint64("base_reserve", baseBalance),
		zap.Uint64("quote_reserve", quoteBalance))

	return &Market{
		Venue: venue.Pool(poolAddr, mint),
		Reserves: venue.ReserveState{
			BaseReserve:  baseBalance,
			QuoteReserve: quoteBalance,
		},
		Pool:                    pool,
		GlobalConfigAddr:        globalConfigAddr,
		EventAuthority:          eventAuthority,
		ProtocolFeeRecipient:    protocolFeeRecipient,
		ProtocolFeeRecipientATA: protocolFeeRecipientATA,
		CreatorVaultAuthority:   vaultAuthority,
		CreatorVaultATA:         vaultATA,
	}, nil
}

// findPool locates the pool for a base/quote mint pair by scanning the
// swap program with memcmp filters on the discriminator and both
// mints. A candidate whose address matches the canonical PDA for its
// index/creator wins; otherwise the first parseable candidate does.
func findPool(ctx context.Context, client ChainClient, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, *pumpswap.Pool, error) {
	filters := []rpc.RPCFilter{
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: pumpswap.PoolDiscriminator}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: pumpswap.PoolBaseMintOffset, Bytes: baseMint.Bytes()}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: pumpswap.PoolQuoteMintOffset, Bytes: quoteMint.Bytes()}},
	}
	accounts, err := client.GetProgramAccounts(ctx, pumpswap.ProgramID, filters)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("pool scan failed: %w", err)
	}
	var fallbackAddr solana.PublicKey
	var fallback *pumpswap.Pool
	for _, acc := range accounts {
		pool, err := pumpswap.ParsePool(acc.Data)
		if err != nil {
			continue
		}
		canonical, err := pumpswap.DerivePool(pool.Index, pool.Creator, pool.BaseMint, pool.QuoteMint)
		if err == nil && canonical.Equals(acc.Pubkey) {
			return acc.Pubkey, pool, nil
		}
		if fallback == nil {
			fallbackAddr = acc.Pubkey
			fallback = pool
		}
	}
	if fallback != nil {
		return fallbackAddr, fallback, nil
	}
	return solana.PublicKey{}, nil, fmt.Errorf("no pool found for %s/%s", baseMint.String(), quoteMint.String())
}
