package bundle

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/venue"
)

// ReconcilerConfig bounds the post-submission wait.
type ReconcilerConfig struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// DefaultReconcilerConfig waits long enough for a bundle to land a few
// slots out without stalling the run on a dropped bundle.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		WaitTimeout:  10 * time.Second,
		PollInterval: 500 * time.Millisecond,
	}
}

// BalanceSnapshot maps a wallet's public key to its base-token balance
// taken right before submission. The domain fallback judges outcomes by
// the delta against this snapshot; a wallet without an entry can never
// be resolved by the fallback.
type BalanceSnapshot map[solana.PublicKey]uint64

// Reconciler determines what actually executed after a bundle was
// handed to the relay. Relay acceptance means nothing on its own:
// signature statuses are the primary evidence, with domain-level
// account checks as the fallback when a signature never resolves.
type Reconciler struct {
	cfg      ReconcilerConfig
	client   ChainClient
	market   *Market
	balances BalanceSnapshot
	logger   *zap.Logger
}

// NewReconciler creates a reconciler bound to the run's market.
// balances is the pre-submission snapshot the domain fallback compares
// against; nil disables the fallback for trade chunks.
func NewReconciler(cfg ReconcilerConfig, client ChainClient, market *Market, balances BalanceSnapshot, logger *zap.Logger) *Reconciler {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Reconciler{cfg: cfg, client: client, market: market, balances: balances, logger: logger.Named("reconciler")}
}

// Reconcile resolves one submitted bundle to a per-transaction
// outcome. Transactions that cannot be proven landed or failed stay
// pending; the caller reports them as unknown rather than guessed.
func (r *Reconciler) Reconcile(ctx context.Context, sub Submission, bundle *AssembledBundle) BundleOutcome {
	outcome := BundleOutcome{
		BundleIndex: sub.BundleIndex,
		BundleID:    sub.BundleID,
		State:       sub.State,
		Txs:         make([]TxOutcome, len(bundle.Txs)),
	}
	for i, at := range bundle.Txs {
		outcome.Txs[i] = TxOutcome{Signature: at.Signature, Status: TxPending}
	}

	if sub.State != StateAcceptedByRelay {
		// Never reached the relay; nothing can have landed, but the
		// signatures are checked once in case an earlier attempt made it
		// through before the failure.
		r.checkSignatures(ctx, &outcome, bundle)
		r.finalize(&outcome)
		return outcome
	}

	deadline := time.Now().Add(r.cfg.WaitTimeout)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if r.checkSignatures(ctx, &outcome, bundle) {
			break
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			r.finalize(&outcome)
			return outcome
		case <-ticker.C:
		}
	}

	// Signatures that never resolved get one domain-level check before
	// being reported as unknown.
	for i, at := range bundle.Txs {
		if outcome.Txs[i].Status != TxPending {
			continue
		}
		if status, ok := r.domainCheck(ctx, &at.Chunk); ok {
			outcome.Txs[i].Status = status
		}
	}

	r.finalize(&outcome)
	return outcome
}

// checkSignatures polls signature statuses once and updates the
// outcome. Returns true when every transaction has resolved.
func (r *Reconciler) checkSignatures(ctx context.Context, outcome *BundleOutcome, bundle *AssembledBundle) bool {
	pendingIdx := make([]int, 0, len(outcome.Txs))
	pendingSigs := make([]solana.Signature, 0, len(outcome.Txs))
	for i := range outcome.Txs {
		if outcome.Txs[i].Status == TxPending {
			pendingIdx = append(pendingIdx, i)
			pendingSigs = append(pendingSigs, outcome.Txs[i].Signature)
		}
	}
	if len(pendingIdx) == 0 {
		return true
	}

	statuses, err := r.client.GetSignatureStatuses(ctx, pendingSigs...)
	if err != nil {
		r.logger.Warn("signature status poll failed", zap.Error(err))
		return false
	}

	resolvedAll := true
	for j, st := range statuses {
		i := pendingIdx[j]
		switch {
		case !st.Found:
			resolvedAll = false
		case st.Err != nil:
			outcome.Txs[i].Status = TxFailed
			outcome.Txs[i].Err = st.Err
		case st.Confirmed:
			outcome.Txs[i].Status = TxSuccess
		default:
			// Processed but not yet confirmed.
			resolvedAll = false
		}
	}
	return resolvedAll
}

// domainCheck infers a transaction's fate from account state when its
// signature never resolved. Returns ok=false when the evidence is
// ambiguous, leaving the transaction pending.
func (r *Reconciler) domainCheck(ctx context.Context, chunk *Chunk) (TxStatus, bool) {
	if chunk.Creation != nil {
		// The creation transaction landed iff the curve account exists.
		_, err := r.client.GetAccountData(ctx, r.market.Curve.BondingCurve)
		switch {
		case err == nil:
			return TxSuccess, true
		case chain.IsAccountNotFoundError(err):
			return TxFailed, true
		default:
			return TxPending, false
		}
	}

	// For trade chunks, the balance delta against the pre-submission
	// snapshot distinguishes landed from dropped. Absolute balances
	// cannot: a wallet that held tokens before the run, or a partial
	// sell, looks wrong either way. Only a unanimous answer across the
	// chunk's operations counts.
	verdict := TxPending
	for i := range chunk.Ops {
		op := &chunk.Ops[i]
		before, ok := r.balances[op.Wallet.PublicKey]
		if !ok {
			return TxPending, false
		}
		ata, err := op.Wallet.GetATA(r.market.Venue.Mint)
		if err != nil {
			return TxPending, false
		}
		balance, err := r.client.GetTokenBalance(ctx, ata)
		if err != nil && !chain.IsAccountNotFoundError(err) {
			return TxPending, false
		}

		var opVerdict TxStatus
		switch op.Direction {
		case venue.Buy:
			// A landed buy grew the balance by at least minOut.
			switch {
			case balance >= before+op.MinOut:
				opVerdict = TxSuccess
			case balance == before:
				opVerdict = TxFailed
			default:
				// Moved, but not by the expected amount: something else
				// touched the balance.
				return TxPending, false
			}
		case venue.Sell:
			// A landed sell shrank the balance by the amount sold.
			switch {
			case balance+op.AmountIn <= before:
				opVerdict = TxSuccess
			case balance == before:
				opVerdict = TxFailed
			default:
				return TxPending, false
			}
		default:
			return TxPending, false
		}

		if verdict == TxPending {
			verdict = opVerdict
		} else if verdict != opVerdict {
			// Mixed evidence within one atomic transaction: something
			// outside this run touched the balances. Stay unknown.
			return TxPending, false
		}
	}
	if verdict == TxPending {
		return TxPending, false
	}
	return verdict, true
}

func (r *Reconciler) finalize(outcome *BundleOutcome) {
	outcome.OverallSuccess = outcome.ConfirmedCount() > 0
	r.logger.Info("bundle reconciled",
		zap.Int("bundle", outcome.BundleIndex),
		zap.String("bundle_id", outcome.BundleID),
		zap.String("state", string(outcome.State)),
		zap.Int("confirmed", outcome.ConfirmedCount()),
		zap.Int("total", len(outcome.Txs)),
		zap.Bool("overall_success", outcome.OverallSuccess))
}
