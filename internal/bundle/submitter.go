package bundle

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/jito"
)

// SubmitState tracks a bundle through submission.
type SubmitState string

const (
	StateBuilt           SubmitState = "built"
	StateSubmitting      SubmitState = "submitting"
	StateAcceptedByRelay SubmitState = "accepted_by_relay"
	StateRejected        SubmitState = "rejected"
	StateRateLimited     SubmitState = "rate_limited"
	StateTimedOut        SubmitState = "timed_out"
)

// Rejection reasons, classified from the relay's response so callers
// can tell a structural defect from relay-side conditions.
const (
	ReasonOversized     = "oversized"
	ReasonMissingTip    = "missing_tip"
	ReasonRateLimited   = "rate_limited"
	ReasonTimedOut      = "timed_out"
	ReasonRelayRejected = "relay_rejected"
)

// Submission is the result of pushing one bundle to the relay.
// Acceptance by the relay is not landing: only reconciliation decides
// what actually executed.
type Submission struct {
	BundleIndex int
	BundleID    string
	State       SubmitState
	// Reason classifies terminal failure states; empty on acceptance.
	Reason     string
	Signatures []solana.Signature
	Err        error
}

// rejectionReason maps a permanent relay error to its class. Oversized
// bundles and missing tips are structural defects in the submission;
// anything else is the relay's own judgment.
func rejectionReason(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "exceeds relay limit") || strings.Contains(msg, "too large") || strings.Contains(msg, "too many transactions"):
		return ReasonOversized
	case strings.Contains(msg, "tip"):
		return ReasonMissingTip
	default:
		return ReasonRelayRejected
	}
}

// Submitter pushes assembled bundles to the relay with bounded
// retries on rate limiting.
type Submitter struct {
	relay  RelayClient
	retry  RetryConfig
	logger *zap.Logger
}

// NewSubmitter creates a submitter over the relay client.
func NewSubmitter(relay RelayClient, retry RetryConfig, logger *zap.Logger) *Submitter {
	return &Submitter{relay: relay, retry: retry, logger: logger.Named("submitter")}
}

// Submit sends one bundle. Rate-limited rejections retry with
// exponential backoff; anything else is permanent and comes back as
// StateRejected.
func (s *Submitter) Submit(ctx context.Context, b *AssembledBundle) Submission {
	sub := Submission{
		BundleIndex: b.Index,
		State:       StateSubmitting,
		Signatures:  make([]solana.Signature, 0, len(b.Txs)),
	}
	txs := make([]*solana.Transaction, 0, len(b.Txs))
	for _, at := range b.Txs {
		txs = append(txs, at.Tx)
		sub.Signatures = append(sub.Signatures, at.Signature)
	}

	op := func() (string, error) {
		bundleID, err := s.relay.SendBundle(ctx, txs)
		if err != nil {
			if jito.IsRateLimitError(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		return bundleID, nil
	}

	bundleID, err := backoff.Retry(ctx, op, s.retry.options()...)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			sub.State = StateTimedOut
			sub.Reason = ReasonTimedOut
		case jito.IsRateLimitError(err):
			sub.State = StateRateLimited
			sub.Reason = ReasonRateLimited
		default:
			sub.State = StateRejected
			sub.Reason = rejectionReason(err)
		}
		sub.Err = fmt.Errorf("bundle %d submission failed: %w", b.Index, err)
		s.logger.Error("bundle submission failed",
			zap.Int("bundle", b.Index),
			zap.String("state", string(sub.State)),
			zap.String("reason", sub.Reason),
			zap.Error(err))
		return sub
	}

	sub.BundleID = bundleID
	sub.State = StateAcceptedByRelay
	s.logger.Info("bundle submitted",
		zap.Int("bundle", b.Index),
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(txs)))
	return sub
}
