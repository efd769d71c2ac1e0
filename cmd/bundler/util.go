package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/bundle"
	"github.com/soltools/bundler/internal/runstate"
	"github.com/soltools/bundler/internal/venue"
)

const lamportsPerSol = 1_000_000_000

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// percentOf returns floor(balance * percent / 100) without overflowing
// on large balances: the quotient scales exactly, only the sub-100
// remainder is floored.
func percentOf(balance, percent uint64) uint64 {
	return balance/100*percent + balance%100*percent/100
}

// solToLamports converts a SOL amount to lamports, rejecting values
// that are non-positive or lose precision.
func solToLamports(sol float64) (uint64, error) {
	if sol <= 0 || math.IsNaN(sol) || math.IsInf(sol, 0) {
		return 0, fmt.Errorf("amount must be positive, got %v", sol)
	}
	lamports := sol * lamportsPerSol
	if lamports >= math.MaxUint64 {
		return 0, fmt.Errorf("amount %v SOL out of range", sol)
	}
	return uint64(lamports), nil
}

func parseMint(s string) (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint address %q: %w", s, err)
	}
	return mint, nil
}

func parseOptionalLookupTable(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	table, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid lookup table address %q: %w", s, err)
	}
	return table, nil
}

// recordRun persists the reconciled report next to earlier runs so
// sells and audits can read back what was planned and what landed.
func (a *app) recordRun(report *bundle.RunReport, mint solana.PublicKey) error {
	rc := runstate.NewRunContext(mint.String(), report.Market.Venue.Kind.String())
	if report.Market.Venue.Kind == venue.KindPool {
		rc.Pool = report.Market.Venue.Pool.String()
	}

	outcomeByChunk := make(map[[2]int]bundle.TxOutcome)
	for _, o := range report.Outcomes {
		rec := runstate.BundleRecord{
			BundleID: o.BundleID,
			Landed:   o.OverallSuccess,
		}
		for _, tx := range o.Txs {
			rec.Signatures = append(rec.Signatures, tx.Signature.String())
		}
		rc.Bundles = append(rc.Bundles, rec)
		for i, tx := range o.Txs {
			outcomeByChunk[[2]int{o.BundleIndex, i}] = tx
		}
	}

	for _, pb := range report.Plan.Bundles {
		for _, chunk := range pb.Chunks {
			outcome := outcomeByChunk[[2]int{chunk.BundleIndex, chunk.Index}]
			for _, op := range chunk.Ops {
				plan := runstate.WalletPlan{
					Wallet:      op.Wallet.PublicKey.String(),
					Direction:   op.Direction.String(),
					AmountIn:    op.AmountIn,
					ExpectedOut: op.ExpectedOut,
					MinOut:      op.MinOut,
					Confirmed:   outcome.Status == bundle.TxSuccess,
				}
				if !outcome.Signature.IsZero() {
					plan.TxSignature = outcome.Signature.String()
				}
				if outcome.Status == bundle.TxFailed && outcome.Err != nil {
					plan.FailureReason = fmt.Sprint(outcome.Err)
				}
				rc.Plans = append(rc.Plans, plan)
			}
		}
	}

	for _, sw := range report.SkippedWallets {
		rc.Plans = append(rc.Plans, runstate.WalletPlan{
			Wallet:        sw.Wallet,
			FailureReason: sw.Reason,
		})
	}

	path := fmt.Sprintf("%s/%s.json", a.cfg.StateDir, rc.RunID)
	if err := rc.Save(path); err != nil {
		return err
	}
	a.log.Info("run state saved", zap.String("path", path))
	fmt.Printf("run state: %s\n", path)
	return nil
}

// printReport summarizes the run on stdout.
func printReport(report *bundle.RunReport) {
	fmt.Printf("venue: %s\n", report.Market.Venue)
	fmt.Printf("bundles: %d  transactions: %d  confirmed: %d  skipped wallets: %d\n",
		len(report.Outcomes), report.TotalTxs, report.ConfirmedTxs, len(report.SkippedWallets))
	for _, sw := range report.SkippedWallets {
		fmt.Printf("  skipped %s: %s\n", sw.Wallet, sw.Reason)
	}
	for _, o := range report.Outcomes {
		fmt.Printf("  bundle %d [%s] id=%s\n", o.BundleIndex, o.State, o.BundleID)
		for _, tx := range o.Txs {
			fmt.Printf("    %-7s %s\n", tx.Status, tx.Signature)
		}
	}
	if report.Success {
		fmt.Println("result: success")
	} else {
		fmt.Println("result: failed")
	}
}
