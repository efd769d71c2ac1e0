package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/bundle"
	"github.com/soltools/bundler/internal/chain"
	"github.com/soltools/bundler/internal/venue"
)

func newBuyCmd() *cobra.Command {
	var (
		mintStr     string
		buySol      float64
		lookupTable string
	)

	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy an existing token from every wallet in one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parseMint(mintStr)
			if err != nil {
				return err
			}
			perWallet, err := solToLamports(buySol)
			if err != nil {
				return err
			}
			table, err := parseOptionalLookupTable(lookupTable)
			if err != nil {
				return err
			}

			ops := make([]bundle.Operation, 0, len(a.traders()))
			for _, w := range a.traders() {
				ops = append(ops, bundle.Operation{
					Wallet:    w,
					Direction: venue.Buy,
					AmountIn:  perWallet,
				})
			}
			if len(ops) == 0 {
				return fmt.Errorf("no trading wallets loaded")
			}

			report, err := a.engine.Run(cmd.Context(), bundle.RunRequest{
				Mint:        mint,
				Ops:         ops,
				LookupTable: table,
			})
			if err != nil {
				return err
			}

			printReport(report)
			return a.recordRun(report, mint)
		},
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "token mint address")
	cmd.Flags().Float64Var(&buySol, "sol", 0.1, "per-wallet buy in SOL")
	cmd.Flags().StringVar(&lookupTable, "lookup-table", "", "address lookup table to compile against")
	_ = cmd.MarkFlagRequired("mint")

	return cmd
}

func newSellCmd() *cobra.Command {
	var (
		mintStr     string
		percent     uint64
		lookupTable string
	)

	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell each wallet's holdings in one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			mint, err := parseMint(mintStr)
			if err != nil {
				return err
			}
			if percent == 0 || percent > 100 {
				return fmt.Errorf("percent must be in (0,100], got %d", percent)
			}
			table, err := parseOptionalLookupTable(lookupTable)
			if err != nil {
				return err
			}

			ops, skipped, err := a.sellOps(cmd.Context(), mint, percent)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				return fmt.Errorf("no wallet holds tokens of mint %s (%d skipped)", mint, len(skipped))
			}

			report, err := a.engine.Run(cmd.Context(), bundle.RunRequest{
				Mint:        mint,
				Ops:         ops,
				Skipped:     skipped,
				LookupTable: table,
			})
			if err != nil {
				return err
			}

			printReport(report)
			return a.recordRun(report, mint)
		},
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "token mint address")
	cmd.Flags().Uint64Var(&percent, "percent", 100, "share of each wallet's balance to sell")
	cmd.Flags().StringVar(&lookupTable, "lookup-table", "", "address lookup table to compile against")
	_ = cmd.MarkFlagRequired("mint")

	return cmd
}

// sellOps reads each trader's token balance and turns the requested
// share into sell operations. Wallets without tokens are skipped and
// reported, never silently dropped.
func (a *app) sellOps(ctx context.Context, mint solana.PublicKey, percent uint64) ([]bundle.Operation, []bundle.SkippedWallet, error) {
	ops := make([]bundle.Operation, 0, len(a.traders()))
	var skipped []bundle.SkippedWallet
	for _, w := range a.traders() {
		ata, err := w.GetATA(mint)
		if err != nil {
			return nil, nil, err
		}
		balance, err := a.chain.GetTokenBalance(ctx, ata)
		if err != nil {
			if chain.IsAccountNotFoundError(err) {
				skipped = append(skipped, bundle.SkippedWallet{
					Wallet: w.PublicKey.String(),
					Reason: "no token account for mint",
				})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read balance of %s: %w", w.PublicKey, err)
		}
		amount := percentOf(balance, percent)
		if amount == 0 {
			skipped = append(skipped, bundle.SkippedWallet{
				Wallet: w.PublicKey.String(),
				Reason: "zero sellable balance",
			})
			a.log.Debug("skipping wallet with no balance", zap.String("wallet", w.PublicKey.String()))
			continue
		}
		ops = append(ops, bundle.Operation{
			Wallet:    w,
			Direction: venue.Sell,
			AmountIn:  amount,
		})
	}
	return ops, skipped, nil
}
