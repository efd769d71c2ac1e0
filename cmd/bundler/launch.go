package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soltools/bundler/internal/bundle"
	"github.com/soltools/bundler/internal/pumpfun"
	"github.com/soltools/bundler/internal/venue"
)

func newLaunchCmd() *cobra.Command {
	var (
		name        string
		symbol      string
		uri         string
		devBuySol   float64
		buySol      float64
		lookupTable string
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Create a token and buy from every wallet in one atomic run",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			devBuy, err := solToLamports(devBuySol)
			if err != nil {
				return fmt.Errorf("invalid dev buy: %w", err)
			}
			perWallet, err := solToLamports(buySol)
			if err != nil {
				return fmt.Errorf("invalid per-wallet buy: %w", err)
			}
			table, err := parseOptionalLookupTable(lookupTable)
			if err != nil {
				return err
			}

			mintKey, err := solana.NewRandomPrivateKey()
			if err != nil {
				return fmt.Errorf("failed to generate mint keypair: %w", err)
			}
			mint := mintKey.PublicKey()

			ops := make([]bundle.Operation, 0, len(a.traders()))
			for _, w := range a.traders() {
				ops = append(ops, bundle.Operation{
					Wallet:    w,
					Direction: venue.Buy,
					AmountIn:  perWallet,
				})
			}

			a.log.Info("launching token",
				zap.String("mint", mint.String()),
				zap.String("symbol", symbol),
				zap.Int("buy_wallets", len(ops)))

			report, err := a.engine.Run(cmd.Context(), bundle.RunRequest{
				Mint: mint,
				Creation: &bundle.CreationRequest{
					Creator:        a.wallets[0],
					Mint:           mintKey,
					Metadata:       pumpfun.TokenMetadata{Name: name, Symbol: symbol, URI: uri},
					DevBuyLamports: devBuy,
				},
				Ops:         ops,
				LookupTable: table,
			})
			if err != nil {
				return err
			}

			fmt.Printf("mint: %s\n", mint)
			printReport(report)
			return a.recordRun(report, mint)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&uri, "uri", "", "metadata URI")
	cmd.Flags().Float64Var(&devBuySol, "dev-buy", 0.5, "creator buy in SOL")
	cmd.Flags().Float64Var(&buySol, "buy", 0.1, "per-wallet buy in SOL")
	cmd.Flags().StringVar(&lookupTable, "lookup-table", "", "address lookup table to compile against")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("symbol")

	return cmd
}
