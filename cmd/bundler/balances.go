package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soltools/bundler/internal/chain"
)

func newBalancesCmd() *cobra.Command {
	var mintStr string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show SOL and token balances for every wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			for _, w := range a.wallets {
				sol, err := a.chain.GetBalance(ctx, w.PublicKey)
				if err != nil {
					return fmt.Errorf("failed to read balance of %s: %w", w.PublicKey, err)
				}

				line := fmt.Sprintf("%-12s %s  %.4f SOL", w.Name, w.PublicKey, float64(sol)/lamportsPerSol)

				if mintStr != "" {
					mint, err := parseMint(mintStr)
					if err != nil {
						return err
					}
					ata, err := w.GetATA(mint)
					if err != nil {
						return err
					}
					tokens, err := a.chain.GetTokenBalance(ctx, ata)
					if err != nil && !chain.IsAccountNotFoundError(err) {
						return err
					}
					line += fmt.Sprintf("  %d tokens", tokens)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "also show balances of this token mint")
	return cmd
}
