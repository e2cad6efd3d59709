package commands

import (
	"fmt"

	"github.com/pokebim/pricewatch/models"
	"github.com/spf13/cobra"
)

var priceStrategy string

func init() {
	priceCmd.Flags().StringVar(&priceStrategy, "strategy", models.StrategyAuto, "auto, direct, proxy, scraper or browser")
	rootCmd.AddCommand(priceCmd)
}

var priceCmd = &cobra.Command{
	Use:   "price <product-url> [--strategy <name>]",
	Short: "Prints the lowest listing price of a product page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Price(cmd.Context(), args[0], priceStrategy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f %s", resp.Price, models.Currency)
		if resp.Strategy != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\t(%s)", resp.Strategy)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}
