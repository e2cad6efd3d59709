package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	refreshCatalog     string
	refreshConcurrency int
	refreshDryRun      bool
)

func init() {
	refreshCmd.Flags().StringVar(&refreshCatalog, "catalog", "products.yaml", "YAML catalog of products to price")
	refreshCmd.Flags().IntVar(&refreshConcurrency, "concurrency", 2, "lookups in flight at once")
	refreshCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "print the prices without updating the server")
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [--catalog <products.yaml>] [--concurrency N] [--dry-run]",
	Short: "Prices every catalog product and replaces the server's reference table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := LoadCatalog(refreshCatalog)
		if err != nil {
			return err
		}

		c := newClient()
		t1 := time.Now()
		prices, failures, err := Collect(cmd.Context(), c, catalog, refreshConcurrency)
		if err != nil {
			return err
		}
		slog.Info("catalog priced",
			"priced", len(prices),
			"failed", len(failures),
			"seconds", time.Since(t1).Seconds(),
		)
		for _, f := range failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED\t%s\t%v\n", f.Name, f.Err)
		}

		if len(prices) == 0 {
			return eris.New("no product could be priced, reference table left untouched")
		}
		if refreshDryRun {
			for _, p := range catalog.Products {
				if v, ok := prices[p.Name]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f\n", p.Name, v)
				}
			}
			return nil
		}

		resp, err := c.UpdatePrices(cmd.Context(), prices, time.Now())
		if err != nil {
			return eris.Wrap(err, "update reference table")
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	},
}
