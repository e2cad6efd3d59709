package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var referencesQuery string

func init() {
	referencesCmd.Flags().StringVarP(&referencesQuery, "query", "q", "", "case-insensitive product name filter")
	rootCmd.AddCommand(referencesCmd)
}

var referencesCmd = &cobra.Command{
	Use:   "references [--query <text>]",
	Short: "Lists the reference-price table, cheapest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().References(cmd.Context(), referencesQuery)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tPRICE\tUPDATED")
		for _, e := range resp.Prices {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", e.Name, e.Price, e.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		s := resp.Stats
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d products  lowest %.2f  highest %.2f  average %.2f\n",
			s.Count, s.Lowest, s.Highest, s.Average)
		return nil
	},
}
