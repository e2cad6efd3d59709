package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pokebim/pricewatch/client"
	"github.com/spf13/cobra"
)

var (
	apiURL   string
	apiToken string
)

var rootCmd = &cobra.Command{
	Use:   "pricectl",
	Short: "pricectl queries a pricewatch server and refreshes its reference prices.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if apiURL == "" {
			apiURL = os.Getenv("PRICEWATCH_API_URL")
		}
		if apiToken == "" {
			apiToken = os.Getenv("PRICE_UPDATE_TOKEN")
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "pricewatch base URL (default $PRICEWATCH_API_URL or "+client.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bearer token for updates (default $PRICE_UPDATE_TOKEN)")
}

func newClient() *client.Client {
	return client.New(client.Options{BaseURL: apiURL, Token: apiToken})
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
