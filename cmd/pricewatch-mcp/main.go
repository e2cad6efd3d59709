package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pokebim/pricewatch/client"
	"github.com/pokebim/pricewatch/models"
)

func main() {
	apiURL := os.Getenv("PRICEWATCH_API_URL")
	if apiURL == "" {
		apiURL = client.DefaultBaseURL
	}
	c := client.New(client.Options{BaseURL: apiURL, Timeout: 120 * time.Second})

	s := server.NewMCPServer(
		"pricewatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	lowestPriceTool := mcp.NewTool("lowest_price",
		mcp.WithDescription("Get the lowest listing price (in euros) of a Cardmarket product page. Tries a direct fetch, then a CORS proxy, then a headless browser."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Cardmarket product page URL"),
		),
		mcp.WithString("strategy",
			mcp.Description("Lookup strategy: 'auto' (default, fallback chain), 'direct', 'proxy', 'scraper' or 'browser'"),
			mcp.Enum(models.StrategyAuto, models.StrategyDirect, models.StrategyProxy, models.StrategyScraper, models.StrategyBrowser),
		),
	)
	s.AddTool(lowestPriceTool, handleLowestPrice(c))

	browserPricesTool := mcp.NewTool("browser_prices",
		mcp.WithDescription("Render a Cardmarket product page in a headless browser and list every offer price plus the page's 'From' price."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Cardmarket product page URL"),
		),
	)
	s.AddTool(browserPricesTool, handleBrowserPrices(c))

	referencePricesTool := mcp.NewTool("reference_prices",
		mcp.WithDescription("List the stored reference prices of tracked products, cheapest first, with summary statistics."),
		mcp.WithString("query",
			mcp.Description("Case-insensitive product name filter"),
		),
	)
	s.AddTool(referencePricesTool, handleReferencePrices(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleLowestPrice(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		strategy := request.GetString("strategy", "")

		resp, err := c.Price(ctx, url, strategy)
		if err != nil {
			return toolError(err), nil
		}
		text := fmt.Sprintf("Lowest price: %.2f %s", resp.Price, models.Currency)
		if resp.Strategy != "" {
			text += fmt.Sprintf(" (via %s)", resp.Strategy)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func handleBrowserPrices(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		data, err := c.BrowserPrices(ctx, url)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(data)
	}
}

func handleReferencePrices(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := c.References(ctx, request.GetString("query", ""))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(struct {
			Prices []models.ReferencePrice `json:"prices"`
			Stats  models.ReferenceStats   `json:"stats"`
		}{resp.Prices, resp.Stats})
	}
}

func toolError(err error) *mcp.CallToolResult {
	se := models.AsScrapeError(err)
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", se.Code, se.Message))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
