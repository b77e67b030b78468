package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/pricerank/models"
)

func main() {
	apiURL := os.Getenv("PRICERANK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5001"
	}

	s := server.NewMCPServer(
		"pricerank",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	getRankingsTool := mcp.NewTool("get_rankings",
		mcp.WithDescription("Fetch a kakaku.com product page and return its seller price ranking (rank, price, shipping, stock, shop) as JSON. The page snapshot and a CSV export are saved on the server."),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The product identifier, e.g. J0000037910"),
		),
	)
	s.AddTool(getRankingsTool, handleGetRankings(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleGetRankings(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}
	apiURL = strings.TrimRight(apiURL, "/")

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		itemID, err := request.RequireString("item_id")
		if err != nil || strings.TrimSpace(itemID) == "" {
			return mcp.NewToolResultError("item_id is required"), nil
		}

		endpoint := apiURL + "/api/v1/rankings?" + url.Values{"itemId": {itemID}}.Encode()
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var rankResp models.RankingsResponse
		if err := json.Unmarshal(respBody, &rankResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response (status %d): %v", resp.StatusCode, err)), nil
		}

		if !rankResp.Success {
			errMsg := "rankings request failed"
			if rankResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", rankResp.Error.Code, rankResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		if len(rankResp.Rankings) == 0 {
			msg := rankResp.Message
			if msg == "" {
				msg = "no rankings found"
			}
			return mcp.NewToolResultText(fmt.Sprintf("%s for item %s", msg, itemID)), nil
		}

		rows, err := json.MarshalIndent(rankResp.Rankings, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format rankings: %v", err)), nil
		}

		result := fmt.Sprintf("Item: %s\nTitle: %s\nSellers: %d\n\n%s", itemID, rankResp.Header, len(rankResp.Rankings), rows)
		return mcp.NewToolResultText(result), nil
	}
}
