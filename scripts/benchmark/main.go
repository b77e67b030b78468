package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/pricerank/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:5001", "pricerank API base URL")
	items  = flag.String("items", "J0000037910", "Comma-separated item ids")
	runs   = flag.Int("runs", 3, "Number of runs per item for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	WallMs     int64  `json:"wall_ms"`
	HTTPStatus int    `json:"http_status"`
	Rows       int    `json:"rows"`
	Sentinels  int    `json:"sentinels"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type itemAverages struct {
	TotalMs float64 `json:"total_ms"`
	WallMs  float64 `json:"wall_ms"`
	Rows    float64 `json:"rows"`
}

type itemResult struct {
	ItemID   string        `json:"item_id"`
	Header   string        `json:"header,omitempty"`
	Runs     []runResult   `json:"runs"`
	Averages *itemAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerItem int          `json:"runs_per_item"`
	Results     []itemResult `json:"results"`
}

func main() {
	flag.Parse()

	ids := splitItems(*items)
	fmt.Println("=== pricerank benchmark ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Items:      %d\n", len(ids))
	fmt.Printf("Runs/item:  %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure pricerank is running (go run ./cmd/pricerank)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerItem: *runs,
	}

	client := &http.Client{Timeout: 90 * time.Second}
	for _, id := range ids {
		fmt.Printf("Benchmarking %s ...\n", id)
		ir := itemResult{ItemID: id}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr, header := benchmarkItem(client, id, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d rows\n", rr.TotalMs, rr.Rows)
				ir.Header = header
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ir.Runs = append(ir.Runs, rr)
		}

		ir.Averages = computeAverages(ir.Runs)
		report.Results = append(report.Results, ir)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func splitItems(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkItem(client *http.Client, id string, run int) (runResult, string) {
	rr := runResult{Run: run}
	start := time.Now()

	resp, err := client.Get(*apiURL + "/api/v1/rankings?" + url.Values{"itemId": {id}}.Encode())
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr, ""
	}
	defer resp.Body.Close()

	var rankResp models.RankingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&rankResp); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr, ""
	}

	rr.WallMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode
	rr.Success = rankResp.Success
	rr.TotalMs = rankResp.Timing.TotalMs
	rr.Rows = len(rankResp.Rankings)
	rr.Sentinels = countSentinels(rankResp.Rankings)
	if rankResp.Error != nil {
		rr.Error = rankResp.Error.Message
	}
	return rr, rankResp.Header
}

// countSentinels counts fields that fell back to a placeholder; a jump
// usually means the page markup changed.
func countSentinels(rows []models.RankingEntry) int {
	n := 0
	for _, r := range rows {
		for _, v := range []string{r.Price, r.Shipping, r.Stock, r.ShopName, r.ShopURL, r.ShopArea} {
			switch v {
			case models.NoPrice, models.NoShipping, models.NoStock, models.NoShopName, models.NoShopURL, models.NoShopArea:
				n++
			}
		}
	}
	return n
}

func computeAverages(runs []runResult) *itemAverages {
	var successCount int
	var avg itemAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.WallMs += float64(r.WallMs)
		avg.Rows += float64(r.Rows)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.WallMs /= n
	avg.Rows /= n
	return &avg
}

func printTable(results []itemResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Item\tTitle\tAvg Latency\tRows\tPlaceholders\n")
	fmt.Fprintf(w, "────\t─────\t───────────\t────\t────────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", r.ItemID)
			continue
		}
		last := r.Runs[len(r.Runs)-1]
		fmt.Fprintf(w, "%s\t%s\t%dms\t%.0f\t%d\n",
			r.ItemID,
			truncate(r.Header, 30),
			int64(r.Averages.TotalMs),
			r.Averages.Rows,
			last.Sentinels,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
