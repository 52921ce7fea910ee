package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/smartpick/models"
)

var (
	apiURL = flag.String("api-url", "http://localhost:8080", "SmartPick API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "number of runs per page for averaging")
	mode   = flag.String("mode", "http", "fetch mode: http, browser or auto")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Detail pages covering a spread of page layouts.
var testPages = []struct {
	Label string
	URL   string
}{
	{"Flagship", "https://www.gsmarena.com/samsung_galaxy_s24_ultra-12771.php"},
	{"Midrange", "https://www.gsmarena.com/xiaomi_redmi_note_13-12776.php"},
	{"Apple", "https://www.gsmarena.com/apple_iphone_16-13317.php"},
	{"Legacy", "https://www.gsmarena.com/nokia_3310-192.php"},
	{"Rumored", "https://www.gsmarena.com/nothing_phone_(3a)-13636.php"},
}

type runResult struct {
	Run       int    `json:"run"`
	LatencyMs int64  `json:"latency_ms"`
	Found     int    `json:"found"`
	Missing   int    `json:"missing"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type pageResult struct {
	URL          string      `json:"url"`
	Label        string      `json:"label"`
	Runs         []runResult `json:"runs"`
	AvgLatencyMs float64     `json:"avg_latency_ms"`
	Coverage     float64     `json:"coverage"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	FetchMode   string       `json:"fetch_mode"`
	RunsPerPage int          `json:"runs_per_page"`
	Results     []pageResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== SmartPick Extraction Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Mode:      %s\n", *mode)
	fmt.Printf("Runs/page: %d\n", *runs)
	fmt.Println()

	client := resty.New().SetBaseURL(*apiURL).SetTimeout(90 * time.Second)
	if *apiKey != "" {
		client.SetAuthToken(*apiKey)
	}

	if _, err := client.R().Get("/api/v1/health"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure smartpick is running (smartpick serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		FetchMode:   *mode,
		RunsPerPage: *runs,
	}

	for _, p := range testPages {
		fmt.Printf("Benchmarking [%s] %s ...\n", p.Label, p.URL)
		pr := pageResult{URL: p.URL, Label: p.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkPage(client, p.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d/%d fields\n", rr.LatencyMs, rr.Found, rr.Found+rr.Missing)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			pr.Runs = append(pr.Runs, rr)
		}

		pr.AvgLatencyMs, pr.Coverage = averages(pr.Runs)
		report.Results = append(report.Results, pr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func benchmarkPage(client *resty.Client, pageURL string, run int) runResult {
	rr := runResult{Run: run}

	var resp models.DeviceResponse
	start := time.Now()
	_, err := client.R().
		SetBody(models.DeviceRequest{URL: pageURL, FetchMode: *mode}).
		SetResult(&resp).
		SetError(&resp).
		Post("/api/v1/device")
	rr.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	if !resp.Success || resp.Device == nil {
		rr.Error = "unknown error"
		if resp.Error != nil {
			rr.Error = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
		}
		return rr
	}

	rr.Success = true
	rr.Missing = len(resp.Missing)
	rr.Found = coreFields - rr.Missing
	return rr
}

// coreFields is the number of record fields reported as missing when absent.
const coreFields = 8

func averages(runs []runResult) (latencyMs, coverage float64) {
	n := 0
	for _, r := range runs {
		if !r.Success {
			continue
		}
		n++
		latencyMs += float64(r.LatencyMs)
		coverage += float64(r.Found) / coreFields
	}
	if n == 0 {
		return 0, 0
	}
	return latencyMs / float64(n), coverage / float64(n) * 100
}

func printTable(results []pageResult) {
	fmt.Println(strings.Repeat("─", 72))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Page\tAvg Latency\tField Coverage\tRuns OK\n")
	fmt.Fprintf(w, "────\t───────────\t──────────────\t───────\n")

	for _, r := range results {
		ok := 0
		for _, run := range r.Runs {
			if run.Success {
				ok++
			}
		}
		if ok == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t-\t0/%d\n", r.Label, len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.0f%%\t%d/%d\n", r.Label, int64(r.AvgLatencyMs), r.Coverage, ok, len(r.Runs))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 72))
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
