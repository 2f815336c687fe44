// Command avwxctl runs one-shot weather queries against the live
// aviationweather.gov API: a risk assessment, a plain-language briefing,
// decoded observations, station lookups, or an upstream health probe.
//
// Usage:
//
//	go run ./cmd/avwxctl -stations KJFK,KBOS assess
//	go run ./cmd/avwxctl -stations KJFK decode
//	go run ./cmd/avwxctl -stations KJFK,KBOS,KORD stations
//	go run ./cmd/avwxctl health
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/skybrief/avwx-risk/internal/adapter/aviationwx"
	"github.com/skybrief/avwx-risk/internal/domain"
	"github.com/skybrief/avwx-risk/internal/observability"
	"github.com/skybrief/avwx-risk/internal/risk"
)

func main() {
	stations := flag.String("stations", "", "comma-separated ICAO station identifiers")
	baseURL := flag.String("base-url", "", "override upstream base URL")
	timeout := flag.Duration("timeout", 15*time.Second, "per-attempt upstream timeout")
	verbose := flag.Bool("v", false, "log upstream activity to stderr")
	flag.Parse()

	mode := flag.Arg(0)
	if mode == "" {
		mode = "assess"
	}

	if code := run(mode, splitStations(*stations), *baseURL, *timeout, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(mode string, stations []string, baseURL string, timeout time.Duration, verbose bool) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	// Unregistered metrics: a one-shot run has nothing scraping them.
	metrics := observability.NewMetricsForTesting()
	client := aviationwx.NewClient(aviationwx.Config{
		BaseURL: baseURL,
		Timeout: timeout,
	}, nil, nil, metrics, logger)
	assessor := risk.NewAssessor(client, nil, nil, clockwork.NewRealClock(), metrics, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch mode {
	case "assess":
		return runAssess(ctx, assessor, stations)
	case "briefing":
		return runBriefing(ctx, assessor, stations)
	case "decode":
		return runDecode(ctx, client, stations)
	case "stations":
		return runStations(ctx, client, stations)
	case "health":
		return runHealth(ctx, client)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want assess, briefing, decode, stations, or health)\n", mode)
		return 2
	}
}

func requireStations(stations []string) bool {
	if len(stations) == 0 {
		fmt.Fprintln(os.Stderr, "no stations given; use -stations KJFK,KBOS")
		return false
	}
	return true
}

func runAssess(ctx context.Context, assessor *risk.Assessor, stations []string) int {
	if !requireStations(stations) {
		return 2
	}

	assessment := assessor.ScoreRisk(ctx, stations)
	if assessment.Error != "" {
		fmt.Fprintf(os.Stderr, "assessment degraded: %s\n", assessment.Error)
		return 1
	}

	fmt.Printf("=== Risk Assessment: %s ===\n\n", strings.Join(stations, ", "))
	fmt.Printf("Overall score: %d/100 (%s)\n\n", assessment.OverallScore, assessment.Band.Label)

	fmt.Println("Parameter scores:")
	params := []domain.RiskParameter{
		domain.ParamVisibility, domain.ParamCeiling, domain.ParamWind,
		domain.ParamTemperature, domain.ParamTurbulence, domain.ParamIcing,
		domain.ParamSIGMET, domain.ParamAFD,
	}
	for _, p := range params {
		fmt.Printf("  %-12s %5.1f\n", p, assessment.ParameterScores[p])
	}

	fmt.Println("\nRecommendations:")
	for _, rec := range assessment.Recommendations {
		fmt.Printf("  [%s] %s: %s\n", rec.Priority, rec.Category, rec.Message)
	}
	return 0
}

func runBriefing(ctx context.Context, assessor *risk.Assessor, stations []string) int {
	if !requireStations(stations) {
		return 2
	}

	text, err := assessor.Briefing(ctx, stations)
	if err != nil {
		fmt.Fprintf(os.Stderr, "briefing failed: %v\n", err)
		return 1
	}
	fmt.Println(text)
	return 0
}

func runDecode(ctx context.Context, client *aviationwx.Client, stations []string) int {
	if !requireStations(stations) {
		return 2
	}

	exit := 0
	for _, station := range stations {
		data, err := client.DecodedMETAR(ctx, station, 2)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", station, err)
			exit = 1
			continue
		}
		if len(data.Decoded) == 0 {
			fmt.Printf("%s: no recent observations\n", station)
			continue
		}
		for _, d := range data.Decoded {
			if d.Error != "" {
				fmt.Printf("%s: decode failed: %s\n", d.Station, d.Error)
				continue
			}
			fmt.Printf("=== %s ===\n%s\n\n  %s\n\n", d.Station, d.Summary, d.RawText)
		}
	}
	return exit
}

func runStations(ctx context.Context, client *aviationwx.Client, stations []string) int {
	if !requireStations(stations) {
		return 2
	}

	data := client.FetchMultipleStations(ctx, stations)
	for _, id := range data.Route {
		lookup := data.Stations[id]
		if lookup.Error != "" {
			fmt.Printf("  %-6s %s\n", id, lookup.Error)
			continue
		}
		fmt.Printf("  %-6s %s, %s %s\n", id, lookup.Info.Site, lookup.Info.State, lookup.Info.Country)
	}
	return 0
}

func runHealth(ctx context.Context, client *aviationwx.Client) int {
	status := client.HealthCheck(ctx)

	fmt.Println("=== Upstream Health ===")
	for kind, state := range status.Endpoints {
		fmt.Printf("  %-12s %s\n", kind, state)
	}
	if !status.Healthy {
		fmt.Println("\nOne or more endpoints are unhealthy.")
		return 1
	}
	fmt.Println("\nAll endpoints healthy.")
	return 0
}

func splitStations(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
