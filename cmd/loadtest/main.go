package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// loadTestConfig drives GET /api/forex-rates against a running service,
// rotating through the given base currencies.
type loadTestConfig struct {
	BaseURL         string
	Bases           []string
	ConcurrentUsers int
	RequestsPerUser int
	Timeout         time.Duration
	RampUp          time.Duration
	ThinkTime       time.Duration
}

type requestResult struct {
	StatusCode int
	Source     string
	Duration   time.Duration
	Err        error
}

type loadTestSummary struct {
	TotalRequests     int
	Succeeded         int
	RateLimited       int
	Failed            int
	BySource          map[string]int
	TotalDuration     time.Duration
	RequestsPerSecond float64
	Average           time.Duration
	P95               time.Duration
	P99               time.Duration
	Max               time.Duration
}

func main() {
	var config loadTestConfig
	var bases string

	flag.StringVar(&config.BaseURL, "url", "http://localhost:8081", "Service base URL")
	flag.StringVar(&bases, "bases", "SEK,USD,EUR,GBP,NOK", "Comma-separated base currencies")
	flag.IntVar(&config.ConcurrentUsers, "users", 10, "Number of concurrent users")
	flag.IntVar(&config.RequestsPerUser, "requests", 100, "Number of requests per user")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Request timeout")
	flag.DurationVar(&config.RampUp, "rampup", 2*time.Second, "Ramp-up duration")
	flag.DurationVar(&config.ThinkTime, "think", 50*time.Millisecond, "Pause between requests")
	flag.Parse()

	config.Bases = strings.Split(bases, ",")
	if config.ConcurrentUsers <= 0 || config.RequestsPerUser <= 0 {
		fmt.Fprintln(os.Stderr, "users and requests must be positive")
		os.Exit(2)
	}

	fmt.Printf("Load testing %s/api/forex-rates with %d users x %d requests\n\n",
		config.BaseURL, config.ConcurrentUsers, config.RequestsPerUser)

	summary := runLoadTest(context.Background(), config)
	printSummary(summary)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runLoadTest(ctx context.Context, config loadTestConfig) loadTestSummary {
	client := &http.Client{Timeout: config.Timeout}
	results := make(chan requestResult, config.ConcurrentUsers*config.RequestsPerUser)
	rampUpDelay := config.RampUp / time.Duration(config.ConcurrentUsers)

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	for userID := 0; userID < config.ConcurrentUsers; userID++ {
		userID := userID
		group.Go(func() error {
			time.Sleep(time.Duration(userID) * rampUpDelay)

			for requestID := 0; requestID < config.RequestsPerUser; requestID++ {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				base := config.Bases[(userID+requestID)%len(config.Bases)]
				results <- fetchRates(groupCtx, client, config.BaseURL, base)

				if config.ThinkTime > 0 {
					time.Sleep(config.ThinkTime)
				}
			}
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	collected := make([]requestResult, 0, cap(results))
	for result := range results {
		collected = append(collected, result)
	}
	return summarize(collected, time.Since(start))
}

func fetchRates(ctx context.Context, client *http.Client, baseURL, base string) requestResult {
	start := time.Now()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/forex-rates?base="+base, nil)
	if err != nil {
		return requestResult{Err: err}
	}

	response, err := client.Do(request)
	if err != nil {
		return requestResult{Duration: time.Since(start), Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	return requestResult{
		StatusCode: response.StatusCode,
		Source:     gjson.GetBytes(body, "source").String(),
		Duration:   time.Since(start),
		Err:        err,
	}
}

func summarize(results []requestResult, totalDuration time.Duration) loadTestSummary {
	summary := loadTestSummary{
		TotalRequests: len(results),
		BySource:      make(map[string]int),
		TotalDuration: totalDuration,
	}
	if len(results) == 0 {
		return summary
	}

	durations := make([]time.Duration, 0, len(results))
	var total time.Duration
	for _, result := range results {
		durations = append(durations, result.Duration)
		total += result.Duration

		switch {
		case result.Err == nil && result.StatusCode == http.StatusOK:
			summary.Succeeded++
			summary.BySource[result.Source]++
		case result.StatusCode == http.StatusTooManyRequests:
			summary.RateLimited++
		default:
			summary.Failed++
		}
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	summary.Average = total / time.Duration(len(durations))
	summary.P95 = percentile(durations, 95)
	summary.P99 = percentile(durations, 99)
	summary.Max = durations[len(durations)-1]
	if totalDuration > 0 {
		summary.RequestsPerSecond = float64(len(results)) / totalDuration.Seconds()
	}
	return summary
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := len(sorted) * p / 100
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func printSummary(summary loadTestSummary) {
	fmt.Println("=== Load Test Results ===")
	fmt.Printf("Total Requests:      %d\n", summary.TotalRequests)
	fmt.Printf("Succeeded:           %d\n", summary.Succeeded)
	fmt.Printf("Rate Limited (429):  %d\n", summary.RateLimited)
	fmt.Printf("Failed:              %d\n", summary.Failed)
	fmt.Printf("Total Duration:      %v\n", summary.TotalDuration)
	fmt.Printf("Requests per Second: %.2f\n", summary.RequestsPerSecond)
	fmt.Printf("Average:             %v\n", summary.Average)
	fmt.Printf("95th Percentile:     %v\n", summary.P95)
	fmt.Printf("99th Percentile:     %v\n", summary.P99)
	fmt.Printf("Max:                 %v\n", summary.Max)

	sources := make([]string, 0, len(summary.BySource))
	for source := range summary.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	fmt.Println("\n=== Responses by Source ===")
	for _, source := range sources {
		fmt.Printf("%-10s %d\n", source, summary.BySource[source])
	}
}
