package request

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/asyncsock/cmd/util"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	// PerfCmd benchmarks an asyncsock server with the built-in handlers
	PerfCmd = &cobra.Command{
		Use:               "perf",
		Short:             "Performance testing tool for asyncsock servers",
		Long:              "Runs parallel request benchmarks against the built-in handlers of asyncsock serve (ping, echo, echo-large, sleep, forward)",
		PersistentPreRunE: setupPerf,
		PersistentPostRun: closeClient,
		RunE:              runPerf,
	}
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfSleepMs          = 1
	perfSkip             = make([]string, 0)

	latencyPercentiles = []float64{0.5, 0.99}
)

func init() {
	util.SetupRPCClientFlags(PerfCmd)

	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. sleep,forward)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How large the payload of the echo-large test should be (in KB)"))
	key = "sleep-ms"
	PerfCmd.Flags().Int(key, 1, util.WrapString("Delay requested from the sleep handler (in milliseconds)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func setupPerf(cmd *cobra.Command, args []string) error {
	if err := setupClient(cmd, args); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfNumThreads = viper.GetInt("threads")
	perfSleepMs = viper.GetInt("sleep-ms")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfCase is one benchmark: a request type and its payload
type perfCase struct {
	name    string
	reqType string
	payload any
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for asyncsock servers")

	// Print configuration
	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	cases := []perfCase{
		{name: "ping", reqType: "ping"},
		{name: "echo", reqType: "echo", payload: map[string]string{"value": "test"}},
		{name: "echo-large", reqType: "echo", payload: map[string]string{"value": largeValue}},
		{name: "sleep", reqType: "sleep", payload: map[string]int{"ms": perfSleepMs}},
		{name: "forward", reqType: "forward", payload: map[string]string{"value": "test"}},
	}

	// forward asks the client back with echo
	if err := rpcClient.OnRequest("echo", func(_ context.Context, req *engine.Request) (any, error) {
		return req.Content, nil
	}); err != nil {
		return err
	}

	results := make(map[string]testing.BenchmarkResult)
	latencies := make(map[string]gometrics.Timer)
	for _, c := range cases {
		timer := gometrics.NewTimer()
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(c.name) {
				return
			}

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					start := time.Now()
					ctx, cancel := requestContext()
					err := rpcClient.Invoke(ctx, c.reqType, c.payload, nil)
					cancel()
					timer.UpdateSince(start)
					if err != nil {
						log.Printf("(%s) - request failed: %v\n", c.name, err)
					}
				}
			})
		})

		timer.Stop()

		results[c.name] = result
		latencies[c.name] = timer
		printResult(c.name, result, timer)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, latencies, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way.
// The latency percentiles are measured per request, across all threads.
func printResult(test string, result testing.BenchmarkResult, latency gometrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	ps := latency.Percentiles(latencyPercentiles)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, latencies map[string]gometrics.Timer, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Skipped",
		"Endpoint", "TimeoutSec", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "SleepMs",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"
		ps := latencies[test].Percentiles(latencyPercentiles)

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			skipped,
			config.Transport.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfSleepMs),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
