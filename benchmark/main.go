// Package main benchmarks the blackhat CLI on directories of light curves.
// Each command runs several times without the fit cache and several times with a fresh
// SQLite fit cache; the first cached run is reported as cold and the rest are averaged
// as warm, since they start the optimizer from the cached hyperparameters.
//
// Prerequisites:
// - blackhat binary installed and available in PATH
// - One directory of light-curve CSV files per dataset under the base directory
//
// Usage: go run benchmark/main.go [dataset-base-dir]
//
//	dataset-base-dir: Directory containing the datasets
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	Sources     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	DataBase    string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []string
	Commands    map[string][]string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [dataset-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		DataBase:    os.Args[1],
		Timeout:     10 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets:    []string{"single", "ztf-sample", "plasticc-sample"},
		Commands: map[string][]string{
			"fit":     nil,
			"predict": {"--points", "200"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the blackhat binary and datasets exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("blackhat"); err != nil {
		return fmt.Errorf("blackhat binary not found in PATH")
	}

	for _, dataset := range config.Datasets {
		curves, err := listCurves(filepath.Join(config.DataBase, dataset))
		if err != nil {
			return fmt.Errorf("dataset %s: %w", dataset, err)
		}
		if len(curves) == 0 {
			return fmt.Errorf("dataset %s has no light curves", dataset)
		}
	}
	return nil
}

// listCurves returns the CSV light curves in a dataset directory.
func listCurves(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.csv"))
}

// runBenchmarks executes every command on every dataset
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, dataset := range config.Datasets {
		curves, _ := listCurves(filepath.Join(config.DataBase, dataset))
		fmt.Printf("Benchmarking %s (%d sources)\n", dataset, len(curves))

		for _, command := range []string{"fit", "predict"} {
			result := runBenchmarkSuite(config, dataset, command, curves)
			results = append(results, result)
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, command string, curves []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, dataset)

	cacheDir, err := os.MkdirTemp("", "blackhat-benchmark-*")
	if err != nil {
		fmt.Printf("  Warning: no temp dir for the fit cache: %v\n", err)
	}
	defer func() { _ = os.RemoveAll(cacheDir) }()
	cacheFile := filepath.Join(cacheDir, "fit_cache.db")

	runPhase := func(cacheArgs []string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, command, curves, cacheArgs, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noCacheAvg := runPhase([]string{"--cache-backend", "none"}, config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase([]string{"--cache-backend", "sqlite", "--cache-db-connect", cacheFile}, config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     command,
		Sources:     len(curves),
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a blackhat command numRuns times and returns the cold time and warm times
func runBenchmark(config BenchmarkConfig, command string, curves, cacheArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, "--workers", fmt.Sprint(config.Workers), "--color", "no"}
	args = append(args, cacheArgs...)
	args = append(args, config.Commands[command]...)
	args = append(args, curves...)

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("blackhat", args...)

		done := make(chan bool, 1)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)

	completionPhrase := "Fit completed in"
	if command == "predict" {
		completionPhrase = "Predicted"
	}

	return strings.Contains(outputStr, completionPhrase) &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("blackhat_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "sources", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{result.Dataset, result.Command, fmt.Sprint(result.Sources), result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "fit", "Fit:")
	printCommandSummary(results, "predict", "Predict:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-16s (%4d sources): No-cache: %s, Cold: %s, Warm: %s\n",
				result.Dataset, result.Sources, result.NoCacheTime, result.ColdTime, result.WarmTime)
		}
	}
}
