// Command benchmark runs the apexsim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv          Output results in CSV format (default: human-readable)
//	-json         Output results as JSON
//	-config       Path to timing configuration JSON file
//	-issue-width  Instructions issued per cycle
//	-core         Run only the core subset
//
// Example:
//
//	# Compare a single-issue core with the default
//	go run ./cmd/benchmark -issue-width 1 -csv > narrow.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/apexsim/benchmarks"
	"github.com/sarchlab/apexsim/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	configPath := flag.String("config", "", "Path to timing configuration JSON file")
	issueWidth := flag.Int("issue-width", 0, "Instructions issued per cycle (0 keeps the default)")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	verbose := flag.Bool("v", false, "Include branch predictor details")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	config.Verbose = *verbose
	if *issueWidth > 0 {
		config.Superscalar.IssueWidth = *issueWidth
	}
	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("apexsim Timing Benchmark Harness")
		fmt.Println("================================")
		fmt.Printf("Issue width: %d\n", config.Superscalar.IssueWidth)
		fmt.Printf("IQ/ROB/phys: %d/%d/%d\n",
			config.Superscalar.IQSize, config.Superscalar.ROBSize, config.Superscalar.PhysRegs)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	for _, r := range results {
		if r.Error != "" {
			os.Exit(1)
		}
	}
}
