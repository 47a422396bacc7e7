// Package benchmarks provides timing benchmark infrastructure for apexsim.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/core"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsCommitted is the number of retired instructions
	InstructionsCommitted uint64 `json:"instructions_committed"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// NoDispatchCycles counts cycles nothing entered the ROB
	NoDispatchCycles uint64 `json:"no_dispatch_cycles"`

	// NoIssueCycles counts cycles in which nothing issued
	NoIssueCycles uint64 `json:"no_issue_cycles"`

	// PipelineFlushes is the number of misprediction flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// Error is the fault or failed check, empty on success
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares data memory before the run
	Setup func(memory *emu.Memory)

	// Source is the APEX assembly text
	Source string

	// Check validates the final state, returning an error on mismatch
	Check func(c *core.Core) error
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Superscalar sizes the core
	Superscalar pipeline.SuperscalarConfig

	// Timing sets the functional-unit latencies (nil uses defaults)
	Timing *latency.TimingConfig

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Superscalar: pipeline.DefaultSuperscalarConfig(),
		Output:      os.Stdout,
	}
}

// Harness runs benchmarks and collects timing results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh core.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	prog, err := loader.LoadReader(strings.NewReader(bench.Source))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	memory := emu.NewMemory()
	if bench.Setup != nil {
		bench.Setup(memory)
	}

	timing := h.config.Timing
	if timing == nil {
		timing = latency.DefaultTimingConfig()
	}

	c, err := core.NewCore(memory,
		pipeline.WithSuperscalar(h.config.Superscalar),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(timing)),
	)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	c.Load(prog)

	start := time.Now()
	err = c.Run()
	result.WallTime = time.Since(start)

	switch {
	case err != nil:
		result.Error = err.Error()
	case !c.Halted():
		result.Error = "program ended without HALT"
	case bench.Check != nil:
		if err := bench.Check(c); err != nil {
			result.Error = err.Error()
		}
	}

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsCommitted = stats.Committed
	result.CPI = stats.CPI()
	result.NoDispatchCycles = stats.NoDispatchCycles
	result.NoIssueCycles = stats.NoIssueCycles
	result.PipelineFlushes = stats.Flushes

	bpStats := c.Pipeline.BranchPredictorStats()
	result.BranchPredictions = bpStats.Predictions
	result.BranchCorrect = bpStats.Correct
	result.BranchMispredictions = bpStats.Mispredictions
	result.BranchAccuracyPercent = bpStats.Accuracy()

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintf(out, "=== apexsim Timing Benchmark Results ===\n\n")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:       %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Committed: %d\n", r.InstructionsCommitted)
		_, _ = fmt.Fprintf(out, "  CPI:                    %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  No-dispatch Cycles:     %d\n", r.NoDispatchCycles)
		_, _ = fmt.Fprintf(out, "  No-issue Cycles:        %d\n", r.NoIssueCycles)
		_, _ = fmt.Fprintf(out, "  Pipeline Flushes:       %d\n", r.PipelineFlushes)

		if h.config.Verbose && r.BranchPredictions > 0 {
			_, _ = fmt.Fprintf(out, "  Branch Predictor:\n")
			_, _ = fmt.Fprintf(out, "    Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(out, "    Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(out, "    Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(out, "    Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n\n", r.WallTime)
	}
}

// PrintCSV outputs benchmark results in CSV format.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "name,cycles,instructions,cpi,no_dispatch,no_issue,flushes,mispredictions")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s,%d,%d,%.3f,%d,%d,%d,%d\n",
			r.Name, r.SimulatedCycles, r.InstructionsCommitted, r.CPI,
			r.NoDispatchCycles, r.NoIssueCycles, r.PipelineFlushes, r.BranchMispredictions)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
