// Package main provides the entry point for apexsim, a cycle-accurate
// simulator of the APEX out-of-order core.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/core"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var defaults = pipeline.DefaultSuperscalarConfig()

var (
	configPath  = flag.String("config", "", "Path to timing configuration JSON file")
	issueWidth  = flag.Int("issue-width", defaults.IssueWidth, "Instructions issued per cycle")
	commitWidth = flag.Int("commit-width", defaults.CommitWidth, "Instructions committed per cycle")
	iqSize      = flag.Int("iq-size", defaults.IQSize, "Issue queue entries")
	robSize     = flag.Int("rob-size", defaults.ROBSize, "Reorder buffer entries")
	physRegs    = flag.Int("phys-regs", defaults.PhysRegs, "Physical registers")
	cycles      = flag.Uint64("cycles", 0, "Simulate this many cycles, print stats and exit (0 = interactive)")
	runToHalt   = flag.Bool("run", false, "Simulate until HALT, print stats and exit")
	verbose     = flag.Int("v", 0, "Log verbosity (1 logs commits, flushes and stalls)")
	trace       = flag.Bool("trace", false, "Log every dispatch, issue, completion, commit and flush")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: apexsim [options] <program.asm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(*verbose)
	logger.V(1).Info("loaded program",
		"path", programPath, "entry", prog.EntryPoint, "instructions", len(prog.Instructions))

	c, err := buildCore(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring core: %v\n", err)
		os.Exit(1)
	}
	c.Load(prog)

	if *trace {
		c.Pipeline.AcceptHook(newTraceHook(logger))
	}

	sh := newShell(c, os.Stdout)

	switch {
	case *runToHalt:
		if err := c.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Simulation stopped: %v\n", err)
		}
		sh.printStats()
	case *cycles > 0:
		sh.simulate(*cycles)
		sh.printStats()
	default:
		sh.interactive(bufio.NewScanner(os.Stdin))
	}

	if c.Err() != nil {
		os.Exit(1)
	}
}

func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func buildCore(logger logr.Logger) (*core.Core, error) {
	timingConfig := latency.DefaultTimingConfig()
	if *configPath != "" {
		var err error
		timingConfig, err = latency.LoadConfig(*configPath)
		if err != nil {
			return nil, fmt.Errorf("loading timing config: %w", err)
		}
	}

	coreConfig := pipeline.SuperscalarConfig{
		IssueWidth:  *issueWidth,
		CommitWidth: *commitWidth,
		IQSize:      *iqSize,
		ROBSize:     *robSize,
		PhysRegs:    *physRegs,
	}

	return core.NewCore(
		emu.NewMemory(),
		pipeline.WithSuperscalar(coreConfig),
		pipeline.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
		pipeline.WithLogger(logger.WithName("core")),
	)
}
