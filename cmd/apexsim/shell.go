package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/apexsim/timing/core"
)

var errUsage = errors.New("usage")

const helpText = `Commands:
  simulate N               advance N cycles
  display [all]            show registers, issue queue, ROB and stats
  display regs             show architectural registers
  display mem A1 A2        show data memory from A1 to A2
  display iq               show the issue queue
  display rob              show the reorder buffer
  display stats            same as stats
  stats                    show statistics
  initialize               reset the core and data memory
  help                     show this text
  quit                     exit
`

// shell drives a core from text commands.
type shell struct {
	core *core.Core
	out  io.Writer
}

func newShell(c *core.Core, out io.Writer) *shell {
	return &shell{core: c, out: out}
}

// interactive reads commands until quit or end of input.
func (sh *shell) interactive(in *bufio.Scanner) {
	fmt.Fprint(sh.out, "apexsim> ")
	for in.Scan() {
		quit, err := sh.execute(in.Text())
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
		if quit {
			return
		}
		fmt.Fprint(sh.out, "apexsim> ")
	}
}

// execute runs one command line. It reports whether the shell should exit.
func (sh *shell) execute(line string) (bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "simulate", "sim":
		if len(fields) != 2 {
			return false, fmt.Errorf("%w: simulate N", errUsage)
		}
		n, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return false, fmt.Errorf("%w: simulate N: %v", errUsage, err)
		}
		sh.simulate(n)
	case "display":
		return false, sh.display(fields[1:])
	case "stats":
		sh.printStats()
	case "initialize", "init":
		sh.core.Reset(true)
		fmt.Fprintln(sh.out, "core initialized")
	case "help":
		fmt.Fprint(sh.out, helpText)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}

	return false, nil
}

func (sh *shell) simulate(n uint64) {
	running := sh.core.RunCycles(n)
	fmt.Fprintf(sh.out, "cycle %d\n", sh.core.Pipeline.Cycle())

	switch {
	case sh.core.Err() != nil:
		fmt.Fprintf(sh.out, "core stopped: %v\n", sh.core.Err())
	case !running:
		fmt.Fprintln(sh.out, "HALT committed")
	}
}

func (sh *shell) display(args []string) error {
	what := "all"
	if len(args) > 0 {
		what = args[0]
	}

	switch what {
	case "all":
		if err := sh.printRegs(); err != nil {
			return err
		}
		sh.printIQ()
		sh.printROB()
		sh.printStats()
		return nil
	case "regs":
		return sh.printRegs()
	case "mem":
		if len(args) != 3 {
			return fmt.Errorf("%w: display mem A1 A2", errUsage)
		}
		a1, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: display mem A1 A2: %v", errUsage, err)
		}
		a2, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: display mem A1 A2: %v", errUsage, err)
		}
		return sh.core.Memory().Display(sh.out, int32(a1), int32(a2))
	case "iq":
		sh.printIQ()
		return nil
	case "rob":
		sh.printROB()
		return nil
	case "stats":
		sh.printStats()
		return nil
	default:
		return fmt.Errorf("%w: display [all|regs|mem A1 A2|iq|rob|stats]", errUsage)
	}
}

func (sh *shell) printRegs() error {
	fmt.Fprintf(sh.out, "Registers (zero flag %t):\n", sh.core.Pipeline.ZeroFlag())
	return sh.core.Pipeline.RegisterFile().Display(sh.out)
}

func (sh *shell) printIQ() {
	iq := sh.core.Pipeline.IssueQueue()
	fmt.Fprintf(sh.out, "Issue queue (%d/%d):\n", iq.Len(), iq.Cap())
	for _, s := range iq.Entries() {
		fmt.Fprintf(sh.out, "  %s ready=%t\n", s, s.Ready)
	}
}

func (sh *shell) printROB() {
	rob := sh.core.Pipeline.ReorderBuffer()
	fmt.Fprintf(sh.out, "Reorder buffer (%d/%d):\n", rob.Len(), rob.Cap())
	for _, e := range rob.Entries() {
		fmt.Fprintf(sh.out, "  %s issued=%t valid=%t\n", e.Stage, e.Issued, e.Valid)
	}
}

func (sh *shell) printStats() {
	stats := sh.core.Stats()

	fmt.Fprintf(sh.out, "\n")
	fmt.Fprintf(sh.out, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(sh.out, "Simulated time: %.3f us\n", stats.SimulatedSeconds*1e6)
	fmt.Fprintf(sh.out, "Dispatched: %d\n", stats.Dispatched)
	fmt.Fprintf(sh.out, "No-dispatch cycles: %d\n", stats.NoDispatchCycles)
	fmt.Fprintf(sh.out, "Issued: %d\n", stats.Issued)
	fmt.Fprintf(sh.out, "No-issue cycles: %d\n", stats.NoIssueCycles)
	fmt.Fprintf(sh.out, "Branches resolved: %d\n", stats.Resolved)
	fmt.Fprintf(sh.out, "Committed: %d\n", stats.Committed)
	fmt.Fprintf(sh.out, "Committed loads: %d\n", stats.CommittedLoads)
	fmt.Fprintf(sh.out, "Committed stores: %d\n", stats.CommittedStores)
	fmt.Fprintf(sh.out, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(sh.out, "\n")
	fmt.Fprintf(sh.out, "Pipeline Events:\n")
	fmt.Fprintf(sh.out, "  Branch predictions:    %d\n", stats.BranchPredictions)
	fmt.Fprintf(sh.out, "  Branch mispredictions: %d\n", stats.BranchMispredictions)
	fmt.Fprintf(sh.out, "  Flushes:               %d\n", stats.Flushes)
}
