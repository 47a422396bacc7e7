// Package core provides the cycle-accurate APEX core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// Frequency is the core clock.
	Frequency sim.Freq
	// SimulatedSeconds is the simulated time at Frequency.
	SimulatedSeconds float64
}

// Core represents a cycle-accurate APEX core model: the out-of-order
// pipeline, its data memory and the loaded program.
type Core struct {
	// Pipeline is the underlying out-of-order pipeline.
	Pipeline *pipeline.Pipeline

	memory  *emu.Memory
	program *loader.Program
}

// NewCore creates a new Core operating on memory.
func NewCore(memory *emu.Memory, opts ...pipeline.PipelineOption) (*Core, error) {
	pipe, err := pipeline.NewPipeline(memory, opts...)
	if err != nil {
		return nil, err
	}

	return &Core{
		Pipeline: pipe,
		memory:   memory,
	}, nil
}

// Load places prog in code memory and points the PC at its entry.
func (c *Core) Load(prog *loader.Program) {
	c.program = prog
	c.Pipeline.LoadProgram(prog.Instructions)
	c.Pipeline.SetPC(prog.EntryPoint)
}

// Program returns the loaded program, or nil.
func (c *Core) Program() *loader.Program {
	return c.program
}

// Memory returns the data memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint64) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true once HALT has committed or a fault stopped the core.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Err returns the fault that stopped the core, if any.
func (c *Core) Err() error {
	return c.Pipeline.Err()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	freq := c.Pipeline.LatencyTable().Frequency()

	return Stats{
		Statistics:       s,
		Frequency:        freq,
		SimulatedSeconds: float64(s.Cycles) / float64(freq),
	}
}

// Run executes the core until it halts or runs out of instructions.
func (c *Core) Run() error {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Reset clears all core state. With clearMemory the data memory is zeroed
// as well.
func (c *Core) Reset(clearMemory bool) {
	c.Pipeline.Reset()
	if clearMemory {
		c.memory.Reset()
	}
	if c.program != nil {
		c.Pipeline.SetPC(c.program.EntryPoint)
	}
}

// DefaultFrequency returns the clock of the default timing configuration.
func DefaultFrequency() sim.Freq {
	return latency.NewTable().Frequency()
}
