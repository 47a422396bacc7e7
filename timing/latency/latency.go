// Package latency provides functional-unit timing for cycle-stepped
// simulation.
//
// The latency values follow the APEX reference machine and can be
// configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/apexsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given opcode.
// HALT, NOP and unknown opcodes never occupy a unit and report 0.
func (t *Table) GetLatency(op insts.Op) uint64 {
	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpOR, insts.OpEXOR, insts.OpMOVC:
		return t.config.ALULatency

	case insts.OpMUL:
		return t.config.MultiplyLatency

	case insts.OpLOAD, insts.OpSTORE:
		return t.config.LoadStoreLatency

	case insts.OpBZ, insts.OpBNZ, insts.OpBAL, insts.OpJUMP:
		return t.config.BranchLatency

	default:
		return 0
	}
}

// Frequency returns the configured core clock.
func (t *Table) Frequency() sim.Freq {
	return sim.Freq(t.config.FrequencyMHz) * sim.MHz
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
