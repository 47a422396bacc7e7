// Package pipeline provides the out-of-order execution core: register
// renaming, the issue queue, the reorder buffer, functional units and the
// cycle-stepped pipeline that connects them.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sarchlab/apexsim/insts"
)

// NoPhys marks a stage without a physical destination register.
const NoPhys = -1

// Stage describes one in-flight instruction: its operands, the values
// gathered for them so far and whether it may issue.
//
// Operands, Values and Valids are index-aligned and sized by the opcode's
// shape. After dispatch, register tokens name physical registers ("P7").
type Stage struct {
	PC        uint64
	Op        insts.Op
	Operands  []string
	Values    []int32
	Valids    []bool
	Ready     bool
	Occupied  bool
	Timestamp uint64

	// Dest is the architectural destination, empty when none.
	Dest string
	// Phys is the physical register renamed for Dest.
	Phys int
	// PrevPhys is the mapping of Dest that Phys superseded.
	PrevPhys int

	// PredictedNext is the PC fetch continued at after this instruction.
	PredictedNext uint64

	// FlagSource is the timestamp of the arithmetic instruction whose
	// result sets the zero flag read by BZ/BNZ.
	FlagSource    uint64
	HasFlagSource bool
}

// NewStage builds a stage for inst. Literal operands are valid at once;
// register operands wait for dispatch to seed them.
func NewStage(inst *insts.Instruction, timestamp uint64) *Stage {
	n := len(inst.Operands)
	s := &Stage{
		PC:            inst.PC,
		Op:            inst.Op,
		Operands:      make([]string, n),
		Values:        make([]int32, n),
		Valids:        make([]bool, n),
		Timestamp:     timestamp,
		Phys:          NoPhys,
		PrevPhys:      NoPhys,
		PredictedNext: inst.PC + 4,
	}

	for i, o := range inst.Operands {
		s.Operands[i] = o.Token
		if o.IsLiteral {
			s.Values[i] = o.Value
			s.Valids[i] = true
		}
	}

	shape := inst.Op.Shape()
	if idx := shape.DestIndex(); idx >= 0 {
		s.Dest = inst.Operands[idx].Token
	} else {
		s.Dest = shape.ImplicitDest
	}

	return s
}

// HasDest reports whether the stage writes a register.
func (s *Stage) HasDest() bool {
	return s.Dest != ""
}

// IsAllValid reports whether every source operand of the opcode has a
// value. Opcodes without sources are always valid.
func (s *Stage) IsAllValid() bool {
	for _, i := range s.Op.Shape().Sources() {
		if !s.Valids[i] {
			return false
		}
	}
	return true
}

// Literal returns the immediate operand, or 0 when the opcode has none.
func (s *Stage) Literal() int32 {
	idx := s.Op.Shape().ImmediateIndex()
	if idx < 0 {
		return 0
	}
	return s.Values[idx]
}

// forward sets the value of every source operand named name.
// It reports whether any operand changed.
func (s *Stage) forward(name string, value int32) bool {
	hit := false
	for _, i := range s.Op.Shape().Sources() {
		if s.Operands[i] == name {
			s.Values[i] = value
			s.Valids[i] = true
			hit = true
		}
	}
	return hit
}

// Clone returns a deep copy of the stage.
func (s *Stage) Clone() *Stage {
	c := *s
	c.Operands = append([]string(nil), s.Operands...)
	c.Values = append([]int32(nil), s.Values...)
	c.Valids = append([]bool(nil), s.Valids...)
	return &c
}

// String renders the stage as "t=<timestamp> pc=<pc> OP ops".
func (s *Stage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%d pc=%d %s", s.Timestamp, s.PC, s.Op)
	for i, tok := range s.Operands {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(tok)
		if s.Valids[i] {
			fmt.Fprintf(&b, "(%d)", s.Values[i])
		}
	}
	return b.String()
}
