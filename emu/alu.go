package emu

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// ALU implements APEX integer arithmetic and logic on 4-byte values.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute returns op applied to the operands x and y. MOVC returns y, the
// literal. Arithmetic wraps on overflow.
func (a *ALU) Compute(op insts.Op, x, y int32) (int32, error) {
	switch op {
	case insts.OpADD:
		return x + y, nil
	case insts.OpSUB:
		return x - y, nil
	case insts.OpMUL:
		return x * y, nil
	case insts.OpAND:
		return x & y, nil
	case insts.OpOR:
		return x | y, nil
	case insts.OpEXOR:
		return x ^ y, nil
	case insts.OpMOVC:
		return y, nil
	default:
		return 0, fmt.Errorf("alu: unsupported opcode %v", op)
	}
}

// EffectiveAddress computes a load/store address from a base register
// value and a literal offset.
func (a *ALU) EffectiveAddress(base, offset int32) int32 {
	return base + offset
}
