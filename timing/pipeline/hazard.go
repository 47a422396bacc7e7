package pipeline

import "github.com/sarchlab/apexsim/insts"

// Unit is a functional unit as seen by the issue queue.
type Unit interface {
	// Accept takes ownership of s, or returns ErrUnitBusy.
	Accept(s *Stage) error
}

// UnitClass identifies one of the four functional-unit classes.
type UnitClass uint8

// Functional-unit classes.
const (
	UnitNone UnitClass = iota
	UnitALU
	UnitMultiply
	UnitLoadStore
	UnitBranch
)

var unitClassNames = [...]string{
	UnitNone:      "none",
	UnitALU:       "alu",
	UnitMultiply:  "mul",
	UnitLoadStore: "lsu",
	UnitBranch:    "branch",
}

func (c UnitClass) String() string {
	return unitClassNames[c]
}

// ClassOf returns the functional-unit class that executes op.
func ClassOf(op insts.Op) UnitClass {
	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpAND, insts.OpOR, insts.OpEXOR, insts.OpMOVC:
		return UnitALU
	case insts.OpMUL:
		return UnitMultiply
	case insts.OpLOAD, insts.OpSTORE:
		return UnitLoadStore
	case insts.OpBZ, insts.OpBNZ, insts.OpBAL, insts.OpJUMP:
		return UnitBranch
	default:
		return UnitNone
	}
}

// route picks the unit for s, or nil when s may not issue this scan.
func (q *IssueQueue) route(s *Stage, alu, mul, lsu, branch Unit) Unit {
	switch ClassOf(s.Op) {
	case UnitALU:
		return alu
	case UnitMultiply:
		return mul
	case UnitLoadStore:
		return lsu
	case UnitBranch:
		if s.Op.IsConditionalBranch() && q.olderArithmeticQueued(s.Timestamp) {
			return nil
		}
		return branch
	default:
		return nil
	}
}

// olderArithmeticQueued reports whether an arithmetic instruction
// dispatched before timestamp is still waiting in the queue. A BZ/BNZ must
// not pass such an instruction because it may set the zero flag.
func (q *IssueQueue) olderArithmeticQueued(timestamp uint64) bool {
	for _, e := range q.entries {
		if e.Timestamp >= timestamp {
			return false
		}
		if e.Op.IsArithmetic() {
			return true
		}
	}
	return false
}
