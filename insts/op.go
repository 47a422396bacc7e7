package insts

// Op represents an APEX opcode.
type Op uint8

// APEX opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpMUL
	OpAND
	OpOR
	OpEXOR
	OpMOVC
	OpBZ
	OpBNZ
	OpLOAD
	OpSTORE
	OpBAL
	OpJUMP
	OpHALT
	OpNOP
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpMUL:     "MUL",
	OpAND:     "AND",
	OpOR:      "OR",
	OpEXOR:    "EX-OR",
	OpMOVC:    "MOVC",
	OpBZ:      "BZ",
	OpBNZ:     "BNZ",
	OpLOAD:    "LOAD",
	OpSTORE:   "STORE",
	OpBAL:     "BAL",
	OpJUMP:    "JUMP",
	OpHALT:    "HALT",
	OpNOP:     "NOP",
}

// String returns the assembly mnemonic of the opcode.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return opNames[OpUnknown]
}

// LookupOp maps an assembly mnemonic to its opcode.
func LookupOp(mnemonic string) (Op, bool) {
	for op := OpADD; op <= OpNOP; op++ {
		if opNames[op] == mnemonic {
			return op, true
		}
	}
	return OpUnknown, false
}

// Role is the part an operand slot plays in an instruction.
type Role uint8

// Operand roles.
const (
	RoleDest      Role = iota + 1 // Register written by the instruction
	RoleSource                    // Register (or literal) read by the instruction
	RoleImmediate                 // Literal encoded in the instruction
)

// Shape describes the fixed operand layout of an opcode.
type Shape struct {
	// Roles lists the role of each operand slot in order.
	Roles []Role

	// ImplicitDest names an architectural register written by the
	// instruction that does not appear among its operands (BAL writes X).
	ImplicitDest string
}

var (
	shapeArith  = Shape{Roles: []Role{RoleDest, RoleSource, RoleSource}}
	shapeMOVC   = Shape{Roles: []Role{RoleDest, RoleImmediate}}
	shapeLOAD   = Shape{Roles: []Role{RoleDest, RoleSource, RoleImmediate}}
	shapeSTORE  = Shape{Roles: []Role{RoleSource, RoleSource, RoleImmediate}}
	shapeBCond  = Shape{Roles: []Role{RoleImmediate}}
	shapeJUMP   = Shape{Roles: []Role{RoleSource, RoleImmediate}}
	shapeBAL    = Shape{Roles: []Role{RoleSource, RoleImmediate}, ImplicitDest: RegisterX}
	shapeNoArgs = Shape{}
)

// Shape returns the operand shape of the opcode.
func (o Op) Shape() Shape {
	switch o {
	case OpADD, OpSUB, OpMUL, OpAND, OpOR, OpEXOR:
		return shapeArith
	case OpMOVC:
		return shapeMOVC
	case OpLOAD:
		return shapeLOAD
	case OpSTORE:
		return shapeSTORE
	case OpBZ, OpBNZ:
		return shapeBCond
	case OpJUMP:
		return shapeJUMP
	case OpBAL:
		return shapeBAL
	default:
		return shapeNoArgs
	}
}

// NumOperands returns how many operand tokens the opcode takes.
func (s Shape) NumOperands() int {
	return len(s.Roles)
}

// Sources returns the indices of the source operand slots.
func (s Shape) Sources() []int {
	var idx []int
	for i, r := range s.Roles {
		if r == RoleSource {
			idx = append(idx, i)
		}
	}
	return idx
}

// DestIndex returns the index of the destination operand, or -1.
func (s Shape) DestIndex() int {
	for i, r := range s.Roles {
		if r == RoleDest {
			return i
		}
	}
	return -1
}

// ImmediateIndex returns the index of the immediate operand, or -1.
func (s Shape) ImmediateIndex() int {
	for i, r := range s.Roles {
		if r == RoleImmediate {
			return i
		}
	}
	return -1
}

// IsArithmetic reports whether the opcode belongs to the arithmetic class.
// Arithmetic instructions set the zero flag read by BZ and BNZ.
func (o Op) IsArithmetic() bool {
	switch o {
	case OpADD, OpSUB, OpMUL, OpAND, OpOR, OpEXOR:
		return true
	default:
		return false
	}
}

// IsConditionalBranch reports whether the opcode is BZ or BNZ.
func (o Op) IsConditionalBranch() bool {
	return o == OpBZ || o == OpBNZ
}

// IsBranch reports whether the opcode changes control flow.
func (o Op) IsBranch() bool {
	switch o {
	case OpBZ, OpBNZ, OpBAL, OpJUMP:
		return true
	default:
		return false
	}
}

// IsMemory reports whether the opcode accesses data memory.
func (o Op) IsMemory() bool {
	return o == OpLOAD || o == OpSTORE
}

// BypassesIssue reports whether the opcode needs no functional unit and is
// placed directly in the reorder buffer.
func (o Op) BypassesIssue() bool {
	return o == OpHALT || o == OpNOP
}
