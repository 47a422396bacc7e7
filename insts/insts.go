// Package insts provides APEX instruction definitions and decoding.
//
// This package decodes APEX assembly text into structured instruction
// records. It supports:
//   - Arithmetic: ADD, SUB, MUL, AND, OR, EX-OR (register or literal sources)
//   - Constants: MOVC
//   - Memory: LOAD, STORE
//   - Branches: BZ, BNZ, BAL, JUMP
//   - Control: HALT, NOP
//
// Every opcode carries a fixed operand Shape that names which operand slots
// are destinations, sources and immediates, so later stages never need to
// compare mnemonics.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("ADD R1, R2, #4", 4000)
//	fmt.Printf("Op: %v, Dest: %s\n", inst.Op, inst.Operands[0].Token)
package insts
