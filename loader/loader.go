// Package loader reads APEX assembly programs.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/apexsim/insts"
)

// DefaultCodeBase is the address of the first instruction.
const DefaultCodeBase = 4000

// InstructionSize is the size in bytes of one instruction.
const InstructionSize = 4

// Program represents a decoded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint64
	// Instructions are placed at consecutive addresses from EntryPoint.
	Instructions []*insts.Instruction
}

// At returns the instruction at pc, or nil.
func (p *Program) At(pc uint64) *insts.Instruction {
	if pc < p.EntryPoint || (pc-p.EntryPoint)%InstructionSize != 0 {
		return nil
	}
	i := (pc - p.EntryPoint) / InstructionSize
	if i >= uint64(len(p.Instructions)) {
		return nil
	}
	return p.Instructions[i]
}

// Load reads and decodes the program file at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// LoadReader decodes one instruction per non-blank line of r. Text after
// ';' is a comment.
func LoadReader(r io.Reader) (*Program, error) {
	prog := &Program{EntryPoint: DefaultCodeBase}
	decoder := insts.NewDecoder()

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if insts.StripComment(line) == "" {
			continue
		}

		pc := prog.EntryPoint + uint64(len(prog.Instructions))*InstructionSize
		inst, err := decoder.Decode(line, pc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		prog.Instructions = append(prog.Instructions, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return prog, nil
}
