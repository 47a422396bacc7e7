package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// physState is the lifecycle state of a physical register.
type physState uint8

const (
	physFree     physState = iota // on the free list
	physInFlight                  // allocated by rename, not yet committed
	physRetired                   // committed mapping of an architectural register
)

// PhysReg is one entry of the physical register table.
type PhysReg struct {
	Value int32
	Valid bool
}

// RegisterFile is the renamer: it maps architectural names to physical
// registers, holds the physical register table and owns the free list.
//
// Two maps are kept. The front-end map is updated at rename and read at
// dispatch. The retirement map is updated at commit and defines
// architectural state. Every physical register is in exactly one of the
// free, in-flight and retired states.
type RegisterFile struct {
	names    []string
	frontend map[string]int
	retired  map[string]int
	regs     []PhysReg
	state    []physState
	free     []int
}

// NewRegisterFile creates a register file for the given architectural
// names backed by numPhys physical registers. Architectural register i is
// initially mapped to physical register i holding 0.
func NewRegisterFile(archNames []string, numPhys int) (*RegisterFile, error) {
	if numPhys <= len(archNames) {
		return nil, fmt.Errorf("need more than %d physical registers, got %d",
			len(archNames), numPhys)
	}

	rf := &RegisterFile{
		names:    append([]string(nil), archNames...),
		frontend: make(map[string]int, len(archNames)),
		retired:  make(map[string]int, len(archNames)),
		regs:     make([]PhysReg, numPhys),
		state:    make([]physState, numPhys),
	}
	rf.Reset()

	return rf, nil
}

// Reset restores the initial mapping and refills the free list.
func (rf *RegisterFile) Reset() {
	for i := range rf.regs {
		rf.regs[i] = PhysReg{}
		rf.state[i] = physFree
	}

	for i, name := range rf.names {
		rf.frontend[name] = i
		rf.retired[name] = i
		rf.regs[i] = PhysReg{Value: 0, Valid: true}
		rf.state[i] = physRetired
	}

	// The free list is a stack; push in reverse so the lowest id pops first.
	rf.free = rf.free[:0]
	for i := len(rf.regs) - 1; i >= len(rf.names); i-- {
		rf.free = append(rf.free, i)
	}
}

// PhysName returns the operand token used for physical register id.
func PhysName(id int) string {
	return "P" + strconv.Itoa(id)
}

// ParsePhysName is the inverse of PhysName.
func ParsePhysName(token string) (int, bool) {
	if !strings.HasPrefix(token, "P") {
		return 0, false
	}
	id, err := strconv.Atoi(token[1:])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// ArchNames returns the architectural register names.
func (rf *RegisterFile) ArchNames() []string {
	return rf.names
}

// NumPhys returns the number of physical registers.
func (rf *RegisterFile) NumPhys() int {
	return len(rf.regs)
}

// FreeCount returns the number of registers available to rename.
func (rf *RegisterFile) FreeCount() int {
	return len(rf.free)
}

// IsFree reports whether id is on the free list.
func (rf *RegisterFile) IsFree(id int) bool {
	return rf.state[id] == physFree
}

// Mapping returns the physical register currently mapped to arch.
func (rf *RegisterFile) Mapping(arch string) (int, bool) {
	id, ok := rf.frontend[arch]
	return id, ok
}

// RetiredMapping returns the committed physical register of arch.
func (rf *RegisterFile) RetiredMapping(arch string) (int, bool) {
	id, ok := rf.retired[arch]
	return id, ok
}

// Rename allocates a physical register from the free list and maps arch
// to it. The new register is invalid until its producer broadcasts.
func (rf *RegisterFile) Rename(arch string) (int, error) {
	if _, ok := rf.frontend[arch]; !ok {
		return NoPhys, fmt.Errorf("rename: unknown register %q", arch)
	}
	if len(rf.free) == 0 {
		return NoPhys, ErrResourceExhausted
	}

	id := rf.free[len(rf.free)-1]
	rf.free = rf.free[:len(rf.free)-1]

	rf.state[id] = physInFlight
	rf.regs[id] = PhysReg{}
	rf.frontend[arch] = id

	return id, nil
}

// Retire makes phys the committed mapping of arch and returns the
// previously committed register to the free list.
func (rf *RegisterFile) Retire(arch string, phys int) error {
	old, ok := rf.retired[arch]
	if !ok {
		return fmt.Errorf("retire: unknown register %q", arch)
	}
	if rf.state[phys] != physInFlight {
		return fmt.Errorf("retire %s: %s is not in flight: %w",
			arch, PhysName(phys), ErrInvariantViolation)
	}

	rf.retired[arch] = phys
	rf.state[phys] = physRetired

	rf.state[old] = physFree
	rf.regs[old].Valid = false
	rf.free = append(rf.free, old)

	return nil
}

// Reclaim returns an in-flight register to the free list without
// committing it. It is used when a speculative instruction is flushed.
func (rf *RegisterFile) Reclaim(phys int) error {
	if phys < 0 || phys >= len(rf.regs) || rf.state[phys] != physInFlight {
		return fmt.Errorf("reclaim %s: %w", PhysName(phys), ErrInvariantViolation)
	}

	rf.state[phys] = physFree
	rf.regs[phys] = PhysReg{}
	rf.free = append(rf.free, phys)

	return nil
}

// Restore points arch back at phys. Flush recovery calls it with the
// mapping a squashed instruction superseded.
func (rf *RegisterFile) Restore(arch string, phys int) {
	rf.frontend[arch] = phys
}

// ReadValid returns the value and validity of the register currently
// mapped to arch.
func (rf *RegisterFile) ReadValid(arch string) (int32, bool) {
	id, ok := rf.frontend[arch]
	if !ok {
		return 0, false
	}
	r := rf.regs[id]
	return r.Value, r.Valid
}

// Read returns the value and validity of physical register id.
func (rf *RegisterFile) Read(id int) (int32, bool) {
	r := rf.regs[id]
	return r.Value, r.Valid
}

// Write stores a computed value and marks the register valid.
func (rf *RegisterFile) Write(id int, value int32) {
	rf.regs[id] = PhysReg{Value: value, Valid: true}
}

// ArchValue returns the committed value of arch.
func (rf *RegisterFile) ArchValue(arch string) int32 {
	return rf.regs[rf.retired[arch]].Value
}

// Display writes the architectural registers with their committed values
// and speculative mappings.
func (rf *RegisterFile) Display(w io.Writer) error {
	for _, name := range rf.names {
		front := rf.frontend[name]
		v, valid := rf.Read(front)
		_, err := fmt.Fprintf(w, "%-3s = %-11d -> %-4s valid=%-5t value=%d\n",
			name, rf.ArchValue(name), PhysName(front), valid, v)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "free physical registers: %d\n", rf.FreeCount())
	return err
}
