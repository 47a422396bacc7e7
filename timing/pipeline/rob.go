package pipeline

import (
	"fmt"
	"math"
)

// pendingCycle marks an entry that has not completed.
const pendingCycle = math.MaxUint64

// ROBEntry tracks one instruction from dispatch to commit.
type ROBEntry struct {
	*Stage

	// Issued is set once the instruction has left the issue queue.
	Issued bool
	// Valid is set once the instruction's functional unit has finished.
	Valid bool
	// CompletionCycle is the cycle the instruction finished.
	CompletionCycle uint64

	// Result is the value written to the destination register.
	Result int32
	// Address is the effective address of a LOAD or STORE.
	Address int32
	// StoreValue is the data written by a STORE.
	StoreValue int32
	// NextPC is the resolved successor of a branch.
	NextPC uint64
}

// Outcome is what a functional unit produced for an instruction.
type Outcome struct {
	Result     int32
	Address    int32
	StoreValue int32
	NextPC     uint64
}

// ReorderBuffer keeps every in-flight instruction in program order so that
// they commit in that order. It is a ring buffer; entries enter at the
// tail, commit from the head and are only removed from the tail by Flush.
type ReorderBuffer struct {
	entries []*ROBEntry
	head    int
	count   int
}

// NewReorderBuffer creates a reorder buffer with room for capacity entries.
func NewReorderBuffer(capacity int) *ReorderBuffer {
	return &ReorderBuffer{entries: make([]*ROBEntry, capacity)}
}

// Len returns the number of in-flight entries.
func (r *ReorderBuffer) Len() int {
	return r.count
}

// Cap returns the capacity.
func (r *ReorderBuffer) Cap() int {
	return len(r.entries)
}

// Full reports whether Append would be rejected.
func (r *ReorderBuffer) Full() bool {
	return r.count == len(r.entries)
}

// IsEmpty reports whether nothing is in flight.
func (r *ReorderBuffer) IsEmpty() bool {
	return r.count == 0
}

func (r *ReorderBuffer) at(i int) *ROBEntry {
	return r.entries[(r.head+i)%len(r.entries)]
}

// Head returns the oldest entry, or nil.
func (r *ReorderBuffer) Head() *ROBEntry {
	if r.count == 0 {
		return nil
	}
	return r.at(0)
}

// Entries returns the in-flight entries, oldest first.
func (r *ReorderBuffer) Entries() []*ROBEntry {
	out := make([]*ROBEntry, r.count)
	for i := range out {
		out[i] = r.at(i)
	}
	return out
}

// Append records a copy of s at the tail.
func (r *ReorderBuffer) Append(s *Stage) error {
	if r.Full() {
		return fmt.Errorf("reorder buffer (%d entries): %w", len(r.entries), ErrBackpressure)
	}
	if r.count > 0 && r.at(r.count-1).Timestamp >= s.Timestamp {
		return fmt.Errorf("append t=%d after t=%d: %w",
			s.Timestamp, r.at(r.count-1).Timestamp, ErrInvariantViolation)
	}

	tail := (r.head + r.count) % len(r.entries)
	r.entries[tail] = &ROBEntry{
		Stage:           s.Clone(),
		CompletionCycle: pendingCycle,
	}
	r.count++

	return nil
}

// Find returns the entry with the given timestamp, or nil.
func (r *ReorderBuffer) Find(timestamp uint64) *ROBEntry {
	for i := 0; i < r.count; i++ {
		e := r.at(i)
		if e.Timestamp == timestamp {
			return e
		}
		if e.Timestamp > timestamp {
			break
		}
	}
	return nil
}

// MarkIssued records that the instruction has left the issue queue.
func (r *ReorderBuffer) MarkIssued(timestamp uint64) {
	if e := r.Find(timestamp); e != nil {
		e.Issued = true
	}
}

// Complete records a functional unit's outcome for an instruction.
// It reports whether the instruction was found.
func (r *ReorderBuffer) Complete(timestamp uint64, out Outcome, cycle uint64) bool {
	e := r.Find(timestamp)
	if e == nil {
		return false
	}

	e.Result = out.Result
	e.Address = out.Address
	e.StoreValue = out.StoreValue
	e.NextPC = out.NextPC
	e.Valid = true
	e.CompletionCycle = cycle

	return true
}

// ApplyForward delivers a broadcast value to the operand copies of every
// entry that reads register name.
func (r *ReorderBuffer) ApplyForward(name string, value int32) {
	for i := 0; i < r.count; i++ {
		r.at(i).forward(name, value)
	}
}

// HeadReadyAtCycle reports whether the head finished in exactly cycle.
func (r *ReorderBuffer) HeadReadyAtCycle(cycle uint64) bool {
	if r.count == 0 {
		return false
	}
	return r.at(0).CompletionCycle == cycle
}

// CanCommit reports whether the head may retire in cycle: it finished in or
// before cycle and its value is valid. A head that finished while an older
// entry blocked the buffer stays eligible in later cycles.
func (r *ReorderBuffer) CanCommit(cycle uint64) bool {
	if r.count == 0 {
		return false
	}
	head := r.at(0)
	return head.CompletionCycle <= cycle && head.Valid
}

// Commit removes the head and finalizes its destination mapping. The head
// stays in place and ErrInvariantViolation is returned if its value is not
// valid yet.
func (r *ReorderBuffer) Commit(regs *RegisterFile) (*ROBEntry, error) {
	e := r.Head()
	if e == nil {
		return nil, fmt.Errorf("commit from empty reorder buffer: %w", ErrInvariantViolation)
	}
	if !e.Valid {
		return nil, fmt.Errorf("commit %s before completion: %w", e.Stage, ErrInvariantViolation)
	}

	if e.HasDest() {
		if err := regs.Retire(e.Dest, e.Phys); err != nil {
			return nil, err
		}
	}

	r.entries[r.head] = nil
	r.head = (r.head + 1) % len(r.entries)
	r.count--

	return e, nil
}

// Flush removes every entry with a timestamp at or after threshold,
// youngest first. Each removed entry's destination mapping is rolled back;
// entries that already left the issue queue also return their register to
// the free list. The removed entries are returned, youngest first.
func (r *ReorderBuffer) Flush(threshold uint64, regs *RegisterFile) ([]*ROBEntry, error) {
	var removed []*ROBEntry

	for r.count > 0 {
		tail := (r.head + r.count - 1) % len(r.entries)
		e := r.entries[tail]
		if e.Timestamp < threshold {
			break
		}

		if e.HasDest() {
			regs.Restore(e.Dest, e.PrevPhys)
			if e.Issued {
				if err := regs.Reclaim(e.Phys); err != nil {
					return removed, err
				}
			}
		}

		r.entries[tail] = nil
		r.count--
		removed = append(removed, e)
	}

	return removed, nil
}
