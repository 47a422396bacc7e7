package pipeline

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// DefaultIssueWidth is the number of instructions the issue queue may
// advance per cycle.
const DefaultIssueWidth = 3

// IssueQueue holds dispatched instructions until they issue to a
// functional unit. Entries are kept in timestamp order; new entries are
// appended at the tail and may leave from any position.
type IssueQueue struct {
	entries    []*Stage
	capacity   int
	issueWidth int
}

// NewIssueQueue creates an issue queue holding at most capacity entries
// and issuing at most issueWidth per call to Issue.
func NewIssueQueue(capacity, issueWidth int) *IssueQueue {
	if issueWidth <= 0 {
		issueWidth = DefaultIssueWidth
	}
	return &IssueQueue{
		entries:    make([]*Stage, 0, capacity),
		capacity:   capacity,
		issueWidth: issueWidth,
	}
}

// Len returns the number of queued entries.
func (q *IssueQueue) Len() int {
	return len(q.entries)
}

// Cap returns the queue capacity.
func (q *IssueQueue) Cap() int {
	return q.capacity
}

// Full reports whether Dispatch would be rejected.
func (q *IssueQueue) Full() bool {
	return len(q.entries) >= q.capacity
}

// IsEmpty reports whether the queue holds no entries.
func (q *IssueQueue) IsEmpty() bool {
	return len(q.entries) == 0
}

// Entries returns the queued stages, oldest first. The slice is a copy;
// the stages are not.
func (q *IssueQueue) Entries() []*Stage {
	return append([]*Stage(nil), q.entries...)
}

// Dispatch appends s at the tail. It returns ErrBackpressure, leaving the
// queue untouched, when the queue is full.
func (q *IssueQueue) Dispatch(s *Stage) error {
	if q.Full() {
		return fmt.Errorf("issue queue (%d entries): %w", q.capacity, ErrBackpressure)
	}
	if n := len(q.entries); n > 0 && q.entries[n-1].Timestamp >= s.Timestamp {
		return fmt.Errorf("dispatch t=%d after t=%d: %w",
			s.Timestamp, q.entries[n-1].Timestamp, ErrInvariantViolation)
	}

	s.Ready = s.IsAllValid()
	s.Occupied = true
	q.entries = append(q.entries, s)

	return nil
}

// ApplyForward delivers a broadcast value to every queued entry that reads
// register name.
func (q *IssueQueue) ApplyForward(name string, value int32) {
	for _, e := range q.entries {
		if e.forward(name, value) {
			e.Ready = e.IsAllValid()
		}
	}
}

// Issue scans the queue once, oldest first, handing ready entries to the
// unit for their opcode. A busy unit leaves the entry queued. The scan
// stops as soon as issueWidth entries have issued. It reports whether
// anything issued.
func (q *IssueQueue) Issue(alu, mul, lsu, branch Unit) bool {
	issued := 0

	for i := 0; i < len(q.entries); {
		s := q.entries[i]
		if !s.Ready {
			i++
			continue
		}

		unit := q.route(s, alu, mul, lsu, branch)
		if unit == nil || unit.Accept(s) != nil {
			i++
			continue
		}

		q.remove(i)
		issued++
		if issued >= q.issueWidth {
			return true
		}
	}

	return issued > 0
}

// Flush removes every entry with a timestamp at or after threshold and
// returns its destination register to the free list. The removed stages
// are returned, oldest first.
func (q *IssueQueue) Flush(threshold uint64, regs *RegisterFile) ([]*Stage, error) {
	cut := len(q.entries)
	for i, e := range q.entries {
		if e.Timestamp >= threshold {
			cut = i
			break
		}
	}

	removed := append([]*Stage(nil), q.entries[cut:]...)
	for i := cut; i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = q.entries[:cut]

	for _, s := range removed {
		s.Occupied = false
		if s.Phys == NoPhys {
			continue
		}
		if err := regs.Reclaim(s.Phys); err != nil {
			return removed, err
		}
	}

	return removed, nil
}

// HasOpcode reports whether any queued entry has opcode op.
func (q *IssueQueue) HasOpcode(op insts.Op) bool {
	for _, e := range q.entries {
		if e.Op == op {
			return true
		}
	}
	return false
}

func (q *IssueQueue) remove(i int) {
	copy(q.entries[i:], q.entries[i+1:])
	q.entries[len(q.entries)-1] = nil
	q.entries = q.entries[:len(q.entries)-1]
}
