package pipeline

import "fmt"

// FunctionalUnit executes one instruction at a time. It is not pipelined:
// it stays busy from Accept until the pipeline releases the finished
// instruction.
type FunctionalUnit struct {
	class     UnitClass
	latency   uint64
	stage     *Stage
	remaining uint64
	onAccept  func(*Stage)
}

// NewFunctionalUnit creates a unit of the given class taking latency
// cycles per instruction.
func NewFunctionalUnit(class UnitClass, latency uint64) *FunctionalUnit {
	if latency == 0 {
		latency = 1
	}
	return &FunctionalUnit{class: class, latency: latency}
}

// Class returns the unit class.
func (u *FunctionalUnit) Class() UnitClass {
	return u.class
}

// Latency returns the cycles the unit takes per instruction.
func (u *FunctionalUnit) Latency() uint64 {
	return u.latency
}

// Accept starts executing s, or returns ErrUnitBusy.
func (u *FunctionalUnit) Accept(s *Stage) error {
	if u.stage != nil {
		return fmt.Errorf("%s unit holds t=%d: %w", u.class, u.stage.Timestamp, ErrUnitBusy)
	}

	u.stage = s
	u.remaining = u.latency
	if u.onAccept != nil {
		u.onAccept(s)
	}

	return nil
}

// Busy reports whether the unit holds an instruction.
func (u *FunctionalUnit) Busy() bool {
	return u.stage != nil
}

// Advance moves the held instruction one cycle closer to completion.
func (u *FunctionalUnit) Advance() {
	if u.stage != nil && u.remaining > 0 {
		u.remaining--
	}
}

// Done reports whether the held instruction has finished executing.
func (u *FunctionalUnit) Done() bool {
	return u.stage != nil && u.remaining == 0
}

// Peek returns the held instruction, or nil.
func (u *FunctionalUnit) Peek() *Stage {
	return u.stage
}

// Release empties the unit and returns the instruction it held.
func (u *FunctionalUnit) Release() *Stage {
	s := u.stage
	u.stage = nil
	u.remaining = 0
	return s
}

// Squash discards the held instruction if its timestamp is at or after
// threshold, returning it.
func (u *FunctionalUnit) Squash(threshold uint64) *Stage {
	if u.stage == nil || u.stage.Timestamp < threshold {
		return nil
	}
	return u.Release()
}
