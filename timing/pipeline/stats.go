package pipeline

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Dispatched is the number of instructions placed in the ROB.
	Dispatched uint64
	// NoDispatchCycles counts cycles in which nothing was dispatched.
	NoDispatchCycles uint64
	// Issued is the number of instructions that left the issue queue,
	// plus HALT and NOP which go straight to the ROB.
	Issued uint64
	// NoIssueCycles counts cycles in which nothing issued, neither from
	// the issue queue nor straight into the ROB.
	NoIssueCycles uint64
	// Resolved is the number of branches resolved by the branch unit.
	Resolved uint64
	// Committed is the number of instructions retired.
	Committed uint64
	// CommittedLoads is the number of LOADs retired.
	CommittedLoads uint64
	// CommittedStores is the number of STOREs retired.
	CommittedStores uint64
	// Flushes is the number of pipeline flushes (due to branch mispredictions).
	Flushes uint64
	// BranchPredictions is the total number of branch predictions made.
	BranchPredictions uint64
	// BranchMispredictions is the number of branch mispredictions.
	BranchMispredictions uint64
}

// CPI returns the cycles per committed instruction.
func (s Statistics) CPI() float64 {
	if s.Committed == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Committed)
}

// IPC returns the committed instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Committed) / float64(s.Cycles)
}
