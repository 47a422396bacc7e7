package pipeline

import (
	"fmt"

	"github.com/sarchlab/apexsim/insts"
)

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// CounterEntries is the number of 2-bit direction counters.
	// Must be a power of 2; zero takes the default of 64.
	CounterEntries uint32 `json:"counter_entries"`
	// TargetEntries is the number of target buffer entries.
	// Must be a power of 2; zero takes the default of 16.
	TargetEntries uint32 `json:"target_entries"`
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		CounterEntries: 64,
		TargetEntries:  16,
	}
}

// Validate checks that both table sizes are zero or a power of 2, since the
// tables are indexed by masking the PC.
func (c BranchPredictorConfig) Validate() error {
	if !isPowerOfTwoOrZero(c.CounterEntries) {
		return fmt.Errorf("counter_entries must be a power of 2, got %d", c.CounterEntries)
	}
	if !isPowerOfTwoOrZero(c.TargetEntries) {
		return fmt.Errorf("target_entries must be a power of 2, got %d", c.TargetEntries)
	}
	return nil
}

func isPowerOfTwoOrZero(n uint32) bool {
	return n&(n-1) == 0
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	Predictions    uint64
	Correct        uint64
	Mispredictions uint64
	TargetHits     uint64
	TargetMisses   uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Correct+s.Mispredictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Correct+s.Mispredictions) * 100
}

// Prediction is the fetch-time guess for one branch.
type Prediction struct {
	Taken       bool
	Target      uint64
	TargetKnown bool
}

// counter is a 2-bit saturating direction counter.
type counter uint8

const (
	strongNotTaken counter = iota
	weakNotTaken
	weakTaken
	strongTaken
)

func (c counter) taken() bool {
	return c >= weakTaken
}

func (c counter) train(taken bool) counter {
	switch {
	case taken && c < strongTaken:
		return c + 1
	case !taken && c > strongNotTaken:
		return c - 1
	default:
		return c
	}
}

type targetEntry struct {
	valid  bool
	pc     uint64
	target uint64
}

// BranchPredictor is a single-level bimodal predictor with a direct-mapped
// branch target buffer. APEX instructions are 4 bytes, so the low two PC
// bits are dropped when indexing.
type BranchPredictor struct {
	counters []counter
	targets  []targetEntry
	stats    BranchPredictorStats
}

// NewBranchPredictor creates a predictor with the given configuration.
// Zero sizes take the defaults.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	def := DefaultBranchPredictorConfig()
	if config.CounterEntries == 0 {
		config.CounterEntries = def.CounterEntries
	}
	if config.TargetEntries == 0 {
		config.TargetEntries = def.TargetEntries
	}

	bp := &BranchPredictor{
		counters: make([]counter, config.CounterEntries),
		targets:  make([]targetEntry, config.TargetEntries),
	}
	bp.Reset()

	return bp
}

func (bp *BranchPredictor) counterIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(bp.counters)-1)
}

func (bp *BranchPredictor) targetIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(bp.targets)-1)
}

// Predict guesses the outcome of the branch at pc.
func (bp *BranchPredictor) Predict(pc uint64) Prediction {
	pred := Prediction{Taken: bp.counters[bp.counterIndex(pc)].taken()}

	if e := bp.targets[bp.targetIndex(pc)]; e.valid && e.pc == pc {
		pred.Target = e.target
		pred.TargetKnown = true
		bp.stats.TargetHits++
	} else {
		bp.stats.TargetMisses++
	}

	bp.stats.Predictions++
	return pred
}

// PredictNext returns the PC fetch should continue at after inst.
// Conditional branches follow the direction counter with the target taken
// from the literal. JUMP and BAL follow the target buffer. Everything else
// falls through.
func (bp *BranchPredictor) PredictNext(inst *insts.Instruction) uint64 {
	next := inst.PC + 4

	switch {
	case inst.Op.IsConditionalBranch():
		if bp.Predict(inst.PC).Taken {
			return relativeTarget(inst.PC, inst.Literal())
		}
	case inst.Op == insts.OpJUMP || inst.Op == insts.OpBAL:
		if pred := bp.Predict(inst.PC); pred.TargetKnown {
			return pred.Target
		}
	}

	return next
}

// Update trains the predictor with a resolved branch.
func (bp *BranchPredictor) Update(pc uint64, taken bool, target uint64) {
	idx := bp.counterIndex(pc)
	if bp.counters[idx].taken() == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}
	bp.counters[idx] = bp.counters[idx].train(taken)

	if taken {
		bp.targets[bp.targetIndex(pc)] = targetEntry{valid: true, pc: pc, target: target}
	}
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset sets every counter to weakly taken, clears the target buffer and
// the statistics.
func (bp *BranchPredictor) Reset() {
	for i := range bp.counters {
		bp.counters[i] = weakTaken
	}
	for i := range bp.targets {
		bp.targets[i] = targetEntry{}
	}
	bp.stats = BranchPredictorStats{}
}

// relativeTarget returns pc displaced by a signed byte offset.
func relativeTarget(pc uint64, offset int32) uint64 {
	return uint64(int64(pc) + int64(offset))
}
