package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/timing/latency"
)

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets the functional-unit latencies.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithLogger sets the logger. V(1) reports stalls, flushes and commits.
func WithLogger(logger logr.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithBranchPredictor sets the branch predictor configuration.
func WithBranchPredictor(config BranchPredictorConfig) PipelineOption {
	return func(p *Pipeline) {
		p.bpConfig = config
	}
}

// fetched is the instruction waiting in the decode latch for dispatch.
type fetched struct {
	inst          *insts.Instruction
	predictedNext uint64
}

// Pipeline is the out-of-order APEX core. Each Tick runs one cycle:
// commit, execute and broadcast, issue, dispatch, fetch.
//
// All state is owned by the Pipeline value and changed only from Tick, so
// the physical register table is never allocated or freed concurrently.
type Pipeline struct {
	*sim.HookableBase

	config       SuperscalarConfig
	bpConfig     BranchPredictorConfig
	latencyTable *latency.Table
	logger       logr.Logger

	regs      *RegisterFile
	iq        *IssueQueue
	rob       *ReorderBuffer
	alu       *FunctionalUnit
	mul       *FunctionalUnit
	lsu       *FunctionalUnit
	branch    *FunctionalUnit
	units     []*FunctionalUnit
	predictor *BranchPredictor
	exec      *emu.ALU
	memory    *emu.Memory

	code  map[uint64]*insts.Instruction
	entry uint64
	pc    uint64
	latch *fetched

	fetchStopped  bool
	nextTimestamp uint64

	flagProducer    uint64
	hasFlagProducer bool
	zeroFlag        bool

	cycle  uint64
	stats  Statistics
	halted bool
	err    error
}

// NewPipeline creates an out-of-order core operating on memory.
func NewPipeline(memory *emu.Memory, opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{
		HookableBase: sim.NewHookableBase(),
		config:       DefaultSuperscalarConfig(),
		bpConfig:     DefaultBranchPredictorConfig(),
		latencyTable: latency.NewTable(),
		logger:       logr.Discard(),
		exec:         emu.NewALU(),
		memory:       memory,
		code:         make(map[uint64]*insts.Instruction),
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}
	if err := p.latencyTable.Config().Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}
	if err := p.bpConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid branch predictor config: %w", err)
	}

	regs, err := NewRegisterFile(insts.ArchRegisterNames(), p.config.PhysRegs)
	if err != nil {
		return nil, err
	}
	p.regs = regs

	p.alu = NewFunctionalUnit(UnitALU, p.latencyTable.GetLatency(insts.OpADD))
	p.mul = NewFunctionalUnit(UnitMultiply, p.latencyTable.GetLatency(insts.OpMUL))
	p.lsu = NewFunctionalUnit(UnitLoadStore, p.latencyTable.GetLatency(insts.OpLOAD))
	p.branch = NewFunctionalUnit(UnitBranch, p.latencyTable.GetLatency(insts.OpBZ))
	p.units = []*FunctionalUnit{p.alu, p.mul, p.lsu, p.branch}
	for _, u := range p.units {
		u.onAccept = p.onIssue
	}

	p.predictor = NewBranchPredictor(p.bpConfig)
	p.resetState()

	return p, nil
}

func (p *Pipeline) resetState() {
	p.regs.Reset()
	p.iq = NewIssueQueue(p.config.IQSize, p.config.IssueWidth)
	p.rob = NewReorderBuffer(p.config.ROBSize)
	for _, u := range p.units {
		u.Release()
	}
	p.predictor.Reset()

	p.pc = p.entry
	p.latch = nil
	p.fetchStopped = false
	p.nextTimestamp = 0
	p.flagProducer = 0
	p.hasFlagProducer = false
	p.zeroFlag = false
	p.cycle = 0
	p.stats = Statistics{}
	p.halted = false
	p.err = nil
}

// Reset clears all pipeline state and restarts at the program entry. The
// loaded program and memory contents are kept.
func (p *Pipeline) Reset() {
	p.resetState()
}

// LoadProgram places the decoded instructions in code memory and sets the
// PC to the first of them.
func (p *Pipeline) LoadProgram(code []*insts.Instruction) {
	p.code = make(map[uint64]*insts.Instruction, len(code))
	for _, inst := range code {
		p.code[inst.PC] = inst
	}
	if len(code) > 0 {
		p.entry = code[0].PC
		p.SetPC(p.entry)
	}
}

// PC returns the fetch program counter.
func (p *Pipeline) PC() uint64 {
	return p.pc
}

// SetPC sets the fetch program counter.
func (p *Pipeline) SetPC(pc uint64) {
	p.pc = pc
}

// Cycle returns the number of cycles simulated.
func (p *Pipeline) Cycle() uint64 {
	return p.cycle
}

// Halted returns true once HALT has committed or a fault stopped the core.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Err returns the fault that stopped the core, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Config returns the core configuration.
func (p *Pipeline) Config() SuperscalarConfig {
	return p.config
}

// RegisterFile returns the renamer and physical register table.
func (p *Pipeline) RegisterFile() *RegisterFile {
	return p.regs
}

// IssueQueue returns the issue queue.
func (p *Pipeline) IssueQueue() *IssueQueue {
	return p.iq
}

// ReorderBuffer returns the reorder buffer.
func (p *Pipeline) ReorderBuffer() *ReorderBuffer {
	return p.rob
}

// Units returns the functional units: ALU, multiply, load/store, branch.
func (p *Pipeline) Units() []*FunctionalUnit {
	return p.units
}

// ZeroFlag returns the committed zero flag.
func (p *Pipeline) ZeroFlag() bool {
	return p.zeroFlag
}

// LatencyTable returns the current latency table.
func (p *Pipeline) LatencyTable() *latency.Table {
	return p.latencyTable
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	s := p.stats
	bp := p.predictor.Stats()
	s.BranchPredictions = bp.Predictions
	return s
}

// BranchPredictorStats returns the branch predictor statistics.
func (p *Pipeline) BranchPredictorStats() BranchPredictorStats {
	return p.predictor.Stats()
}

// Idle reports whether nothing is in flight and fetch has nothing to read.
func (p *Pipeline) Idle() bool {
	if p.latch != nil || !p.rob.IsEmpty() {
		return false
	}
	if p.fetchStopped {
		return true
	}
	_, ok := p.code[p.pc]
	return !ok
}

// Run ticks until the core halts or runs out of work. It returns the fault
// that stopped the core, if any.
func (p *Pipeline) Run() error {
	for !p.halted && !p.Idle() {
		p.Tick()
	}
	return p.err
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick executes one cycle.
//
// Stages run back to front. Commit sees only instructions that finished in
// earlier cycles. Results finishing this cycle are broadcast to the
// physical registers, the issue queue and the reorder buffer before issue
// looks at readiness, so a consumer can issue in the cycle its operand
// arrives. Issue runs before dispatch, so an instruction waits at least one
// cycle in the issue queue.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.cycle++
	p.stats.Cycles++

	p.commitStage()
	if p.halted {
		return
	}

	p.executeStage()
	if p.halted {
		return
	}

	issued := p.stats.Issued
	p.iq.Issue(p.alu, p.mul, p.lsu, p.branch)

	p.dispatchStage()
	if p.stats.Issued == issued {
		p.stats.NoIssueCycles++
	}

	p.fetchStage()
}

func (p *Pipeline) fault(err error) {
	p.err = err
	p.halted = true
	p.logger.Error(err, "core stopped", "cycle", p.cycle)
}

// commitStage retires up to CommitWidth instructions from the ROB head.
func (p *Pipeline) commitStage() {
	for n := 0; n < p.config.CommitWidth; n++ {
		if !p.rob.CanCommit(p.cycle) {
			return
		}

		if err := p.accessMemory(p.rob.Head()); err != nil {
			p.fault(err)
			return
		}

		e, err := p.rob.Commit(p.regs)
		if err != nil {
			p.fault(err)
			return
		}

		p.retire(e)
		if p.halted {
			return
		}
	}
}

// accessMemory performs the memory side effect of a LOAD or STORE at the
// ROB head. A loaded value is broadcast before the LOAD retires.
func (p *Pipeline) accessMemory(e *ROBEntry) error {
	switch e.Op {
	case insts.OpLOAD:
		v, err := p.memory.ReadMem(e.Address)
		if err != nil {
			return fmt.Errorf("LOAD at pc %d: %w", e.PC, err)
		}
		e.Result = v
		p.Broadcast(e.Stage, v)
	case insts.OpSTORE:
		if err := p.memory.WriteMem(e.Address, e.StoreValue); err != nil {
			return fmt.Errorf("STORE at pc %d: %w", e.PC, err)
		}
	}
	return nil
}

func (p *Pipeline) retire(e *ROBEntry) {
	p.stats.Committed++

	switch {
	case e.Op.IsArithmetic():
		p.zeroFlag = e.Result == 0
	case e.Op == insts.OpLOAD:
		p.stats.CommittedLoads++
	case e.Op == insts.OpSTORE:
		p.stats.CommittedStores++
	case e.Op == insts.OpHALT:
		p.halted = true
	}

	if p.hasFlagProducer && p.flagProducer == e.Timestamp {
		p.hasFlagProducer = false
	}

	p.logger.V(1).Info("commit", "cycle", p.cycle, "inst", e.Stage.String())
	p.trace(HookPosCommit, e, nil)
}

// executeStage advances every functional unit and completes the finished
// instructions, resolving branches.
func (p *Pipeline) executeStage() {
	for _, u := range p.units {
		u.Advance()
	}

	for _, u := range p.units {
		if !u.Done() {
			continue
		}

		s := u.Peek()
		out, ok, err := p.execute(s)
		if err != nil {
			p.fault(err)
			return
		}
		if !ok {
			continue
		}

		u.Release()
		p.complete(s, out)

		if s.Op.IsBranch() && out.NextPC != s.PredictedNext {
			if err := p.recover(s, out.NextPC); err != nil {
				p.fault(err)
				return
			}
		}
	}
}

// execute computes the outcome of s. It reports false when a BZ/BNZ must
// wait for its flag producer.
func (p *Pipeline) execute(s *Stage) (Outcome, bool, error) {
	out := Outcome{NextPC: s.PC + 4}

	switch {
	case s.Op.IsArithmetic():
		v, err := p.exec.Compute(s.Op, s.Values[1], s.Values[2])
		if err != nil {
			return out, false, err
		}
		out.Result = v

	case s.Op == insts.OpMOVC:
		out.Result = s.Literal()

	case s.Op == insts.OpLOAD:
		out.Address = p.exec.EffectiveAddress(s.Values[1], s.Literal())

	case s.Op == insts.OpSTORE:
		out.Address = p.exec.EffectiveAddress(s.Values[1], s.Literal())
		out.StoreValue = s.Values[0]

	case s.Op.IsConditionalBranch():
		zero, known := p.zeroFlagFor(s)
		if !known {
			return out, false, nil
		}
		taken := zero == (s.Op == insts.OpBZ)
		target := relativeTarget(s.PC, s.Literal())
		if taken {
			out.NextPC = target
		}
		p.predictor.Update(s.PC, taken, target)

	case s.Op == insts.OpJUMP || s.Op == insts.OpBAL:
		target := uint64(uint32(p.exec.EffectiveAddress(s.Values[0], s.Literal())))
		out.NextPC = target
		if s.Op == insts.OpBAL {
			out.Result = int32(s.PC + 4)
		}
		p.predictor.Update(s.PC, true, target)

	default:
		return out, false, fmt.Errorf("%v cannot execute in a functional unit: %w",
			s.Op, ErrInvariantViolation)
	}

	return out, true, nil
}

// zeroFlagFor returns the zero flag a BZ/BNZ observes: the result of the
// youngest older arithmetic instruction, or the committed flag when that
// instruction has already retired.
func (p *Pipeline) zeroFlagFor(s *Stage) (bool, bool) {
	if !s.HasFlagSource {
		return p.zeroFlag, true
	}

	producer := p.rob.Find(s.FlagSource)
	if producer == nil {
		return p.zeroFlag, true
	}
	if !producer.Valid {
		return false, false
	}

	return producer.Result == 0, true
}

// complete records the outcome of s in the ROB and broadcasts its result.
func (p *Pipeline) complete(s *Stage, out Outcome) {
	p.rob.Complete(s.Timestamp, out, p.cycle)

	if s.Phys != NoPhys && s.Op != insts.OpLOAD {
		p.Broadcast(s, out.Result)
	}
	if s.Op.IsBranch() {
		p.stats.Resolved++
	}

	p.trace(HookPosComplete, s, out)
}

// Broadcast delivers the result of s to its physical register and to every
// waiting consumer in the issue queue and the reorder buffer in one step.
func (p *Pipeline) Broadcast(s *Stage, value int32) {
	name := PhysName(s.Phys)
	p.regs.Write(s.Phys, value)
	p.iq.ApplyForward(name, value)
	p.rob.ApplyForward(name, value)
}

// recover squashes everything younger than branch s and redirects fetch.
func (p *Pipeline) recover(s *Stage, next uint64) error {
	threshold := s.Timestamp + 1

	fromIQ, err := p.iq.Flush(threshold, p.regs)
	if err != nil {
		return err
	}
	fromROB, err := p.rob.Flush(threshold, p.regs)
	if err != nil {
		return err
	}
	for _, u := range p.units {
		u.Squash(threshold)
	}

	p.latch = nil
	p.pc = next
	p.fetchStopped = false
	p.recomputeFlagProducer()

	p.stats.Flushes++
	p.stats.BranchMispredictions++

	p.logger.V(1).Info("flush",
		"cycle", p.cycle, "branch", s.String(), "next", next,
		"iq", len(fromIQ), "rob", len(fromROB))
	p.trace(HookPosFlush, s, fromROB)

	return nil
}

func (p *Pipeline) recomputeFlagProducer() {
	p.hasFlagProducer = false
	entries := p.rob.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Op.IsArithmetic() {
			p.flagProducer = entries[i].Timestamp
			p.hasFlagProducer = true
			return
		}
	}
}

// onIssue runs when a functional unit accepts an instruction.
func (p *Pipeline) onIssue(s *Stage) {
	p.rob.MarkIssued(s.Timestamp)
	p.stats.Issued++
	p.trace(HookPosIssue, s, nil)
}

// dispatchStage moves the decode latch into the issue queue and ROB.
func (p *Pipeline) dispatchStage() {
	if p.latch == nil {
		p.stats.NoDispatchCycles++
		return
	}

	err := p.dispatch(p.latch)
	switch {
	case err == nil:
		p.latch = nil
	case errors.Is(err, ErrBackpressure), errors.Is(err, ErrResourceExhausted):
		p.stats.NoDispatchCycles++
		p.logger.V(1).Info("dispatch stalled", "cycle", p.cycle, "reason", err.Error())
	default:
		p.fault(err)
	}
}

// dispatch renames f and places it in the issue queue and ROB. Nothing is
// changed when a structural limit rejects it.
func (p *Pipeline) dispatch(f *fetched) error {
	inst := f.inst

	if p.rob.Full() {
		return fmt.Errorf("reorder buffer: %w", ErrBackpressure)
	}

	s := NewStage(inst, p.nextTimestamp)
	s.PredictedNext = f.predictedNext

	if inst.Op.BypassesIssue() {
		return p.dispatchDirect(s)
	}

	if p.iq.Full() {
		return fmt.Errorf("issue queue: %w", ErrBackpressure)
	}
	if s.HasDest() && p.regs.FreeCount() == 0 {
		return ErrResourceExhausted
	}

	for _, i := range inst.Op.Shape().Sources() {
		if inst.Operands[i].IsLiteral {
			continue
		}
		arch := s.Operands[i]
		phys, _ := p.regs.Mapping(arch)
		s.Values[i], s.Valids[i] = p.regs.ReadValid(arch)
		s.Operands[i] = PhysName(phys)
	}

	if inst.Op.IsConditionalBranch() && p.hasFlagProducer {
		s.FlagSource = p.flagProducer
		s.HasFlagSource = true
	}

	if s.HasDest() {
		s.PrevPhys, _ = p.regs.Mapping(s.Dest)
		phys, err := p.regs.Rename(s.Dest)
		if err != nil {
			return err
		}
		s.Phys = phys
		if idx := inst.Op.Shape().DestIndex(); idx >= 0 {
			s.Operands[idx] = PhysName(phys)
		}
	}

	if err := p.iq.Dispatch(s); err != nil {
		p.undoRename(s)
		return err
	}
	if err := p.rob.Append(s); err != nil {
		return err
	}

	if inst.Op.IsArithmetic() {
		p.flagProducer = s.Timestamp
		p.hasFlagProducer = true
	}

	p.dispatched(s)

	return nil
}

// dispatchDirect places HALT or NOP in the ROB, already complete.
func (p *Pipeline) dispatchDirect(s *Stage) error {
	s.Ready = true
	s.Occupied = true

	if err := p.rob.Append(s); err != nil {
		return err
	}
	p.rob.MarkIssued(s.Timestamp)
	p.rob.Complete(s.Timestamp, Outcome{NextPC: s.PC + 4}, p.cycle)

	if s.Op == insts.OpHALT {
		p.logger.V(1).Info("halt dispatched", "cycle", p.cycle, "pc", s.PC)
	}

	p.stats.Issued++
	p.dispatched(s)

	return nil
}

func (p *Pipeline) dispatched(s *Stage) {
	p.nextTimestamp++
	p.stats.Dispatched++
	p.trace(HookPosDispatch, s, nil)
}

func (p *Pipeline) undoRename(s *Stage) {
	if s.Phys == NoPhys {
		return
	}
	p.regs.Restore(s.Dest, s.PrevPhys)
	_ = p.regs.Reclaim(s.Phys)
}

// fetchStage reads the next instruction into the decode latch and predicts
// its successor.
func (p *Pipeline) fetchStage() {
	if p.latch != nil || p.fetchStopped {
		return
	}

	inst, ok := p.code[p.pc]
	if !ok {
		return
	}

	next := p.predictor.PredictNext(inst)
	p.latch = &fetched{inst: inst, predictedNext: next}
	p.pc = next

	if inst.Op == insts.OpHALT {
		p.fetchStopped = true
	}
}
