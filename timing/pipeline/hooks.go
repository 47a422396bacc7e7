package pipeline

import "github.com/sarchlab/akita/v4/sim"

// Hook positions invoked by the Pipeline. Item is the *Stage or *ROBEntry
// concerned.
var (
	// HookPosDispatch fires when an instruction enters the ROB.
	HookPosDispatch = &sim.HookPos{Name: "Dispatch"}
	// HookPosIssue fires when a functional unit accepts an instruction.
	HookPosIssue = &sim.HookPos{Name: "Issue"}
	// HookPosComplete fires when a functional unit finishes. Detail is
	// the Outcome.
	HookPosComplete = &sim.HookPos{Name: "Complete"}
	// HookPosCommit fires when an instruction retires.
	HookPosCommit = &sim.HookPos{Name: "Commit"}
	// HookPosFlush fires on misprediction recovery. Item is the branch;
	// Detail holds the squashed ROB entries, youngest first.
	HookPosFlush = &sim.HookPos{Name: "Flush"}
)

func (p *Pipeline) trace(pos *sim.HookPos, item, detail interface{}) {
	if p.NumHooks() == 0 {
		return
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
