package main

import (
	"github.com/go-logr/logr"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ sim.Hook = (*traceHook)(nil)

// traceHook logs every pipeline event it is invoked for.
type traceHook struct {
	logger logr.Logger
}

func newTraceHook(logger logr.Logger) *traceHook {
	return &traceHook{logger: logger.WithName("trace")}
}

// Func implements sim.Hook.
func (h *traceHook) Func(ctx sim.HookCtx) {
	cycle := uint64(0)
	if p, ok := ctx.Domain.(*pipeline.Pipeline); ok {
		cycle = p.Cycle()
	}

	kv := []interface{}{"cycle", cycle}

	switch item := ctx.Item.(type) {
	case *pipeline.Stage:
		kv = append(kv, "inst", item.String())
	case *pipeline.ROBEntry:
		kv = append(kv, "inst", item.Stage.String())
	}

	switch detail := ctx.Detail.(type) {
	case pipeline.Outcome:
		kv = append(kv, "result", detail.Result, "next", detail.NextPC)
	case []*pipeline.ROBEntry:
		kv = append(kv, "squashed", len(detail))
	}

	h.logger.Info(ctx.Pos.Name, kv...)
}
