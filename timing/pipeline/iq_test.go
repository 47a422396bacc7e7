package pipeline_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("IssueQueue", func() {
	var (
		iq                    *pipeline.IssueQueue
		alu, mul, lsu, branch *pipeline.FunctionalUnit
	)

	ready := func(line string, ts uint64) *pipeline.Stage {
		s := stageFor(line, ts)
		for i := range s.Valids {
			s.Valids[i] = true
		}
		return s
	}

	BeforeEach(func() {
		iq = pipeline.NewIssueQueue(16, 3)
		alu = pipeline.NewFunctionalUnit(pipeline.UnitALU, 1)
		mul = pipeline.NewFunctionalUnit(pipeline.UnitMultiply, 2)
		lsu = pipeline.NewFunctionalUnit(pipeline.UnitLoadStore, 3)
		branch = pipeline.NewFunctionalUnit(pipeline.UnitBranch, 1)
	})

	issue := func() bool {
		return iq.Issue(alu, mul, lsu, branch)
	}

	Describe("Dispatch", func() {
		It("should mark an entry ready when its sources are valid", func() {
			s := ready("ADD R1,R2,R3", 0)
			Expect(iq.Dispatch(s)).To(Succeed())

			Expect(s.Ready).To(BeTrue())
			Expect(s.Occupied).To(BeTrue())
		})

		It("should mark an entry not ready while a source is pending", func() {
			s := stageFor("ADD R1,R2,R3", 0)
			s.Valids[1] = true
			Expect(iq.Dispatch(s)).To(Succeed())

			Expect(s.Ready).To(BeFalse())
		})

		It("should mark immediate-only opcodes ready at once", func() {
			s := stageFor("MOVC R1,#5", 0)
			Expect(iq.Dispatch(s)).To(Succeed())
			Expect(s.Ready).To(BeTrue())
		})

		It("should reject a fifth entry at capacity four and leave the queue unchanged", func() {
			iq = pipeline.NewIssueQueue(4, 3)
			for ts := uint64(0); ts < 4; ts++ {
				Expect(iq.Dispatch(stageFor("ADD R1,R2,R3", ts))).To(Succeed())
			}
			before := cloneAll(iq.Entries())

			err := iq.Dispatch(stageFor("ADD R1,R2,R3", 4))

			Expect(err).To(MatchError(pipeline.ErrBackpressure))
			Expect(iq.Len()).To(Equal(4))
			Expect(cmp.Diff(before, iq.Entries())).To(BeEmpty())
		})

		It("should reject an entry older than the tail", func() {
			Expect(iq.Dispatch(stageFor("NOP", 5))).To(Succeed())
			Expect(iq.Dispatch(stageFor("NOP", 2))).To(MatchError(pipeline.ErrInvariantViolation))
		})
	})

	Describe("ApplyForward", func() {
		It("should make a waiting ADD issue after its operand arrives", func() {
			s := stageFor("ADD R1,R2,R3", 0)
			s.Valids[1] = true
			Expect(iq.Dispatch(s)).To(Succeed())
			Expect(issue()).To(BeFalse())

			iq.ApplyForward("R3", 7)

			Expect(s.Values[2]).To(Equal(int32(7)))
			Expect(s.Ready).To(BeTrue())
			Expect(issue()).To(BeTrue())
			Expect(alu.Peek()).To(BeIdenticalTo(s))
			Expect(iq.IsEmpty()).To(BeTrue())
		})

		It("should only touch source positions", func() {
			s := stageFor("ADD R1,R1,R2", 0)
			Expect(iq.Dispatch(s)).To(Succeed())

			iq.ApplyForward("R1", 3)

			Expect(s.Valids).To(Equal([]bool{false, true, false}))
		})

		It("should fill both STORE sources", func() {
			s := stageFor("STORE R4,R5,#0", 0)
			Expect(iq.Dispatch(s)).To(Succeed())

			iq.ApplyForward("R4", 1)
			Expect(s.Ready).To(BeFalse())
			iq.ApplyForward("R5", 2)
			Expect(s.Ready).To(BeTrue())
			Expect(s.Values[:2]).To(Equal([]int32{1, 2}))
		})

		It("should never reset a valid bit", func() {
			s := ready("ADD R1,R2,R3", 0)
			Expect(iq.Dispatch(s)).To(Succeed())

			iq.ApplyForward("R9", 1)
			iq.ApplyForward("R2", 4)

			Expect(s.Valids[1:]).To(Equal([]bool{true, true}))
			Expect(s.Ready).To(BeTrue())
		})
	})

	Describe("Issue", func() {
		It("should issue at most three entries per call", func() {
			Expect(iq.Dispatch(ready("ADD R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("MUL R4,R2,R3", 1))).To(Succeed())
			Expect(iq.Dispatch(ready("LOAD R5,R2,#0", 2))).To(Succeed())
			Expect(iq.Dispatch(ready("JUMP R6,#0", 3))).To(Succeed())

			Expect(issue()).To(BeTrue())

			Expect(iq.Len()).To(Equal(1))
			Expect(iq.Entries()[0].Op).To(Equal(insts.OpJUMP))
			Expect(branch.Busy()).To(BeFalse())
		})

		It("should honour a configured issue width", func() {
			iq = pipeline.NewIssueQueue(16, 1)
			Expect(iq.Dispatch(ready("ADD R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("MUL R4,R2,R3", 1))).To(Succeed())

			Expect(issue()).To(BeTrue())
			Expect(iq.Len()).To(Equal(1))
		})

		It("should never hand two instructions to the same unit", func() {
			Expect(iq.Dispatch(ready("ADD R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("SUB R4,R2,R3", 1))).To(Succeed())

			Expect(issue()).To(BeTrue())

			Expect(iq.Len()).To(Equal(1))
			Expect(iq.Entries()[0].Op).To(Equal(insts.OpSUB))
		})

		It("should leave an entry queued while its unit is busy", func() {
			Expect(alu.Accept(ready("ADD R7,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("ADD R1,R2,R3", 1))).To(Succeed())

			Expect(issue()).To(BeFalse())
			Expect(iq.Len()).To(Equal(1))
		})

		It("should let a younger ready entry pass an older waiting one", func() {
			Expect(iq.Dispatch(stageFor("ADD R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("MUL R4,R2,R3", 1))).To(Succeed())

			Expect(issue()).To(BeTrue())
			Expect(mul.Peek().Timestamp).To(Equal(uint64(1)))
		})

		It("should hold BZ behind an older queued arithmetic instruction", func() {
			Expect(iq.Dispatch(stageFor("SUB R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("BZ #8", 1))).To(Succeed())

			Expect(issue()).To(BeFalse())
			Expect(branch.Busy()).To(BeFalse())

			iq.ApplyForward("R2", 1)
			iq.ApplyForward("R3", 1)

			Expect(issue()).To(BeTrue())
			Expect(alu.Busy()).To(BeTrue())
			Expect(branch.Busy()).To(BeTrue())
		})

		It("should not hold JUMP behind arithmetic", func() {
			Expect(iq.Dispatch(stageFor("ADD R1,R2,R3", 0))).To(Succeed())
			Expect(iq.Dispatch(ready("JUMP R6,#0", 1))).To(Succeed())

			Expect(issue()).To(BeTrue())
			Expect(branch.Busy()).To(BeTrue())
		})

		It("should not hold BNZ behind a younger arithmetic instruction", func() {
			Expect(iq.Dispatch(ready("BNZ #-8", 0))).To(Succeed())
			Expect(iq.Dispatch(stageFor("ADD R1,R2,R3", 1))).To(Succeed())

			Expect(issue()).To(BeTrue())
			Expect(branch.Busy()).To(BeTrue())
		})
	})

	Describe("Flush", func() {
		var rf *pipeline.RegisterFile

		rename := func(s *pipeline.Stage) *pipeline.Stage {
			s.PrevPhys, _ = rf.Mapping(s.Dest)
			phys, err := rf.Rename(s.Dest)
			Expect(err).NotTo(HaveOccurred())
			s.Phys = phys
			return s
		}

		BeforeEach(func() {
			var err error
			rf, err = pipeline.NewRegisterFile(insts.ArchRegisterNames(), 24)
			Expect(err).NotTo(HaveOccurred())

			for ts := uint64(0); ts < 5; ts++ {
				Expect(iq.Dispatch(rename(stageFor("ADD R1,R2,R3", ts)))).To(Succeed())
			}
		})

		It("should remove exactly the entries at or after the threshold", func() {
			before := cloneAll(iq.Entries()[:3])

			removed, err := iq.Flush(3, rf)

			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(HaveLen(2))
			Expect(removed[0].Timestamp).To(Equal(uint64(3)))
			Expect(cmp.Diff(before, iq.Entries())).To(BeEmpty())
		})

		It("should free exactly the destinations of removed entries", func() {
			kept := iq.Entries()[:3]
			removed, err := iq.Flush(3, rf)
			Expect(err).NotTo(HaveOccurred())

			for _, s := range removed {
				Expect(rf.IsFree(s.Phys)).To(BeTrue())
			}
			for _, s := range kept {
				Expect(rf.IsFree(s.Phys)).To(BeFalse())
			}
			Expect(rf.FreeCount()).To(Equal(24 - 17 - 3))
		})

		It("should return a just-dispatched register for the next rename", func() {
			s := rename(stageFor("MOVC R4,#1", 5))
			Expect(iq.Dispatch(s)).To(Succeed())

			_, err := iq.Flush(s.Timestamp, rf)
			Expect(err).NotTo(HaveOccurred())

			Expect(iq.Len()).To(Equal(5))
			Expect(rf.IsFree(s.Phys)).To(BeTrue())
			phys, err := rf.Rename("R4")
			Expect(err).NotTo(HaveOccurred())
			Expect(phys).To(Equal(s.Phys))
		})

		It("should keep everything when the threshold is past the tail", func() {
			removed, err := iq.Flush(100, rf)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeEmpty())
			Expect(iq.Len()).To(Equal(5))
		})
	})

	Describe("HasOpcode", func() {
		It("should report queued opcodes", func() {
			Expect(iq.Dispatch(stageFor("MUL R1,R2,R3", 0))).To(Succeed())
			Expect(iq.HasOpcode(insts.OpMUL)).To(BeTrue())
			Expect(iq.HasOpcode(insts.OpADD)).To(BeFalse())
		})
	})

	It("should keep entries sorted by timestamp through issue and dispatch", func() {
		for ts := uint64(0); ts < 8; ts++ {
			line := "ADD R1,R2,R3"
			if ts%2 == 0 {
				line = "MOVC R1,#1"
			}
			Expect(iq.Dispatch(stageFor(line, ts))).To(Succeed())
			issue()
			alu.Release()
		}

		entries := iq.Entries()
		for i := 1; i < len(entries); i++ {
			Expect(entries[i].Timestamp).To(BeNumerically(">", entries[i-1].Timestamp))
		}
	})
})

func cloneAll(stages []*pipeline.Stage) []*pipeline.Stage {
	out := make([]*pipeline.Stage, len(stages))
	for i, s := range stages {
		out[i] = s.Clone()
	}
	return out
}
