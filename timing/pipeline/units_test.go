package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("FunctionalUnit", func() {
	var unit *pipeline.FunctionalUnit

	BeforeEach(func() {
		unit = pipeline.NewFunctionalUnit(pipeline.UnitMultiply, 2)
	})

	It("should report its class and latency", func() {
		Expect(unit.Class()).To(Equal(pipeline.UnitMultiply))
		Expect(unit.Class().String()).To(Equal("mul"))
		Expect(unit.Latency()).To(Equal(uint64(2)))
	})

	It("should finish after its latency", func() {
		Expect(unit.Accept(stageFor("MUL R1,R2,R3", 0))).To(Succeed())
		Expect(unit.Busy()).To(BeTrue())

		unit.Advance()
		Expect(unit.Done()).To(BeFalse())
		unit.Advance()
		Expect(unit.Done()).To(BeTrue())

		s := unit.Release()
		Expect(s.Op).To(Equal(insts.OpMUL))
		Expect(unit.Busy()).To(BeFalse())
	})

	It("should reject a second instruction while busy", func() {
		Expect(unit.Accept(stageFor("MUL R1,R2,R3", 0))).To(Succeed())
		Expect(unit.Accept(stageFor("MUL R4,R2,R3", 1))).To(MatchError(pipeline.ErrUnitBusy))
		Expect(unit.Peek().Timestamp).To(BeZero())
	})

	It("should squash only instructions at or after the threshold", func() {
		Expect(unit.Accept(stageFor("MUL R1,R2,R3", 4))).To(Succeed())

		Expect(unit.Squash(5)).To(BeNil())
		Expect(unit.Busy()).To(BeTrue())

		Expect(unit.Squash(4)).NotTo(BeNil())
		Expect(unit.Busy()).To(BeFalse())
	})

	It("should treat a zero latency as one cycle", func() {
		u := pipeline.NewFunctionalUnit(pipeline.UnitALU, 0)
		Expect(u.Latency()).To(Equal(uint64(1)))
	})

	DescribeTable("ClassOf",
		func(op insts.Op, want pipeline.UnitClass) {
			Expect(pipeline.ClassOf(op)).To(Equal(want))
		},
		Entry("ADD", insts.OpADD, pipeline.UnitALU),
		Entry("EX-OR", insts.OpEXOR, pipeline.UnitALU),
		Entry("MOVC", insts.OpMOVC, pipeline.UnitALU),
		Entry("MUL", insts.OpMUL, pipeline.UnitMultiply),
		Entry("LOAD", insts.OpLOAD, pipeline.UnitLoadStore),
		Entry("STORE", insts.OpSTORE, pipeline.UnitLoadStore),
		Entry("BZ", insts.OpBZ, pipeline.UnitBranch),
		Entry("BAL", insts.OpBAL, pipeline.UnitBranch),
		Entry("JUMP", insts.OpJUMP, pipeline.UnitBranch),
		Entry("HALT", insts.OpHALT, pipeline.UnitNone),
		Entry("NOP", insts.OpNOP, pipeline.UnitNone),
	)
})
