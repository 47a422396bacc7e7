package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
)

var _ = Describe("Insts Package", func() {
	It("should have an Instruction type", func() {
		var i insts.Instruction
		Expect(i).To(BeZero())
	})

	It("should have a Decoder type", func() {
		decoder := insts.NewDecoder()
		Expect(decoder).ToNot(BeNil())
	})

	It("should name seventeen architectural registers", func() {
		names := insts.ArchRegisterNames()
		Expect(names).To(HaveLen(17))
		Expect(names[0]).To(Equal("R0"))
		Expect(names[15]).To(Equal("R15"))
		Expect(names[16]).To(Equal(insts.RegisterX))
	})

	DescribeTable("IsRegisterName",
		func(tok string, want bool) {
			Expect(insts.IsRegisterName(tok)).To(Equal(want))
		},
		Entry("R0", "R0", true),
		Entry("R15", "R15", true),
		Entry("X", "X", true),
		Entry("R16 is out of range", "R16", false),
		Entry("leading zero", "R01", false),
		Entry("literal", "5", false),
		Entry("bare R", "R", false),
	)
})

var _ = Describe("Op", func() {
	It("should round-trip every mnemonic", func() {
		for op := insts.OpADD; op <= insts.OpNOP; op++ {
			got, ok := insts.LookupOp(op.String())
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(op))
		}
	})

	It("should reject unknown mnemonics", func() {
		_, ok := insts.LookupOp("XOR")
		Expect(ok).To(BeFalse())
	})

	DescribeTable("source operand positions",
		func(op insts.Op, sources []int) {
			Expect(op.Shape().Sources()).To(Equal(sources))
		},
		Entry("ADD", insts.OpADD, []int{1, 2}),
		Entry("SUB", insts.OpSUB, []int{1, 2}),
		Entry("MUL", insts.OpMUL, []int{1, 2}),
		Entry("AND", insts.OpAND, []int{1, 2}),
		Entry("OR", insts.OpOR, []int{1, 2}),
		Entry("EX-OR", insts.OpEXOR, []int{1, 2}),
		Entry("LOAD", insts.OpLOAD, []int{1}),
		Entry("STORE", insts.OpSTORE, []int{0, 1}),
		Entry("BAL", insts.OpBAL, []int{0}),
		Entry("JUMP", insts.OpJUMP, []int{0}),
		Entry("MOVC", insts.OpMOVC, nil),
		Entry("BZ", insts.OpBZ, nil),
		Entry("BNZ", insts.OpBNZ, nil),
		Entry("HALT", insts.OpHALT, nil),
	)

	It("should give BAL an implicit X destination", func() {
		shape := insts.OpBAL.Shape()
		Expect(shape.DestIndex()).To(Equal(-1))
		Expect(shape.ImplicitDest).To(Equal(insts.RegisterX))
	})

	It("should classify arithmetic opcodes", func() {
		Expect(insts.OpMUL.IsArithmetic()).To(BeTrue())
		Expect(insts.OpEXOR.IsArithmetic()).To(BeTrue())
		Expect(insts.OpMOVC.IsArithmetic()).To(BeFalse())
		Expect(insts.OpLOAD.IsArithmetic()).To(BeFalse())
	})
})
