package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should start zeroed", func() {
		v, err := memory.ReadMem(100)
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(BeZero())
		Expect(memory.Size()).To(Equal(emu.DefaultMemorySize))
	})

	It("should read back a written word", func() {
		Expect(memory.WriteMem(8, -5)).To(Succeed())
		Expect(memory.ReadMem(8)).To(Equal(int32(-5)))
	})

	It("should accept the last word", func() {
		Expect(memory.WriteMem(3996, 1)).To(Succeed())
	})

	DescribeTable("invalid addresses",
		func(addr int32) {
			_, err := memory.ReadMem(addr)
			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))
			Expect(memory.WriteMem(addr, 1)).To(MatchError(emu.ErrAddressOutOfRange))
		},
		Entry("negative", int32(-4)),
		Entry("past the end", int32(4000)),
		Entry("misaligned", int32(6)),
	)

	It("should zero every word on Reset", func() {
		Expect(memory.WriteMem(0, 9)).To(Succeed())
		memory.Reset()
		Expect(memory.ReadMem(0)).To(BeZero())
	})

	It("should display an inclusive range", func() {
		Expect(memory.WriteMem(4, 7)).To(Succeed())
		var buf bytes.Buffer

		Expect(memory.Display(&buf, 0, 8)).To(Succeed())

		Expect(buf.String()).To(Equal("MEM[   0] = 0\nMEM[   4] = 7\nMEM[   8] = 0\n"))
	})
})
