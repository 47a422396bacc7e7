package pipeline_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("RegisterFile", func() {
	var rf *pipeline.RegisterFile

	BeforeEach(func() {
		var err error
		rf, err = pipeline.NewRegisterFile(insts.ArchRegisterNames(), 20)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject a table no larger than the architectural set", func() {
		_, err := pipeline.NewRegisterFile(insts.ArchRegisterNames(), 17)
		Expect(err).To(HaveOccurred())
	})

	It("should map every architectural register to a valid zero", func() {
		for i, name := range insts.ArchRegisterNames() {
			phys, ok := rf.Mapping(name)
			Expect(ok).To(BeTrue())
			Expect(phys).To(Equal(i))

			v, valid := rf.ReadValid(name)
			Expect(valid).To(BeTrue())
			Expect(v).To(BeZero())
		}
		Expect(rf.FreeCount()).To(Equal(3))
	})

	Describe("Rename", func() {
		It("should allocate the lowest free register first", func() {
			phys, err := rf.Rename("R1")
			Expect(err).NotTo(HaveOccurred())
			Expect(phys).To(Equal(17))
			Expect(rf.IsFree(17)).To(BeFalse())

			m, _ := rf.Mapping("R1")
			Expect(m).To(Equal(17))

			_, valid := rf.ReadValid("R1")
			Expect(valid).To(BeFalse())
		})

		It("should fail with ErrResourceExhausted when the free list is empty", func() {
			for i := 0; i < 3; i++ {
				_, err := rf.Rename("R1")
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := rf.Rename("R2")
			Expect(err).To(MatchError(pipeline.ErrResourceExhausted))

			m, _ := rf.Mapping("R2")
			Expect(m).To(Equal(2))
		})

		It("should reject unknown names", func() {
			_, err := rf.Rename("R99")
			Expect(err).To(HaveOccurred())
			Expect(rf.FreeCount()).To(Equal(3))
		})
	})

	Describe("Retire", func() {
		It("should free the previously committed register", func() {
			phys, _ := rf.Rename("R1")
			rf.Write(phys, 42)

			Expect(rf.Retire("R1", phys)).To(Succeed())

			Expect(rf.IsFree(1)).To(BeTrue())
			Expect(rf.ArchValue("R1")).To(Equal(int32(42)))
			retired, _ := rf.RetiredMapping("R1")
			Expect(retired).To(Equal(phys))
			Expect(rf.FreeCount()).To(Equal(3))
		})

		It("should refuse to retire a register that is not in flight", func() {
			err := rf.Retire("R1", 18)
			Expect(err).To(MatchError(pipeline.ErrInvariantViolation))
		})
	})

	Describe("Reclaim", func() {
		It("should return an in-flight register for immediate reuse", func() {
			phys, _ := rf.Rename("R1")
			rf.Restore("R1", 1)
			Expect(rf.Reclaim(phys)).To(Succeed())

			again, err := rf.Rename("R5")
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(phys))
		})

		It("should never free a register twice", func() {
			phys, _ := rf.Rename("R1")
			Expect(rf.Reclaim(phys)).To(Succeed())
			Expect(rf.Reclaim(phys)).To(MatchError(pipeline.ErrInvariantViolation))
			Expect(rf.FreeCount()).To(Equal(3))
		})

		It("should refuse to reclaim a retired register", func() {
			Expect(rf.Reclaim(0)).To(MatchError(pipeline.ErrInvariantViolation))
		})
	})

	It("should parse the names it generates", func() {
		id, ok := pipeline.ParsePhysName(pipeline.PhysName(23))
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal(23))

		_, ok = pipeline.ParsePhysName("R3")
		Expect(ok).To(BeFalse())
	})

	It("should display committed values and mappings", func() {
		phys, _ := rf.Rename("R3")
		rf.Write(phys, 9)

		var buf bytes.Buffer
		Expect(rf.Display(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("R3  = 0"))
		Expect(buf.String()).To(ContainSubstring("-> P17"))
		Expect(buf.String()).To(ContainSubstring("free physical registers: 2"))
	})

	It("should restore the initial state on Reset", func() {
		_, _ = rf.Rename("R1")
		rf.Reset()

		m, _ := rf.Mapping("R1")
		Expect(m).To(Equal(1))
		Expect(rf.FreeCount()).To(Equal(3))
	})
})
