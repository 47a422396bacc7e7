package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	var bp *pipeline.BranchPredictor

	BeforeEach(func() {
		bp = pipeline.NewBranchPredictor(pipeline.BranchPredictorConfig{
			CounterEntries: 16,
			TargetEntries:  8,
		})
	})

	Describe("Validate", func() {
		It("should accept the default and zero sizes", func() {
			Expect(pipeline.DefaultBranchPredictorConfig().Validate()).To(Succeed())
			Expect(pipeline.BranchPredictorConfig{}.Validate()).To(Succeed())
		})

		It("should reject table sizes that are not a power of 2", func() {
			config := pipeline.DefaultBranchPredictorConfig()
			config.CounterEntries = 10
			Expect(config.Validate()).To(MatchError(ContainSubstring("counter_entries")))

			config = pipeline.DefaultBranchPredictorConfig()
			config.TargetEntries = 12
			Expect(config.Validate()).To(MatchError(ContainSubstring("target_entries")))
		})
	})

	Describe("Prediction", func() {
		It("should initially predict taken (biased)", func() {
			Expect(bp.Predict(4000).Taken).To(BeTrue())
		})

		It("should not know target initially", func() {
			Expect(bp.Predict(4000).TargetKnown).To(BeFalse())
		})

		It("should learn a taken branch and its target", func() {
			for i := 0; i < 4; i++ {
				bp.Update(4000, true, 4100)
			}

			pred := bp.Predict(4000)
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(uint64(4100)))
		})

		It("should learn not-taken pattern", func() {
			for i := 0; i < 4; i++ {
				bp.Update(4000, false, 4100)
			}

			Expect(bp.Predict(4000).Taken).To(BeFalse())
		})
	})

	Describe("2-bit saturating counter", func() {
		It("should require 2 mispredictions to change direction", func() {
			bp.Update(4000, true, 4100)
			bp.Update(4000, true, 4100)

			bp.Update(4000, false, 4100)
			Expect(bp.Predict(4000).Taken).To(BeTrue())

			bp.Update(4000, false, 4100)
			Expect(bp.Predict(4000).Taken).To(BeFalse())
		})
	})

	Describe("PredictNext", func() {
		It("should fall through for non-branches", func() {
			Expect(bp.PredictNext(decode("ADD R1,R2,R3", 4000))).To(Equal(uint64(4004)))
		})

		It("should use the literal target of a conditional branch predicted taken", func() {
			Expect(bp.PredictNext(decode("BNZ #-8", 4020))).To(Equal(uint64(4012)))
		})

		It("should fall through a conditional branch predicted not taken", func() {
			bp.Update(4020, false, 4012)
			bp.Update(4020, false, 4012)

			Expect(bp.PredictNext(decode("BNZ #-8", 4020))).To(Equal(uint64(4024)))
		})

		It("should fall through a JUMP until its target is learned", func() {
			inst := decode("JUMP R1,#0", 4000)
			Expect(bp.PredictNext(inst)).To(Equal(uint64(4004)))

			bp.Update(4000, true, 4040)
			Expect(bp.PredictNext(inst)).To(Equal(uint64(4040)))
		})
	})

	Describe("Statistics", func() {
		It("should track predictions and accuracy", func() {
			bp.Predict(4000)
			bp.Update(4000, true, 4100)
			bp.Update(4000, false, 4100)

			stats := bp.Stats()
			Expect(stats.Predictions).To(Equal(uint64(1)))
			Expect(stats.Correct).To(Equal(uint64(1)))
			Expect(stats.Mispredictions).To(Equal(uint64(1)))
			Expect(stats.Accuracy()).To(BeNumerically("~", 50.0))
		})

		It("should clear statistics and state on Reset", func() {
			bp.Update(4000, true, 4100)
			bp.Predict(4000)
			bp.Reset()

			Expect(bp.Stats()).To(Equal(pipeline.BranchPredictorStats{}))
			Expect(bp.Predict(4000).TargetKnown).To(BeFalse())
		})
	})
})
