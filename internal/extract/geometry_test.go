package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fairshare/billscan/internal/vision"
)

var _ = Describe("FilterRectangles", func() {
	var (
		candidates []vision.RectObservation
		width      int
		height     int
		kept       []vision.RectObservation
	)

	BeforeEach(func() {
		width = 1000
		height = 1000
	})

	JustBeforeEach(func() {
		kept = FilterRectangles(candidates, width, height)
	})

	When("a candidate is tall and large enough", func() {
		BeforeEach(func() {
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.3, Y: 0.1, W: 0.4, H: 0.8}, Confidence: 0.9},
			}
		})

		It("keeps it", func() {
			Expect(kept).To(HaveLen(1))
		})
	})

	When("a candidate is wider than it is tall", func() {
		BeforeEach(func() {
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.1, Y: 0.4, W: 0.8, H: 0.2}, Confidence: 0.9},
			}
		})

		It("rejects it", func() {
			Expect(kept).To(BeEmpty())
		})
	})

	When("a candidate is tall but not tall enough", func() {
		BeforeEach(func() {
			// height/width = 1.3, below the 1.4 silhouette cut
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.3, Y: 0.1, W: 0.4, H: 0.52}, Confidence: 0.9},
			}
		})

		It("rejects it", func() {
			Expect(kept).To(BeEmpty())
		})
	})

	When("a candidate is receipt-shaped but tiny", func() {
		BeforeEach(func() {
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.45, Y: 0.45, W: 0.05, H: 0.09}, Confidence: 0.9},
			}
		})

		It("rejects it", func() {
			Expect(kept).To(BeEmpty())
		})
	})

	When("the image is much taller than wide", func() {
		BeforeEach(func() {
			// Both dimensions are measured against the image width, so a
			// box spanning 9% of the width fails even on a tall frame.
			width = 500
			height = 2000
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.4, Y: 0.1, W: 0.09, H: 0.5}, Confidence: 0.9},
			}
		})

		It("still rejects narrow boxes", func() {
			Expect(kept).To(BeEmpty())
		})
	})

	When("several candidates survive", func() {
		BeforeEach(func() {
			candidates = []vision.RectObservation{
				{Box: vision.NormalizedRect{X: 0.1, Y: 0.1, W: 0.3, H: 0.7}, Confidence: 0.9},
				{Box: vision.NormalizedRect{X: 0.1, Y: 0.4, W: 0.8, H: 0.2}, Confidence: 0.8},
				{Box: vision.NormalizedRect{X: 0.6, Y: 0.1, W: 0.3, H: 0.6}, Confidence: 0.7},
			}
		})

		It("keeps the detector's ordering", func() {
			Expect(kept).To(HaveLen(2))
			Expect(kept[0].Confidence).To(Equal(0.9))
			Expect(kept[1].Confidence).To(Equal(0.7))
		})
	})

	When("there are no candidates", func() {
		BeforeEach(func() {
			candidates = nil
		})

		It("returns an empty slice", func() {
			Expect(kept).To(BeEmpty())
		})
	})
})
