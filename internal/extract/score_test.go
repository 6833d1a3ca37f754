package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fairshare/billscan/internal/vision"
)

// alignedLine builds a recognized line whose box is centered at x=0.5.
func alignedLine(text string) vision.RecognizedLine {
	return vision.RecognizedLine{
		Text:        text,
		BoundingBox: vision.NormalizedRect{X: 0.3, Y: 0.1, W: 0.4, H: 0.05},
		Confidence:  0.9,
	}
}

var _ = Describe("ScoreLines", func() {
	var (
		lines []vision.RecognizedLine
		score float64
	)

	JustBeforeEach(func() {
		score = ScoreLines(lines)
	})

	When("there are no lines", func() {
		BeforeEach(func() {
			lines = nil
		})

		It("scores zero", func() {
			Expect(score).To(BeZero())
		})
	})

	When("the lines read like a receipt", func() {
		BeforeEach(func() {
			lines = []vision.RecognizedLine{
				alignedLine("Burger 45.00"),
				alignedLine("Fries 20.00"),
				alignedLine("Subtotal 65.00"),
				alignedLine("Service 10%"),
				alignedLine("Total 79.00"),
			}
		})

		It("combines the four weighted signals", func() {
			// 3/6 keywords, 4/5 prices, a large bottom amount, perfect
			// alignment: 0.2 + 0.24 + 0.2 + 0.1
			Expect(score).To(BeNumerically("~", 0.74, 0.001))
		})
	})

	When("every signal saturates", func() {
		BeforeEach(func() {
			lines = []vision.RecognizedLine{
				alignedLine("Amount subtotal 11.00 tax tip 12.00"),
				alignedLine("Service 13.00 14.00 15.00"),
				alignedLine("Total 79.00"),
			}
		})

		It("clamps the score to one", func() {
			Expect(score).To(Equal(1.0))
		})
	})

	When("the lines are conversational text", func() {
		BeforeEach(func() {
			lines = []vision.RecognizedLine{
				alignedLine("Hello there"),
				alignedLine("General store opening hours"),
			}
		})

		It("scores low", func() {
			Expect(score).To(BeNumerically("<", 0.2))
		})
	})

	When("the large amounts sit at the top instead of the bottom", func() {
		BeforeEach(func() {
			lines = []vision.RecognizedLine{
				alignedLine("79.00 grand amount"),
				alignedLine("second line"),
				alignedLine("third line"),
				alignedLine("fourth line"),
			}
		})

		It("withholds the bottom-line signal", func() {
			// 1/6 keywords, 1/5 prices, no bottom amount, perfect
			// alignment
			Expect(score).To(BeNumerically("~", 0.0667+0.06+0.1, 0.001))
		})
	})

	When("the line midpoints scatter", func() {
		var aligned float64

		BeforeEach(func() {
			texts := []string{"Burger 45.00", "Fries 20.00", "Total 79.00"}
			lines = make([]vision.RecognizedLine, len(texts))
			for i, text := range texts {
				lines[i] = alignedLine(text)
			}
			aligned = ScoreLines(lines)

			// Spread the same lines across the frame.
			lines[0].BoundingBox.X = 0.0
			lines[1].BoundingBox.X = 0.55
			lines[2].BoundingBox.X = 0.3
		})

		It("scores below the aligned layout", func() {
			Expect(score).To(BeNumerically("<", aligned))
		})
	})

	When("the score is computed over any input", func() {
		BeforeEach(func() {
			lines = []vision.RecognizedLine{
				alignedLine("total total total 99999.99 11.11 22.22 33.33 44.44 55.55"),
			}
		})

		It("stays within the unit interval", func() {
			Expect(score).To(BeNumerically(">=", 0.0))
			Expect(score).To(BeNumerically("<=", 1.0))
		})
	})
})
