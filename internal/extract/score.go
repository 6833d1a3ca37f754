package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fairshare/billscan/internal/vision"
)

// Sub-score weights. They are fixed heuristics, not learned parameters.
const (
	keywordWeight   = 0.4
	priceWeight     = 0.3
	bottomWeight    = 0.2
	alignmentWeight = 0.1
)

// scoreKeywords is the fixed vocabulary whose coverage drives the keyword
// sub-score.
var scoreKeywords = []string{"total", "subtotal", "tax", "service", "tip", "amount"}

var (
	pricePattern  = regexp.MustCompile(`\$?\d+\.\d{2}`)
	amountPattern = regexp.MustCompile(`\d+\.\d{2}`)
)

// ScoreLines estimates how much a region's recognized text looks like a
// receipt, as a value in [0, 1]. Four weighted signals: coverage of receipt
// keywords, density of price-shaped substrings, a large decimal amount among
// the bottom lines, and how tightly the line midpoints stack into a column.
// An empty line set scores 0.
func ScoreLines(lines []vision.RecognizedLine) float64 {
	if len(lines) == 0 {
		return 0
	}

	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.Text
	}
	joined := strings.Join(texts, " ")
	lowered := strings.ToLower(joined)

	var score float64

	// Keyword coverage
	keywordCount := 0
	for _, keyword := range scoreKeywords {
		if strings.Contains(lowered, keyword) {
			keywordCount++
		}
	}
	score += float64(keywordCount) / float64(len(scoreKeywords)) * keywordWeight

	// Price-pattern density, saturating at five matches
	priceCount := len(pricePattern.FindAllString(joined, -1))
	score += min(float64(priceCount)/5.0, 1.0) * priceWeight

	// A total-sized number among the bottom 30% of lines
	bottomCount := len(lines) * 3 / 10
	if bottomCount < 1 {
		bottomCount = 1
	}
	for _, line := range lines[len(lines)-bottomCount:] {
		match := amountPattern.FindString(line.Text)
		if match == "" {
			continue
		}
		value, err := strconv.ParseFloat(match, 64)
		if err == nil && value > 10.0 {
			score += bottomWeight
			break
		}
	}

	// Horizontal alignment: amounts stacked in a column have low midpoint
	// variance
	midpoints := make([]float64, len(lines))
	for i, line := range lines {
		midpoints[i] = line.BoundingBox.MidX()
	}
	alignment := 1.0 - variance(midpoints)*10
	if alignment < 0 {
		alignment = 0
	}
	score += alignment * alignmentWeight

	return min(score, 1.0)
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 1.0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
