package extract

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// ExtractPercentage returns the value of the first decimal number immediately
// followed by '%' in the line, e.g. "VAT 14%" -> 14.
func ExtractPercentage(line string) (decimal.Decimal, bool) {
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(match[1])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// ExtractAmount reads a monetary amount from a line by concatenating every
// decimal digit and placing an implied two-digit fractional part: "25.50"
// -> digits "2550" -> 25.50.
//
// TODO: scope this to the first contiguous number. Every digit in the line
// currently participates, so "Total 25.50 USD #3" folds the trailing 3 into
// the amount. Changing it breaks compatibility with existing captures, so it
// needs a migration of stored extractions first.
func ExtractAmount(line string) (decimal.Decimal, bool) {
	digits := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] >= '0' && line[i] <= '9' {
			digits = append(digits, line[i])
		}
	}
	if len(digits) == 0 {
		return decimal.Decimal{}, false
	}

	value, err := decimal.NewFromString(string(digits))
	if err != nil {
		return decimal.Decimal{}, false
	}
	// Last two digits are cents.
	return value.Shift(-2), true
}
