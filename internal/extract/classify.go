package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// keywordFamilies is the classification table, evaluated in order. Every
// family is checked against every line; when more than one matches, the last
// successful family keeps the line. A family only claims a line when its
// value extraction succeeds, so "Total due soon" with no digits stays
// unclassified by the total family.
var keywordFamilies = []struct {
	class    Classification
	contains []string
	excludes []string
	extract  func(string) (decimal.Decimal, bool)
}{
	{ClassTotal, []string{"total"}, []string{"subtotal"}, ExtractAmount},
	{ClassSubtotal, []string{"subtotal"}, nil, ExtractAmount},
	{ClassTax, []string{"vat", "tax"}, []string{"subtotal"}, ExtractPercentage},
	{ClassService, []string{"service", "tip"}, nil, ExtractPercentage},
}

// ClassifiedLine is the outcome of classifying one recognized line. Value
// holds the extracted amount for subtotal/total lines and the extracted
// percentage for tax/service lines; Item is set for line items.
type ClassifiedLine struct {
	Class Classification
	Value decimal.Decimal
	Item  *ReceiptItem
}

// ClassifyLine assigns a single classification to a text line. The keyword
// families are tried first; a line claimed by none of them is parsed as a
// line item. The second return value is false when the line matches nothing,
// which is common: store names, addresses and greetings all fall through.
func ClassifyLine(text string) (ClassifiedLine, bool) {
	lowered := strings.ToLower(text)

	var result ClassifiedLine
	var claimed bool
	for _, family := range keywordFamilies {
		if !containsAny(lowered, family.contains) {
			continue
		}
		if containsAny(lowered, family.excludes) {
			continue
		}
		value, ok := family.extract(text)
		if !ok {
			continue
		}
		result = ClassifiedLine{Class: family.class, Value: value}
		claimed = true
	}
	if claimed {
		return result, true
	}

	item, ok := parseItem(text)
	if !ok {
		return ClassifiedLine{}, false
	}
	return ClassifiedLine{Class: ClassLineItem, Item: item}, true
}

func containsAny(lowered string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// parseItem parses lines shaped like "Item Name 25.50" or "Coffee x2 51.00".
// Tokens are scanned right to left: an "x<N>" token sets the quantity, the
// first token parsing as a positive decimal anchors the price, and what
// remains to its left is the item name. The matched number is the line
// total, so the stored unit price is divided back by the quantity.
func parseItem(line string) (*ReceiptItem, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, false
	}

	quantity := 1
	priceIdx := -1
	var price decimal.Decimal

	for i := len(fields) - 1; i >= 0; i-- {
		if q, ok := parseQuantityToken(fields[i]); ok {
			quantity = q
			continue
		}
		cleaned := strings.ReplaceAll(fields[i], ",", "")
		if d, err := decimal.NewFromString(cleaned); err == nil && d.IsPositive() {
			price = d
			priceIdx = i
			break
		}
	}
	if priceIdx == -1 {
		return nil, false
	}

	nameParts := make([]string, 0, priceIdx)
	for _, tok := range fields[:priceIdx] {
		if q, ok := parseQuantityToken(tok); ok {
			quantity = q
			continue
		}
		nameParts = append(nameParts, tok)
	}

	name := strings.TrimSpace(strings.Join(nameParts, " "))
	if name == "" {
		return nil, false
	}

	return &ReceiptItem{
		Name:      name,
		UnitPrice: price.Div(decimal.NewFromInt(int64(quantity))),
		Quantity:  quantity,
	}, true
}

// parseQuantityToken recognizes quantity markers like "x2" or "X3".
func parseQuantityToken(tok string) (int, bool) {
	if len(tok) < 2 || (tok[0] != 'x' && tok[0] != 'X') {
		return 0, false
	}
	q, err := strconv.Atoi(tok[1:])
	if err != nil || q < 1 {
		return 0, false
	}
	return q, true
}
