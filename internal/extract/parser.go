package extract

import (
	"github.com/fairshare/billscan/internal/vision"
	"github.com/shopspring/decimal"
)

// ParseLines runs the line classifier over a full-page recognition pass and
// assembles the structured receipt. Lines are taken in the order the
// recognizer produced them; the parser never reorders. For each of the
// subtotal, VAT, service and total fields the first value encountered wins.
// Lines that classify as nothing contribute nothing: a receipt photo always
// carries unparseable noise and partial results beat hard failure.
//
// Image dimensions are needed to place the UI bounding boxes in pixel space.
func ParseLines(lines []vision.RecognizedLine, imageWidth, imageHeight int) *StructuredReceipt {
	receipt := &StructuredReceipt{
		Items:         []ReceiptItem{},
		BoundingBoxes: []BoundingBox{},
	}

	for _, line := range lines {
		classified, ok := ClassifyLine(line.Text)
		if !ok {
			continue
		}

		switch classified.Class {
		case ClassLineItem:
			receipt.Items = append(receipt.Items, *classified.Item)
		case ClassSubtotal:
			setIfAbsent(&receipt.Subtotal, classified.Value)
		case ClassTax:
			setIfAbsent(&receipt.VATPercentage, classified.Value)
		case ClassService:
			setIfAbsent(&receipt.ServicePercentage, classified.Value)
		case ClassTotal:
			setIfAbsent(&receipt.Total, classified.Value)
		}

		receipt.BoundingBoxes = append(receipt.BoundingBoxes, BoundingBox{
			Rect:  imageRect(line.BoundingBox, imageWidth, imageHeight),
			Text:  line.Text,
			Class: classified.Class,
		})
	}

	// A receipt with no subtotal line still gets one: the sum of the item
	// totals, zero when nothing parsed.
	if receipt.Subtotal == nil {
		sum := decimal.Zero
		for _, item := range receipt.Items {
			sum = sum.Add(item.TotalPrice())
		}
		receipt.Subtotal = &sum
	}

	return receipt
}

func setIfAbsent(field **decimal.Decimal, value decimal.Decimal) {
	if *field == nil {
		*field = &value
	}
}
