package extract

import (
	"image"

	"github.com/shopspring/decimal"
)

// Classification labels a recognized line for UI highlighting.
type Classification string

const (
	ClassLineItem Classification = "line_item"
	ClassSubtotal Classification = "subtotal"
	ClassTax      Classification = "tax"
	ClassService  Classification = "service"
	ClassTotal    Classification = "total"
)

// ReceiptItem is one purchased item parsed from a receipt line.
type ReceiptItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// TotalPrice is the line total: unit price times quantity.
func (i ReceiptItem) TotalPrice() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// BoundingBox is a UI annotation: the image-space rectangle of a classified
// line. It is not authoritative data, just highlighting.
type BoundingBox struct {
	Rect  image.Rectangle `json:"rect"`
	Text  string          `json:"text"`
	Class Classification  `json:"class"`
}

// StructuredReceipt is the parsed, typed result of a full-page extraction.
// Optional fields are nil when no line produced them, except Subtotal which
// is backfilled from the item totals before the parser returns.
type StructuredReceipt struct {
	Items             []ReceiptItem    `json:"items"`
	Subtotal          *decimal.Decimal `json:"subtotal"`
	VATPercentage     *decimal.Decimal `json:"vat_percentage,omitempty"`
	ServicePercentage *decimal.Decimal `json:"service_percentage,omitempty"`
	Total             *decimal.Decimal `json:"total,omitempty"`
	BoundingBoxes     []BoundingBox    `json:"bounding_boxes"`
}
