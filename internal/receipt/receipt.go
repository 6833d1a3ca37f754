package receipt

import (
	"time"

	"github.com/fairshare/billscan/internal/extract"
	"github.com/shopspring/decimal"
)

// Receipt is a stored extraction: the structured bill plus the metadata of
// the capture it came from.
type Receipt struct {
	ID                string                `json:"id"`
	Items             []extract.ReceiptItem `json:"items"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	VATPercentage     *decimal.Decimal      `json:"vat_percentage,omitempty"`
	ServicePercentage *decimal.Decimal      `json:"service_percentage,omitempty"`
	Total             *decimal.Decimal      `json:"total,omitempty"`
	BoundingBoxes     []extract.BoundingBox `json:"bounding_boxes"`
	Filename          string                `json:"filename"`
	ContentType       string                `json:"content_type"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// GrandTotal is the printed total when one was recognized, otherwise the
// subtotal with the recognized VAT and service percentages applied.
func (r *Receipt) GrandTotal() decimal.Decimal {
	if r.Total != nil {
		return *r.Total
	}
	total := r.Subtotal
	if r.VATPercentage != nil {
		total = total.Add(r.Subtotal.Mul(*r.VATPercentage).Div(decimal.NewFromInt(100)))
	}
	if r.ServicePercentage != nil {
		total = total.Add(r.Subtotal.Mul(*r.ServicePercentage).Div(decimal.NewFromInt(100)))
	}
	return total
}
