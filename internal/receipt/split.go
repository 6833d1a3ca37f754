package receipt

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PersonShare is one participant's slice of a bill: their item shares plus a
// proportional cut of the recognized VAT and service percentages.
type PersonShare struct {
	Person     string          `json:"person"`
	ItemsTotal decimal.Decimal `json:"items_total"`
	VATShare   decimal.Decimal `json:"vat_share"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Total      decimal.Decimal `json:"total"`
}

// SplitResult is the settlement for a receipt: the per-person shares and
// the grand total of the bill they were computed from.
type SplitResult struct {
	Shares     []PersonShare   `json:"shares"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// SplitBill divides a receipt among participants. assignments maps each
// person to the item indices they are paying for; an item assigned to
// several people is split equally between them, and an item assigned to
// nobody is shared by everyone. VAT and service are charged proportionally
// to each person's item total, so the split stays fair when one person
// ordered most of the bill.
func SplitBill(receipt *Receipt, assignments map[string][]int) (*SplitResult, error) {
	if len(assignments) == 0 {
		return nil, fmt.Errorf("at least one participant is required")
	}

	people := make([]string, 0, len(assignments))
	for person := range assignments {
		if person == "" {
			return nil, fmt.Errorf("participant name must not be empty")
		}
		people = append(people, person)
	}
	sort.Strings(people)

	// How many people share each item.
	shareCounts := make([]int, len(receipt.Items))
	for person, indices := range assignments {
		for _, idx := range indices {
			if idx < 0 || idx >= len(receipt.Items) {
				return nil, fmt.Errorf("item index %d out of range for %s", idx, person)
			}
			shareCounts[idx]++
		}
	}

	totals := make(map[string]decimal.Decimal, len(people))
	for _, person := range people {
		totals[person] = decimal.Zero
	}

	for person, indices := range assignments {
		for _, idx := range indices {
			share := receipt.Items[idx].TotalPrice().Div(decimal.NewFromInt(int64(shareCounts[idx])))
			totals[person] = totals[person].Add(share)
		}
	}

	// Items nobody claimed are split across the whole table.
	everyone := decimal.NewFromInt(int64(len(people)))
	for idx, count := range shareCounts {
		if count > 0 {
			continue
		}
		share := receipt.Items[idx].TotalPrice().Div(everyone)
		for _, person := range people {
			totals[person] = totals[person].Add(share)
		}
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]PersonShare, 0, len(people))
	for _, person := range people {
		itemsTotal := totals[person]

		vat := decimal.Zero
		if receipt.VATPercentage != nil {
			vat = itemsTotal.Mul(*receipt.VATPercentage).Div(hundred)
		}
		service := decimal.Zero
		if receipt.ServicePercentage != nil {
			service = itemsTotal.Mul(*receipt.ServicePercentage).Div(hundred)
		}

		shares = append(shares, PersonShare{
			Person:     person,
			ItemsTotal: itemsTotal,
			VATShare:   vat,
			ServiceFee: service,
			Total:      itemsTotal.Add(vat).Add(service),
		})
	}

	return &SplitResult{
		Shares:     shares,
		GrandTotal: receipt.GrandTotal(),
	}, nil
}
