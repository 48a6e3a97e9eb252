package pricing

import (
	"github.com/brightstock/imagery-backend/pkg/enums"
	"github.com/brightstock/imagery-backend/pkg/money"
)

// Totals aggregates line items into what the customer pays in and
// what the provider is paid out.
type Totals struct {
	Payin  money.Money `json:"payin"`
	Payout money.Money `json:"payout"`
}

// ComputeTotals sums line totals per party. Reversal lines carry
// negative totals already, so plain addition yields the net amounts.
func ComputeTotals(items []LineItem) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, nil
	}

	currency := items[0].LineTotal.Currency
	payin := money.Zero(currency)
	payout := money.Zero(currency)

	var err error
	for _, item := range items {
		if item.includedFor(enums.PartyCustomer) {
			if payin, err = payin.Add(item.LineTotal); err != nil {
				return Totals{}, err
			}
		}
		if item.includedFor(enums.PartyProvider) {
			if payout, err = payout.Add(item.LineTotal); err != nil {
				return Totals{}, err
			}
		}
	}

	return Totals{Payin: payin, Payout: payout}, nil
}
