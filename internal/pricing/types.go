package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
	"github.com/brightstock/imagery-backend/pkg/money"
)

// Listing carries the priced attributes of a marketplace listing.
type Listing struct {
	ID        uuid.UUID
	Title     string
	UnitPrice money.Money
	Unit      enums.UnitType
	// MultiSeat listings require an explicit seat count per order.
	MultiSeat bool
}

// OrderData carries the order parameters the engine prices against.
// Booking units use Start/End; item units use Quantity and Seats.
type OrderData struct {
	Start    time.Time
	End      time.Time
	Quantity int64
	Seats    int64
}

// Rates are the marketplace commission percentages as decimals
// (0.10 means 10%).
type Rates struct {
	Provider decimal.Decimal
	Customer decimal.Decimal
}

// Discount is a resolved provider discount. Amount is a major-unit
// value for monetary discounts; conversion to minor units happens at
// application time against the listing currency.
type Discount struct {
	Code    string
	Type    enums.DiscountType
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// LineItem is one priced component of an order breakdown.
type LineItem struct {
	Code       enums.LineItemCode `json:"code"`
	UnitPrice  money.Money        `json:"unit_price"`
	Units      decimal.Decimal    `json:"units"`
	Percentage *decimal.Decimal   `json:"percentage,omitempty"`
	LineTotal  money.Money        `json:"line_total"`
	Reversal   bool               `json:"reversal"`
	IncludeFor []enums.Party      `json:"include_for"`
}

// includedFor reports whether the line contributes to the given party's total.
func (li LineItem) includedFor(party enums.Party) bool {
	for _, p := range li.IncludeFor {
		if p == party {
			return true
		}
	}
	return false
}
