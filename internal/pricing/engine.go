// Package pricing computes order breakdowns for marketplace
// transactions. The engine is a pure function over its inputs so the
// estimate path and the authoritative commit path always agree.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/money"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeLineItems builds the ordered breakdown for an order: base
// unit line first, customer commission add-on, provider commission
// (negative, reversal), discount last. Consumers rely on this
// ordering for display and for payin/payout totals.
func ComputeLineItems(listing Listing, order OrderData, rates Rates, discount *Discount) ([]LineItem, error) {
	baseCode, err := listing.Unit.LineItemCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing unit")
	}

	units, err := computeUnits(listing, order)
	if err != nil {
		return nil, err
	}

	base := listing.UnitPrice.MulDecimal(units)
	items := []LineItem{{
		Code:       baseCode,
		UnitPrice:  listing.UnitPrice,
		Units:      units,
		LineTotal:  base,
		IncludeFor: []enums.Party{enums.PartyCustomer, enums.PartyProvider},
	}}

	if rates.Customer.IsPositive() {
		pct := rates.Customer.Mul(oneHundred)
		items = append(items, LineItem{
			Code:       enums.LineItemCustomerCommission,
			UnitPrice:  base,
			Units:      decimal.NewFromInt(1),
			Percentage: &pct,
			LineTotal:  base.MulDecimal(rates.Customer),
			IncludeFor: []enums.Party{enums.PartyCustomer},
		})
	}

	if rates.Provider.IsPositive() {
		pct := rates.Provider.Mul(oneHundred).Neg()
		items = append(items, LineItem{
			Code:       enums.LineItemProviderCommission,
			UnitPrice:  base,
			Units:      decimal.NewFromInt(1),
			Percentage: &pct,
			LineTotal:  base.MulDecimal(rates.Provider).Neg(),
			Reversal:   true,
			IncludeFor: []enums.Party{enums.PartyProvider},
		})
	}

	if discount != nil {
		line, err := discountLine(base, *discount)
		if err != nil {
			return nil, err
		}
		if line != nil {
			items = append(items, *line)
		}
	}

	return items, nil
}

func computeUnits(listing Listing, order OrderData) (decimal.Decimal, error) {
	if listing.UnitPrice.Amount < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "listing price must not be negative")
	}

	if listing.Unit.IsBooking() {
		return bookingUnits(listing.Unit, order)
	}

	if order.Quantity <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity is required")
	}
	seats := order.Seats
	if listing.MultiSeat && seats <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seat count is required for multi-seat listings")
	}
	if seats <= 0 {
		seats = 1
	}
	return decimal.NewFromInt(order.Quantity * seats), nil
}

func bookingUnits(unit enums.UnitType, order OrderData) (decimal.Decimal, error) {
	if order.Start.IsZero() || order.End.IsZero() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "booking start and end are required")
	}
	if !order.Start.Before(order.End) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "booking start must be before end")
	}

	switch unit {
	case enums.UnitTypeHour:
		// Hourly bookings bill fractional units at minute granularity.
		minutes := decimal.NewFromFloat(order.End.Sub(order.Start).Minutes())
		return minutes.Div(decimal.NewFromInt(60)), nil
	case enums.UnitTypeDay, enums.UnitTypeNight:
		days := calendarDaysBetween(order.Start, order.End)
		if days < 1 {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s bookings must span at least one %s", unit, unit))
		}
		return decimal.NewFromInt(days), nil
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unit type %q is not bookable", unit))
	}
}

// calendarDaysBetween counts date boundaries crossed between start and
// end in UTC, which matches how day and night bookings are sold.
func calendarDaysBetween(start, end time.Time) int64 {
	s := start.UTC().Truncate(24 * time.Hour)
	e := end.UTC().Truncate(24 * time.Hour)
	return int64(e.Sub(s).Hours() / 24)
}

func discountLine(base money.Money, discount Discount) (*LineItem, error) {
	switch discount.Type {
	case enums.DiscountTypePercent:
		if !discount.Percent.IsPositive() {
			return nil, nil
		}
		pct := discount.Percent.Neg()
		return &LineItem{
			Code:       enums.LineItemDiscount,
			UnitPrice:  base,
			Units:      decimal.NewFromInt(1),
			Percentage: &pct,
			LineTotal:  base.MulDecimal(discount.Percent.Div(oneHundred)).Neg(),
			Reversal:   true,
			IncludeFor: []enums.Party{enums.PartyCustomer, enums.PartyProvider},
		}, nil
	case enums.DiscountTypeMonetary:
		amount := money.FromMajor(discount.Amount, base.Currency)
		if amount.Amount <= 0 {
			return nil, nil
		}
		// Never drive the discounted base below zero.
		if amount.Amount > base.Amount {
			amount.Amount = base.Amount
		}
		return &LineItem{
			Code:       enums.LineItemDiscount,
			UnitPrice:  amount,
			Units:      decimal.NewFromInt(1),
			LineTotal:  amount.Neg(),
			Reversal:   true,
			IncludeFor: []enums.Party{enums.PartyCustomer, enums.PartyProvider},
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown discount type %q", discount.Type))
	}
}
