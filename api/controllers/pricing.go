package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/api/responses"
	"github.com/brightstock/imagery-backend/api/validators"
	"github.com/brightstock/imagery-backend/internal/commission"
	"github.com/brightstock/imagery-backend/internal/discounts"
	"github.com/brightstock/imagery-backend/internal/pricing"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/money"
)

type pricingListingRequest struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Currency  string          `json:"currency" validate:"required"`
	Unit      string          `json:"unit" validate:"required"`
	MultiSeat bool            `json:"multi_seat"`
}

type pricingOrderRequest struct {
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	Quantity int64      `json:"quantity"`
	Seats    int64      `json:"seats"`
}

type pricingEstimateRequest struct {
	Listing      pricingListingRequest `json:"listing" validate:"required"`
	Order        pricingOrderRequest   `json:"order" validate:"required"`
	ProviderID   string                `json:"provider_id"`
	DiscountCode string                `json:"discount_code"`
}

func (r pricingEstimateRequest) toInputs() (pricing.Listing, pricing.OrderData, error) {
	currency, err := enums.ParseCurrency(strings.TrimSpace(r.Listing.Currency))
	if err != nil {
		return pricing.Listing{}, pricing.OrderData{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	unit := enums.UnitType(strings.ToLower(strings.TrimSpace(r.Listing.Unit)))
	if !unit.IsValid() {
		return pricing.Listing{}, pricing.OrderData{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing unit")
	}

	listing := pricing.Listing{
		Title:     strings.TrimSpace(r.Listing.Title),
		UnitPrice: money.FromMajor(r.Listing.UnitPrice, currency),
		Unit:      unit,
		MultiSeat: r.Listing.MultiSeat,
	}
	if r.Listing.ID != "" {
		id, err := uuid.Parse(r.Listing.ID)
		if err != nil {
			return pricing.Listing{}, pricing.OrderData{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id")
		}
		listing.ID = id
	}

	order := pricing.OrderData{
		Quantity: r.Order.Quantity,
		Seats:    r.Order.Seats,
	}
	if r.Order.Start != nil {
		order.Start = *r.Order.Start
	}
	if r.Order.End != nil {
		order.End = *r.Order.End
	}
	return listing, order, nil
}

type pricingEstimateResponse struct {
	LineItems []pricing.LineItem `json:"line_items"`
	Totals    pricing.Totals     `json:"totals"`
}

// PricingEstimate prices an order breakdown without committing
// anything: commission rates come from the marketplace asset, the
// optional discount from the provider's code map.
func PricingEstimate(rates commission.Service, discountSvc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rates == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		var payload pricingEstimateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, order, err := payload.toInputs()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		commissionRates, err := rates.Rates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var discount *pricing.Discount
		if code := strings.TrimSpace(payload.DiscountCode); code != "" {
			if discountSvc == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
				return
			}
			providerID, err := uuid.Parse(strings.TrimSpace(payload.ProviderID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "provider_id is required with discount_code"))
				return
			}
			discount, err = discountSvc.Resolve(r.Context(), providerID, code)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		items, err := pricing.ComputeLineItems(listing, order, commissionRates, discount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := pricing.ComputeTotals(items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pricingEstimateResponse{LineItems: items, Totals: totals})
	}
}
