package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/api/responses"
	"github.com/brightstock/imagery-backend/api/validators"
	"github.com/brightstock/imagery-backend/internal/discounts"
	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

const maxDiscountPageSize = 100

type discountRequest struct {
	Code           string          `json:"code"`
	Title          string          `json:"title" validate:"required"`
	Type           string          `json:"type" validate:"required"`
	Percent        decimal.Decimal `json:"percent"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ListingIDs     []string        `json:"listing_ids"`
	Active         *bool           `json:"active"`
	StartsAt       *time.Time      `json:"starts_at"`
	EndsAt         *time.Time      `json:"ends_at"`
	MaxRedemptions *int            `json:"max_redemptions"`
}

func (r discountRequest) toInput() (discounts.Input, error) {
	listingIDs := make([]uuid.UUID, 0, len(r.ListingIDs))
	for _, raw := range r.ListingIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return discounts.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id")
		}
		listingIDs = append(listingIDs, id)
	}
	return discounts.Input{
		Code:           r.Code,
		Title:          validators.SanitizeString(r.Title, 120),
		Type:           r.Type,
		Percent:        r.Percent,
		Amount:         r.Amount,
		Currency:       r.Currency,
		ListingIDs:     listingIDs,
		Active:         r.Active,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		MaxRedemptions: r.MaxRedemptions,
	}, nil
}

type discountResponse struct {
	ID             uuid.UUID          `json:"id"`
	ProviderID     uuid.UUID          `json:"provider_id"`
	Code           string             `json:"code"`
	Title          string             `json:"title"`
	Type           enums.DiscountType `json:"type"`
	Percent        decimal.Decimal    `json:"percent"`
	Amount         decimal.Decimal    `json:"amount"`
	Currency       *enums.Currency    `json:"currency,omitempty"`
	ListingIDs     []uuid.UUID        `json:"listing_ids,omitempty"`
	Active         bool               `json:"active"`
	StartsAt       *time.Time         `json:"starts_at,omitempty"`
	EndsAt         *time.Time         `json:"ends_at,omitempty"`
	MaxRedemptions *int               `json:"max_redemptions,omitempty"`
	Redemptions    int                `json:"redemptions"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func discountResponseFromModel(m *models.ProviderDiscount) discountResponse {
	return discountResponse{
		ID:             m.ID,
		ProviderID:     m.ProviderID,
		Code:           m.Code,
		Title:          m.Title,
		Type:           m.Type,
		Percent:        m.Percent,
		Amount:         m.Amount,
		Currency:       m.Currency,
		ListingIDs:     []uuid.UUID(m.ListingIDs),
		Active:         m.Active,
		StartsAt:       m.StartsAt,
		EndsAt:         m.EndsAt,
		MaxRedemptions: m.MaxRedemptions,
		Redemptions:    m.Redemptions,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type discountListResponse struct {
	Discounts  []discountResponse `json:"discounts"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func providerIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "providerId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider id")
	}
	return id, nil
}

// DiscountList returns a cursor page of the provider's discount codes.
func DiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := providerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxDiscountPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), providerID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := discountListResponse{
			Discounts:  make([]discountResponse, 0, len(page.Discounts)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Discounts {
			out.Discounts = append(out.Discounts, discountResponseFromModel(&page.Discounts[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// DiscountCreate registers a new discount code for the provider.
func DiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := providerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), providerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discountResponseFromModel(created))
	}
}

// DiscountUpdate replaces the mutable fields of a discount by code.
func DiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := providerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload discountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), providerID, chi.URLParam(r, "code"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discountResponseFromModel(updated))
	}
}

// DiscountDelete removes a discount code.
func DiscountDelete(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := providerIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), providerID, chi.URLParam(r, "code")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
