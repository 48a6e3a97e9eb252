// Package discounts manages a provider's promo code map: CRUD over
// persisted codes plus resolution of a code into the discount shape
// the pricing engine consumes.
package discounts

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/internal/pricing"
	"github.com/brightstock/imagery-backend/pkg/db/models"
	dbtypes "github.com/brightstock/imagery-backend/pkg/db/types"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

// codePattern keeps discount codes shareable and unambiguous:
// uppercase alphanumerics plus _ and -, 3 to 32 characters.
var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{2,31}$`)

// Input carries the writable fields of a discount.
type Input struct {
	Code           string
	Title          string
	Type           string
	Percent        decimal.Decimal
	Amount         decimal.Decimal
	Currency       string
	ListingIDs     []uuid.UUID
	Active         *bool
	StartsAt       *time.Time
	EndsAt         *time.Time
	MaxRedemptions *int
}

// ServiceParams groups dependencies for the discount service.
type ServiceParams struct {
	Repo *Repository
}

// Service exposes business rules for provider discount management.
type Service interface {
	Create(ctx context.Context, providerID uuid.UUID, input Input) (*models.ProviderDiscount, error)
	Update(ctx context.Context, providerID uuid.UUID, code string, input Input) (*models.ProviderDiscount, error)
	Delete(ctx context.Context, providerID uuid.UUID, code string) error
	List(ctx context.Context, providerID uuid.UUID, cursor string, limit int) (Page, error)
	Resolve(ctx context.Context, providerID uuid.UUID, code string) (*pricing.Discount, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a discount service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount repo is required")
	}
	return &service{repo: params.Repo, now: time.Now}, nil
}

// Create validates and persists a new discount for the provider.
func (s *service) Create(ctx context.Context, providerID uuid.UUID, input Input) (*models.ProviderDiscount, error) {
	discount, err := buildDiscount(providerID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, discount); err != nil {
		return nil, err
	}
	return discount, nil
}

// Update replaces the mutable fields of an existing discount. The code
// itself is immutable; delete and re-create to rename.
func (s *service) Update(ctx context.Context, providerID uuid.UUID, code string, input Input) (*models.ProviderDiscount, error) {
	normalized, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	input.Code = normalized
	discount, err := buildDiscount(providerID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, discount); err != nil {
		return nil, err
	}
	return s.repo.FindByCode(ctx, providerID, normalized)
}

// Delete removes a discount by code.
func (s *service) Delete(ctx context.Context, providerID uuid.UUID, code string) error {
	if providerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	normalized, err := normalizeCode(code)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, providerID, normalized)
}

// List returns a cursor page of the provider's discounts.
func (s *service) List(ctx context.Context, providerID uuid.UUID, cursor string, limit int) (Page, error) {
	if providerID == uuid.Nil {
		return Page{}, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	return s.repo.List(ctx, providerID, cursor, limit)
}

// Resolve maps a code to the discount the pricing engine applies. A
// code that exists but is inactive, outside its window, or exhausted
// resolves the same as a missing one.
func (s *service) Resolve(ctx context.Context, providerID uuid.UUID, code string) (*pricing.Discount, error) {
	if providerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	normalized, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	discount, err := s.repo.FindByCode(ctx, providerID, normalized)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !discount.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount is not active")
	}
	if discount.StartsAt != nil && now.Before(*discount.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount is not active yet")
	}
	if discount.EndsAt != nil && now.After(*discount.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount has expired")
	}
	if discount.MaxRedemptions != nil && discount.Redemptions >= *discount.MaxRedemptions {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount is exhausted")
	}

	return &pricing.Discount{
		Code:    discount.Code,
		Type:    discount.Type,
		Percent: discount.Percent,
		Amount:  discount.Amount,
	}, nil
}

func buildDiscount(providerID uuid.UUID, input Input) (*models.ProviderDiscount, error) {
	if providerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}

	code, err := normalizeCode(input.Code)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	discountType, err := enums.ParseDiscountType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}

	discount := &models.ProviderDiscount{
		ProviderID:     providerID,
		Code:           code,
		Title:          title,
		Type:           discountType,
		ListingIDs:     dbtypes.UUIDArray(input.ListingIDs),
		Active:         true,
		StartsAt:       input.StartsAt,
		EndsAt:         input.EndsAt,
		MaxRedemptions: input.MaxRedemptions,
	}
	if input.Active != nil {
		discount.Active = *input.Active
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.StartsAt.Before(*input.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "starts_at must be before ends_at")
	}
	if input.MaxRedemptions != nil && *input.MaxRedemptions <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_redemptions must be positive")
	}

	switch discountType {
	case enums.DiscountTypePercent:
		if !input.Percent.IsPositive() || input.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 0 and 100")
		}
		discount.Percent = input.Percent
	case enums.DiscountTypeMonetary:
		if !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
		}
		currency, err := enums.ParseCurrency(strings.TrimSpace(input.Currency))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		discount.Amount = input.Amount
		discount.Currency = &currency
	}

	return discount, nil
}

func normalizeCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(normalized) {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			"code must be 3-32 characters of A-Z, 0-9, _ or -")
	}
	return normalized, nil
}
