package discounts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightstock/imagery-backend/pkg/db"
	"github.com/brightstock/imagery-backend/pkg/db/models"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/pagination"
)

// Repository encapsulates provider discount persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a discount repository bound to the provided gorm DB.
func NewRepository(gdb *gorm.DB) *Repository {
	return &Repository{db: gdb}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a discount. Duplicate codes per provider surface as CONFLICT.
func (r *Repository) Create(ctx context.Context, discount *models.ProviderDiscount) error {
	if discount.ID == uuid.Nil {
		discount.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(discount).Error; err != nil {
		if db.IsUniqueViolation(err, "idx_provider_discounts_provider_code") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount code already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
	}
	return nil
}

// Update persists the mutable fields of an existing discount.
func (r *Repository) Update(ctx context.Context, discount *models.ProviderDiscount) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProviderDiscount{}).
		Where("provider_id = ? AND code = ?", discount.ProviderID, discount.Code).
		Updates(map[string]any{
			"title":           discount.Title,
			"type":            discount.Type,
			"percent":         discount.Percent,
			"amount":          discount.Amount,
			"currency":        discount.Currency,
			"listing_ids":     discount.ListingIDs,
			"active":          discount.Active,
			"starts_at":       discount.StartsAt,
			"ends_at":         discount.EndsAt,
			"max_redemptions": discount.MaxRedemptions,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update discount")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return nil
}

// Delete removes a discount by provider and code.
func (r *Repository) Delete(ctx context.Context, providerID uuid.UUID, code string) error {
	result := r.db.WithContext(ctx).
		Where("provider_id = ? AND code = ?", providerID, code).
		Delete(&models.ProviderDiscount{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete discount")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	return nil
}

// FindByCode loads one discount by provider and code.
func (r *Repository) FindByCode(ctx context.Context, providerID uuid.UUID, code string) (*models.ProviderDiscount, error) {
	var discount models.ProviderDiscount
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND code = ?", providerID, code).
		First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return &discount, nil
}

// List returns a cursor page of a provider's discounts, newest first.
func (r *Repository) List(ctx context.Context, providerID uuid.UUID, cursor string, limit int) (Page, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Model(&models.ProviderDiscount{}).
		Where("provider_id = ?", providerID)

	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var records []models.ProviderDiscount
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&records).Error; err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return Page{Discounts: records, NextCursor: nextCursor}, nil
}

// Page is one cursor page of discounts.
type Page struct {
	Discounts  []models.ProviderDiscount
	NextCursor string
}
