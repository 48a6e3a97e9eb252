package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/brightstock/imagery-backend/pkg/db/types"
	"github.com/brightstock/imagery-backend/pkg/enums"
)

// ProviderDiscount is a promo code owned by a provider. Percent
// discounts carry Percent, monetary discounts carry a major-unit
// Amount plus Currency; conversion to minor units happens when the
// discount is applied to an order. ListingIDs optionally scopes the
// code to specific listings; empty means store-wide.
type ProviderDiscount struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID     uuid.UUID          `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:idx_provider_discounts_provider_code"`
	Code           string             `gorm:"column:code;not null;uniqueIndex:idx_provider_discounts_provider_code"`
	Title          string             `gorm:"column:title;not null"`
	Type           enums.DiscountType `gorm:"column:type;not null"`
	Percent        decimal.Decimal    `gorm:"column:percent;type:numeric(5,2);not null;default:0"`
	Amount         decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null;default:0"`
	Currency       *enums.Currency    `gorm:"column:currency"`
	ListingIDs     dbtypes.UUIDArray  `gorm:"column:listing_ids;type:uuid[]"`
	Active         bool               `gorm:"column:active;not null;default:true"`
	StartsAt       *time.Time         `gorm:"column:starts_at"`
	EndsAt         *time.Time         `gorm:"column:ends_at"`
	MaxRedemptions *int               `gorm:"column:max_redemptions"`
	Redemptions    int                `gorm:"column:redemptions;not null;default:0"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProviderDiscount) TableName() string {
	return "provider_discounts"
}
