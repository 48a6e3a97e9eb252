package discounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

func newTestService(t *testing.T) (*service, *Repository) {
	t.Helper()
	repo := NewRepository(setupDiscountsTestDB(t))
	return &service{repo: repo, now: time.Now}, repo
}

func TestServiceCreateNormalizesCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	providerID := uuid.New()

	discount, err := svc.Create(ctx, providerID, Input{
		Code:    "  save5 ",
		Title:   "five percent off",
		Type:    "percent",
		Percent: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE5", discount.Code)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	providerID := uuid.New()

	cases := []struct {
		name  string
		input Input
	}{
		{
			name:  "code too short",
			input: Input{Code: "AB", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5)},
		},
		{
			name:  "code with invalid characters",
			input: Input{Code: "SAVE 5!", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5)},
		},
		{
			name:  "missing title",
			input: Input{Code: "SAVE5", Type: "percent", Percent: decimal.NewFromInt(5)},
		},
		{
			name:  "unknown type",
			input: Input{Code: "SAVE5", Title: "t", Type: "bogus"},
		},
		{
			name:  "percent over 100",
			input: Input{Code: "SAVE5", Title: "t", Type: "percent", Percent: decimal.NewFromInt(150)},
		},
		{
			name:  "monetary without currency",
			input: Input{Code: "SAVE5", Title: "t", Type: "monetary", Amount: decimal.NewFromInt(5)},
		},
		{
			name:  "monetary with non-positive amount",
			input: Input{Code: "SAVE5", Title: "t", Type: "monetary", Amount: decimal.Zero, Currency: "USD"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, providerID, tc.input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestServiceResolveReturnsPricingDiscount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	providerID := uuid.New()

	_, err := svc.Create(ctx, providerID, Input{
		Code:     "TENOFF",
		Title:    "ten dollars off",
		Type:     "monetary",
		Amount:   decimal.NewFromInt(10),
		Currency: "USD",
	})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, providerID, "tenoff")
	require.NoError(t, err)
	assert.Equal(t, "TENOFF", resolved.Code)
	assert.Equal(t, enums.DiscountTypeMonetary, resolved.Type)
	assert.True(t, resolved.Amount.Equal(decimal.NewFromInt(10)))
}

func TestServiceResolveRejectsUnusableDiscounts(t *testing.T) {
	ctx := context.Background()
	providerID := uuid.New()

	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	inactive := false
	one := 1

	cases := []struct {
		name  string
		input Input
		bump  bool
	}{
		{
			name:  "inactive",
			input: Input{Code: "CODE1", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5), Active: &inactive},
		},
		{
			name:  "not started",
			input: Input{Code: "CODE2", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5), StartsAt: &future},
		},
		{
			name:  "expired",
			input: Input{Code: "CODE3", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5), EndsAt: &past},
		},
		{
			name:  "exhausted",
			input: Input{Code: "CODE4", Title: "t", Type: "percent", Percent: decimal.NewFromInt(5), MaxRedemptions: &one},
			bump:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			svc.now = func() time.Time { return now }

			created, err := svc.Create(ctx, providerID, tc.input)
			require.NoError(t, err)

			if tc.bump {
				created.Redemptions = 1
				require.NoError(t, repo.db.Model(created).Update("redemptions", 1).Error)
			}

			_, err = svc.Resolve(ctx, providerID, tc.input.Code)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
		})
	}
}
