// Package commission resolves the marketplace commission percentages
// from the hosted asset delivery API, with a short-lived redis cache in
// front so pricing requests do not hit the marketplace on every call.
package commission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/internal/pricing"
	"github.com/brightstock/imagery-backend/pkg/config"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/redis"
)

const cacheScope = "commission"

// AssetFetcher fetches a delivery asset document by name.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, name string) (json.RawMessage, error)
}

// Service resolves the current commission rates.
type Service interface {
	Rates(ctx context.Context) (pricing.Rates, error)
}

// ServiceParams groups dependencies for the commission service.
type ServiceParams struct {
	Assets AssetFetcher
	Cache  redis.Cache
	Config config.CommissionConfig
	Logger *logger.Logger
}

type service struct {
	assets    AssetFetcher
	cache     redis.Cache
	assetName string
	cacheTTL  time.Duration
	logger    *logger.Logger
}

// NewService builds a commission service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Assets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission asset fetcher is required")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission cache is required")
	}
	if params.Config.AssetName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission asset name is required")
	}
	return &service{
		assets:    params.Assets,
		cache:     params.Cache,
		assetName: params.Config.AssetName,
		cacheTTL:  params.Config.CacheTTL,
		logger:    params.Logger,
	}, nil
}

// commissionAsset is the marketplace asset schema. Percentages are
// whole numbers, 10 means 10%.
type commissionAsset struct {
	ProviderCommissionPercentage decimal.Decimal `json:"providerCommissionPercentage"`
	CustomerCommissionPercentage decimal.Decimal `json:"customerCommissionPercentage"`
}

// Rates returns the current provider and customer commission rates as
// decimal fractions. A stale or missing cache entry falls through to
// the marketplace; cache write failures are logged and ignored.
func (s *service) Rates(ctx context.Context) (pricing.Rates, error) {
	key := s.cache.CacheKey(cacheScope, s.assetName)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		if rates, parseErr := parseRates([]byte(cached)); parseErr == nil {
			return rates, nil
		}
	} else if !redis.IsNil(err) && s.logger != nil {
		s.logger.Warn(ctx, "commission cache read failed")
	}

	raw, err := s.assets.FetchAsset(ctx, s.assetName)
	if err != nil {
		return pricing.Rates{}, err
	}
	rates, err := parseRates(raw)
	if err != nil {
		return pricing.Rates{}, err
	}

	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil && s.logger != nil {
		s.logger.Warn(ctx, "commission cache write failed")
	}
	return rates, nil
}

func parseRates(raw []byte) (pricing.Rates, error) {
	var asset commissionAsset
	if err := json.Unmarshal(raw, &asset); err != nil {
		return pricing.Rates{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commission asset")
	}
	if asset.ProviderCommissionPercentage.IsNegative() || asset.CustomerCommissionPercentage.IsNegative() {
		return pricing.Rates{}, pkgerrors.New(pkgerrors.CodeDependency, "commission percentages must not be negative")
	}
	oneHundred := decimal.NewFromInt(100)
	return pricing.Rates{
		Provider: asset.ProviderCommissionPercentage.Div(oneHundred),
		Customer: asset.CustomerCommissionPercentage.Div(oneHundred),
	}, nil
}
