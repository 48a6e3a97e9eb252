package listings

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/money"
)

// QueryParams narrows an own-listings query.
type QueryParams struct {
	Cursor string
	Limit  int
	States []string
}

func (p QueryParams) encode() url.Values {
	values := url.Values{}
	if trimmed := strings.TrimSpace(p.Cursor); trimmed != "" {
		values.Set("cursor", trimmed)
	}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(p.States) > 0 {
		values.Set("states", strings.Join(p.States, ","))
	}
	return values
}

// CreateParams contains the fields required to publish a listing.
type CreateParams struct {
	Title       string
	Description string
	Keywords    []string
	Categories  []string
	Usage       string
	Releases    string
	PriceAmount decimal.Decimal
	Currency    enums.Currency
	Dimensions  string
	MimeType    string
	StorageKey  string
	PreviewURL  string
	IsAI        bool
}

func (p CreateParams) toPayload() (map[string]any, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing title is required")
	}
	if !p.PriceAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing price must be positive")
	}
	if !p.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing currency is invalid")
	}

	price := money.FromMajor(p.PriceAmount, p.Currency)
	payload := map[string]any{
		"title": title,
		"price": map[string]any{
			"amount":   price.Amount,
			"currency": string(price.Currency),
		},
		"isAi": p.IsAI,
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		payload["description"] = trimmed
	}
	if len(p.Keywords) > 0 {
		payload["keywords"] = p.Keywords
	}
	if len(p.Categories) > 0 {
		payload["categories"] = p.Categories
	}
	if trimmed := strings.TrimSpace(p.Usage); trimmed != "" {
		payload["usage"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.Releases); trimmed != "" {
		payload["releases"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.Dimensions); trimmed != "" {
		payload["dimensions"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.MimeType); trimmed != "" {
		payload["mimeType"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.StorageKey); trimmed != "" {
		payload["storageKey"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.PreviewURL); trimmed != "" {
		payload["previewUrl"] = trimmed
	}
	return payload, nil
}

// UpdateParams carries a partial edit for an existing listing. Zero-valued
// fields are left untouched on the marketplace side.
type UpdateParams struct {
	ID          string
	Title       string
	Description string
	Keywords    []string
	Categories  []string
	Usage       string
	Releases    string
	PriceAmount decimal.Decimal
	Currency    enums.Currency
}

func (p UpdateParams) toPayload() (map[string]any, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	payload := map[string]any{}
	if trimmed := strings.TrimSpace(p.Title); trimmed != "" {
		payload["title"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		payload["description"] = trimmed
	}
	if len(p.Keywords) > 0 {
		payload["keywords"] = p.Keywords
	}
	if len(p.Categories) > 0 {
		payload["categories"] = p.Categories
	}
	if trimmed := strings.TrimSpace(p.Usage); trimmed != "" {
		payload["usage"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.Releases); trimmed != "" {
		payload["releases"] = trimmed
	}
	if p.PriceAmount.IsPositive() {
		if !p.Currency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing currency is invalid")
		}
		price := money.FromMajor(p.PriceAmount, p.Currency)
		payload["price"] = map[string]any{
			"amount":   price.Amount,
			"currency": string(price.Currency),
		}
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing update has no fields")
	}
	return payload, nil
}
