// Package listings talks to the hosted marketplace API: querying a
// provider's own listings, creating and updating them during batch
// commits, and fetching delivery assets such as the commission config.
package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/brightstock/imagery-backend/pkg/config"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

const (
	ownListingsPath = "/v1/own_listings"
	assetsPath      = "/v1/assets"
	tokenPath       = "/v1/auth/token"

	// tokenLeeway refreshes the access token slightly before the server
	// reports it expired so in-flight requests never race the cutoff.
	tokenLeeway = 30 * time.Second
)

var (
	errBaseURLRequired  = errors.New("marketplace base url is required")
	errClientIDRequired = errors.New("marketplace client id is required")
	errLoggerRequired   = errors.New("marketplace logger is required")
)

// Client exposes the marketplace operations the pricing and batch flows need.
type Client interface {
	Query(ctx context.Context, params QueryParams) (Page, error)
	Create(ctx context.Context, params CreateParams) (*Listing, error)
	Update(ctx context.Context, params UpdateParams) (*Listing, error)
	FetchAsset(ctx context.Context, name string) (json.RawMessage, error)
}

// HTTPClient is the hosted-API implementation of Client with centralized
// auth, logging, and error mapping.
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client
	logger       *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient initializes the marketplace wrapper and validates the credentials.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger) (*HTTPClient, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HTTPClient{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		httpc:        &http.Client{Timeout: timeout},
		logger:       logg,
	}, nil
}

// Query returns one cursor page of the caller's own listings.
func (c *HTTPClient) Query(ctx context.Context, params QueryParams) (Page, error) {
	c.log(ctx, "request", "query_own_listings", map[string]any{
		"cursor": params.Cursor,
		"limit":  params.Limit,
	})

	endpoint := c.baseURL + ownListingsPath
	if encoded := params.encode().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var envelope struct {
		Data []wireListing `json:"data"`
		Meta struct {
			NextCursor string `json:"nextCursor"`
		} `json:"meta"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
		c.log(ctx, "error", "query_own_listings", map[string]any{"error": err.Error()})
		return Page{}, err
	}

	page := Page{NextCursor: envelope.Meta.NextCursor}
	for _, w := range envelope.Data {
		page.Listings = append(page.Listings, w.toListing())
	}
	c.log(ctx, "response", "query_own_listings", map[string]any{"count": len(page.Listings)})
	return page, nil
}

// Create publishes a new listing from a committed draft.
func (c *HTTPClient) Create(ctx context.Context, params CreateParams) (*Listing, error) {
	payload, err := params.toPayload()
	if err != nil {
		return nil, err
	}
	c.log(ctx, "request", "create_listing", map[string]any{"title": params.Title})

	var envelope struct {
		Data wireListing `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+ownListingsPath, payload, &envelope); err != nil {
		c.log(ctx, "error", "create_listing", map[string]any{"error": err.Error()})
		return nil, err
	}

	listing := envelope.Data.toListing()
	c.log(ctx, "response", "create_listing", map[string]any{"listing_id": listing.ID})
	return &listing, nil
}

// Update replaces the mutable fields of an existing listing. Repeating the
// same update for an id is a no-op on the marketplace side.
func (c *HTTPClient) Update(ctx context.Context, params UpdateParams) (*Listing, error) {
	payload, err := params.toPayload()
	if err != nil {
		return nil, err
	}
	c.log(ctx, "request", "update_listing", map[string]any{"listing_id": params.ID})

	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, ownListingsPath, url.PathEscape(params.ID))
	var envelope struct {
		Data wireListing `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPut, endpoint, payload, &envelope); err != nil {
		c.log(ctx, "error", "update_listing", map[string]any{"error": err.Error()})
		return nil, err
	}

	listing := envelope.Data.toListing()
	c.log(ctx, "response", "update_listing", map[string]any{"listing_id": listing.ID})
	return &listing, nil
}

// FetchAsset retrieves a delivery asset by name and returns its raw JSON
// document. Callers own the schema.
func (c *HTTPClient) FetchAsset(ctx context.Context, name string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset name is required")
	}
	c.log(ctx, "request", "fetch_asset", map[string]any{"asset": trimmed})

	endpoint := fmt.Sprintf("%s%s/%s", c.baseURL, assetsPath, url.PathEscape(trimmed))
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
		c.log(ctx, "error", "fetch_asset", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "fetch_asset", map[string]any{"asset": trimmed})
	return envelope.Data, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode marketplace payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build marketplace request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marketplace request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode marketplace response")
	}
	return nil
}

func (c *HTTPClient) errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := extractErrorDetail(raw)
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return pkgerrors.New(domainCodeForStatus(resp.StatusCode),
		fmt.Sprintf("marketplace responded %d: %s", resp.StatusCode, detail))
}

func extractErrorDetail(raw []byte) string {
	var payload struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Errors) == 0 {
		return ""
	}
	first := payload.Errors[0]
	if first.Detail != "" {
		return first.Detail
	}
	return first.Title
}

// accessToken returns a cached client-credentials token, refreshing when it
// is within the leeway of expiring.
func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenLeeway)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build marketplace token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marketplace token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized,
			fmt.Sprintf("marketplace token request responded %d", resp.StatusCode))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode marketplace token response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "marketplace token response missing access_token")
	}

	c.token = tokenResp.AccessToken
	if tokenResp.ExpiresIn > 0 {
		c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	} else {
		c.tokenExpiry = time.Now().Add(5 * time.Minute)
	}
	return c.token, nil
}

func (c *HTTPClient) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("marketplace %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("marketplace %s", phase))
	}
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
