package listings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// newTestClient wires a client to the given handler, serving a token
// endpoint alongside it and counting how often a token is issued.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *int) {
	t.Helper()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse token form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Fatalf("unexpected grant_type %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(config.MarketplaceConfig{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, &tokenCalls
}

func TestCreateSendsMinorUnits(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ownListingsPath {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "listing-1", "title": "Sunset", "state": "published"},
		})
	})

	listing, err := client.Create(context.Background(), CreateParams{
		Title:       "Sunset",
		PriceAmount: decimal.RequireFromString("19.999"),
		Currency:    enums.CurrencyUSD,
		Keywords:    []string{"sunset", "beach"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if listing.ID != "listing-1" {
		t.Fatalf("unexpected listing id %q", listing.ID)
	}

	price, ok := captured["price"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing price: %v", captured)
	}
	// 19.999 major units truncate to 1999 cents.
	if got := price["amount"].(float64); got != 1999 {
		t.Fatalf("expected 1999 minor units, got %v", got)
	}
	if got := price["currency"].(string); got != "USD" {
		t.Fatalf("unexpected currency %q", got)
	}
}

func TestCreateValidatesParams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing title", CreateParams{PriceAmount: decimal.NewFromInt(5), Currency: enums.CurrencyUSD}},
		{"non-positive price", CreateParams{Title: "t", Currency: enums.CurrencyUSD}},
		{"invalid currency", CreateParams{Title: "t", PriceAmount: decimal.NewFromInt(5), Currency: enums.Currency("XXX")}},
	}
	for _, tc := range cases {
		if _, err := client.Create(context.Background(), tc.params); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		} else if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation code, got %s", tc.name, code)
		}
	}
}

func TestQueryParsesPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ownListingsPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cursor"); got != "abc" {
			t.Fatalf("unexpected cursor %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Fatalf("unexpected limit %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "l-1", "title": "One", "price": map[string]any{"amount": 2000, "currency": "USD"}},
				{"id": "l-2", "title": "Two", "price": map[string]any{"amount": 1500, "currency": "JPY"}},
			},
			"meta": map[string]any{"nextCursor": "def"},
		})
	})

	page, err := client.Query(context.Background(), QueryParams{Cursor: "abc", Limit: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(page.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(page.Listings))
	}
	if page.Listings[0].Price.Amount != 2000 || page.Listings[0].Price.Currency != enums.CurrencyUSD {
		t.Fatalf("unexpected first price %v", page.Listings[0].Price)
	}
	if page.NextCursor != "def" {
		t.Fatalf("unexpected next cursor %q", page.NextCursor)
	}
}

func TestUpdateRequiresIDAndFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	if _, err := client.Update(context.Background(), UpdateParams{Title: "x"}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if _, err := client.Update(context.Background(), UpdateParams{ID: "l-1"}); err == nil {
		t.Fatal("expected error for empty update")
	}
}

func TestUpdateTargetsListingPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != ownListingsPath+"/l-1" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "l-1", "title": "Renamed"},
		})
	})

	listing, err := client.Update(context.Background(), UpdateParams{ID: "l-1", Title: "Renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if listing.Title != "Renamed" {
		t.Fatalf("unexpected title %q", listing.Title)
	}
}

func TestErrorResponsesMapToCodes(t *testing.T) {
	status := http.StatusNotFound
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"title": "not-found", "detail": "listing gone"}},
		})
	})

	_, err := client.Update(context.Background(), UpdateParams{ID: "l-1", Title: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
	if !strings.Contains(err.Error(), "listing gone") {
		t.Fatalf("expected detail in error, got %q", err.Error())
	}

	status = http.StatusInternalServerError
	_, err = client.Query(context.Background(), QueryParams{})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %s", code)
	}
}

func TestAccessTokenIsReused(t *testing.T) {
	client, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Query(context.Background(), QueryParams{}); err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
	}
	if *tokenCalls != 1 {
		t.Fatalf("expected a single token fetch, got %d", *tokenCalls)
	}
}

func TestFetchAssetReturnsRawDocument(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != assetsPath+"/transaction-commission" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"providerCommissionPercentage": 10,
				"customerCommissionPercentage": 5,
			},
		})
	})

	raw, err := client.FetchAsset(context.Background(), "transaction-commission")
	if err != nil {
		t.Fatalf("fetch asset: %v", err)
	}
	var doc map[string]float64
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal asset: %v", err)
	}
	if doc["providerCommissionPercentage"] != 10 {
		t.Fatalf("unexpected provider percentage %v", doc["providerCommissionPercentage"])
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnprocessableEntity, pkgerrors.CodeStateConflict},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}
