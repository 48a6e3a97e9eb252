package listings

import (
	"github.com/brightstock/imagery-backend/pkg/enums"
	"github.com/brightstock/imagery-backend/pkg/money"
)

// Listing is the marketplace's view of a published listing.
type Listing struct {
	ID          string
	Title       string
	Description string
	Keywords    []string
	Categories  []string
	Usage       string
	Releases    string
	State       string
	Price       money.Money
	PreviewURL  string
	IsAI        bool
}

// Page is one cursor page of listings from an own-listings query.
type Page struct {
	Listings   []Listing
	NextCursor string
}

type wireMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type wireListing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Categories  []string  `json:"categories"`
	Usage       string    `json:"usage"`
	Releases    string    `json:"releases"`
	State       string    `json:"state"`
	Price       wireMoney `json:"price"`
	PreviewURL  string    `json:"previewUrl"`
	IsAI        bool      `json:"isAi"`
}

func (w wireListing) toListing() Listing {
	return Listing{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Keywords:    w.Keywords,
		Categories:  w.Categories,
		Usage:       w.Usage,
		Releases:    w.Releases,
		State:       w.State,
		Price:       money.New(w.Price.Amount, enums.Currency(w.Price.Currency)),
		PreviewURL:  w.PreviewURL,
		IsAI:        w.IsAI,
	}
}
