// Package batch drives the listing upload workflow: a per-session
// state machine over draft listings, validation and AI-terms gates,
// and a commit pass against the marketplace with per-item
// success/failure aggregation.
package batch

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightstock/imagery-backend/pkg/enums"
)

const (
	maxKeywords   = 30
	maxCategories = 5
)

// DraftListing is an in-progress listing derived from an intake file.
type DraftListing struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Keywords    []string              `json:"keywords"`
	Categories  []string              `json:"categories"`
	Usage       enums.Usage           `json:"usage"`
	Releases    enums.Releases        `json:"releases"`
	Price       decimal.Decimal       `json:"price"`
	Currency    enums.Currency        `json:"currency"`
	Dimensions  enums.ImageDimensions `json:"dimensions"`
	IsAI        bool                  `json:"is_ai"`
	MimeType    string                `json:"mime_type"`
	PreviewURL  string                `json:"preview_url,omitempty"`
	UploadURL   string                `json:"upload_url,omitempty"`
	// RemoteID is the marketplace listing id, present in edit mode and
	// after a successful create.
	RemoteID string `json:"remote_id,omitempty"`
	// FailureReason carries the per-item error of the last commit pass.
	FailureReason string `json:"failure_reason,omitempty"`
}

// InvalidListing names a draft that failed the pre-commit validation
// gate along with its missing fields.
type InvalidListing struct {
	Name          string   `json:"name"`
	MissingFields []string `json:"missing_fields"`
}

// Session is the immutable state of one batch upload session. Apply
// returns a new value; callers never mutate a Session in place.
type Session struct {
	ID         uuid.UUID           `json:"id"`
	ProviderID uuid.UUID           `json:"provider_id"`
	Mode       enums.PageMode      `json:"mode"`
	Listings   []DraftListing      `json:"listings"`
	Selected   []uuid.UUID         `json:"selected"`
	Invalid    []InvalidListing    `json:"invalid_listings,omitempty"`
	AITerms    enums.AITermsStatus `json:"ai_terms_status"`
	Failed     []DraftListing      `json:"failed_listings"`
	Successful []DraftListing      `json:"successful_listings"`
	SaveState  enums.SaveState     `json:"save_state"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// NewSession opens an empty session for the given provider and mode.
func NewSession(providerID uuid.UUID, mode enums.PageMode, now time.Time) Session {
	return Session{
		ID:         uuid.New(),
		ProviderID: providerID,
		Mode:       mode,
		AITerms:    enums.AITermsNotRequired,
		SaveState:  enums.SaveStateIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Event is a session state transition input.
type Event interface {
	isSessionEvent()
}

// ListingAdded registers a new draft at the end of the session's list.
type ListingAdded struct{ Listing DraftListing }

// ListingRemoved drops a draft and deselects it.
type ListingRemoved struct{ ID uuid.UUID }

// ListingEdited merges a user patch into a draft by id.
type ListingEdited struct {
	ID    uuid.UUID
	Patch ListingPatch
}

// ThumbnailAttached sets a draft's preview. The first preview wins; a
// user-provided preview is never overwritten.
type ThumbnailAttached struct {
	ID         uuid.UUID
	PreviewURL string
}

// UploadURLAssigned records the remote upload URL minted for a draft.
type UploadURLAssigned struct {
	ID  uuid.UUID
	URL string
}

// SelectionChanged replaces the selected id set. Unknown ids are ignored.
type SelectionChanged struct{ IDs []uuid.UUID }

// AITermsAccepted marks the AI-content terms as accepted for the session.
type AITermsAccepted struct{}

// CommitStarted begins a commit pass, clearing previous results.
type CommitStarted struct{}

// CommitAborted records a gate failure. Aborts are non-fatal; the
// caller resolves the gate and retries.
type CommitAborted struct {
	Invalid         []InvalidListing
	AITermsRequired bool
}

// ItemSettled appends one per-item commit outcome. When every selected
// item has settled the session reaches its terminal save state.
type ItemSettled struct {
	Listing   DraftListing
	Succeeded bool
}

func (ListingAdded) isSessionEvent()      {}
func (ListingRemoved) isSessionEvent()    {}
func (ListingEdited) isSessionEvent()     {}
func (ThumbnailAttached) isSessionEvent() {}
func (UploadURLAssigned) isSessionEvent() {}
func (SelectionChanged) isSessionEvent()  {}
func (AITermsAccepted) isSessionEvent()   {}
func (CommitStarted) isSessionEvent()     {}
func (CommitAborted) isSessionEvent()     {}
func (ItemSettled) isSessionEvent()       {}

// ListingPatch carries the user-editable draft fields. Nil fields are
// left unchanged.
type ListingPatch struct {
	Title       *string
	Description *string
	Keywords    []string
	Categories  []string
	Usage       *enums.Usage
	Releases    *enums.Releases
	Price       *decimal.Decimal
	PreviewURL  *string
	IsAI        *bool
}

// Apply reduces an event into a new session value.
func (s Session) Apply(evt Event, now time.Time) Session {
	next := s.clone()
	next.UpdatedAt = now

	switch e := evt.(type) {
	case ListingAdded:
		next.Listings = append(next.Listings, e.Listing)

	case ListingRemoved:
		next.Listings = removeListing(next.Listings, e.ID)
		next.Selected = removeID(next.Selected, e.ID)

	case ListingEdited:
		for i := range next.Listings {
			if next.Listings[i].ID == e.ID {
				next.Listings[i] = applyPatch(next.Listings[i], e.Patch)
				break
			}
		}

	case ThumbnailAttached:
		for i := range next.Listings {
			if next.Listings[i].ID == e.ID && next.Listings[i].PreviewURL == "" {
				next.Listings[i].PreviewURL = e.PreviewURL
				break
			}
		}

	case UploadURLAssigned:
		for i := range next.Listings {
			if next.Listings[i].ID == e.ID {
				next.Listings[i].UploadURL = e.URL
				break
			}
		}

	case SelectionChanged:
		next.Selected = next.filterKnown(e.IDs)

	case AITermsAccepted:
		next.AITerms = enums.AITermsAccepted

	case CommitStarted:
		next.Invalid = nil
		next.Failed = nil
		next.Successful = nil
		next.SaveState = enums.SaveStateInProgress

	case CommitAborted:
		next.Invalid = e.Invalid
		if e.AITermsRequired {
			next.AITerms = enums.AITermsRequired
		}
		next.SaveState = enums.SaveStateAborted

	case ItemSettled:
		if e.Succeeded {
			next.Successful = append(next.Successful, e.Listing)
		} else {
			next.Failed = append(next.Failed, e.Listing)
		}
		if len(next.Successful)+len(next.Failed) == len(next.Selected) {
			if len(next.Failed) == 0 {
				next.SaveState = enums.SaveStateSuccess
				next.Selected = nil
			} else {
				next.SaveState = enums.SaveStateError
			}
		}
	}

	next.refreshAITerms()
	return next
}

// SelectedListings returns the drafts in the selection, in list order.
func (s Session) SelectedListings() []DraftListing {
	selected := make(map[uuid.UUID]bool, len(s.Selected))
	for _, id := range s.Selected {
		selected[id] = true
	}
	var out []DraftListing
	for _, listing := range s.Listings {
		if selected[listing.ID] {
			out = append(out, listing)
		}
	}
	return out
}

func (s Session) clone() Session {
	next := s
	next.Listings = append([]DraftListing(nil), s.Listings...)
	next.Selected = append([]uuid.UUID(nil), s.Selected...)
	next.Invalid = append([]InvalidListing(nil), s.Invalid...)
	next.Failed = append([]DraftListing(nil), s.Failed...)
	next.Successful = append([]DraftListing(nil), s.Successful...)
	return next
}

func (s Session) filterKnown(ids []uuid.UUID) []uuid.UUID {
	known := make(map[uuid.UUID]bool, len(s.Listings))
	for _, listing := range s.Listings {
		known[listing.ID] = true
	}
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

// refreshAITerms keeps the derived status in line with the listing set:
// required exactly when an AI draft is present and terms are unaccepted.
func (s *Session) refreshAITerms() {
	if s.AITerms == enums.AITermsAccepted {
		return
	}
	for _, listing := range s.Listings {
		if listing.IsAI {
			s.AITerms = enums.AITermsRequired
			return
		}
	}
	s.AITerms = enums.AITermsNotRequired
}

func applyPatch(listing DraftListing, patch ListingPatch) DraftListing {
	if patch.Title != nil {
		listing.Title = *patch.Title
	}
	if patch.Description != nil {
		listing.Description = *patch.Description
	}
	if patch.Keywords != nil {
		listing.Keywords = capStrings(patch.Keywords, maxKeywords)
	}
	if patch.Categories != nil {
		listing.Categories = capStrings(patch.Categories, maxCategories)
	}
	if patch.Usage != nil {
		listing.Usage = *patch.Usage
	}
	if patch.Releases != nil {
		listing.Releases = *patch.Releases
	}
	if patch.Price != nil {
		listing.Price = *patch.Price
	}
	if patch.PreviewURL != nil {
		listing.PreviewURL = *patch.PreviewURL
	}
	if patch.IsAI != nil {
		listing.IsAI = *patch.IsAI
	}
	return listing
}

func capStrings(values []string, limit int) []string {
	out := append([]string(nil), values...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func removeListing(listings []DraftListing, id uuid.UUID) []DraftListing {
	out := listings[:0]
	for _, listing := range listings {
		if listing.ID != id {
			out = append(out, listing)
		}
	}
	return out
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
