package batch

import (
	"strings"

	"github.com/brightstock/imagery-backend/pkg/enums"
)

// validateSelected runs the pre-commit gate over the selection. Any
// violation aborts the whole pass, so the result names every listing
// with its full missing-field list.
func validateSelected(session Session) []InvalidListing {
	var invalid []InvalidListing
	for _, listing := range session.SelectedListings() {
		var missing []string
		if len(listing.Categories) == 0 {
			missing = append(missing, "category")
		}
		if strings.TrimSpace(listing.Title) == "" {
			missing = append(missing, "title")
		}
		if strings.TrimSpace(listing.Description) == "" {
			missing = append(missing, "description")
		}
		if !listing.Price.IsPositive() {
			missing = append(missing, "price")
		}
		if len(missing) > 0 {
			invalid = append(invalid, InvalidListing{
				Name:          listing.Name,
				MissingFields: missing,
			})
		}
	}
	return invalid
}

// aiTermsSatisfied reports whether the AI-content gate permits a
// commit: no selected AI drafts, or terms already accepted.
func aiTermsSatisfied(session Session) bool {
	if session.AITerms == enums.AITermsAccepted {
		return true
	}
	for _, listing := range session.SelectedListings() {
		if listing.IsAI {
			return false
		}
	}
	return true
}
