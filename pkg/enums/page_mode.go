package enums

import "fmt"

// PageMode selects between creating new listings and editing existing ones
// in a batch session.
type PageMode string

const (
	PageModeCreate PageMode = "create"
	PageModeEdit   PageMode = "edit"
)

// String implements fmt.Stringer.
func (m PageMode) String() string {
	return string(m)
}

// IsValid reports whether the mode is recognized.
func (m PageMode) IsValid() bool {
	return m == PageModeCreate || m == PageModeEdit
}

// ParsePageMode converts a raw string into a PageMode.
func ParsePageMode(value string) (PageMode, error) {
	switch PageMode(value) {
	case PageModeCreate:
		return PageModeCreate, nil
	case PageModeEdit:
		return PageModeEdit, nil
	default:
		return "", fmt.Errorf("invalid page mode %q", value)
	}
}
