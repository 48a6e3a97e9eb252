package enums

// AITermsStatus tracks whether AI-content terms block a batch commit.
type AITermsStatus string

const (
	AITermsAccepted    AITermsStatus = "accepted"
	AITermsRequired    AITermsStatus = "required"
	AITermsNotRequired AITermsStatus = "not-required"
)

// String implements fmt.Stringer.
func (s AITermsStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s AITermsStatus) IsValid() bool {
	switch s {
	case AITermsAccepted, AITermsRequired, AITermsNotRequired:
		return true
	default:
		return false
	}
}
