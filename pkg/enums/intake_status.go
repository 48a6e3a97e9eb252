package enums

// IntakeStatus is the persisted lifecycle state of an intake file.
type IntakeStatus string

const (
	IntakeStatusPending  IntakeStatus = "pending"
	IntakeStatusUploaded IntakeStatus = "uploaded"
	IntakeStatusFailed   IntakeStatus = "failed"
)

var validIntakeStatuses = []IntakeStatus{
	IntakeStatusPending,
	IntakeStatusUploaded,
	IntakeStatusFailed,
}

// String implements fmt.Stringer.
func (s IntakeStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is recognized.
func (s IntakeStatus) IsValid() bool {
	for _, candidate := range validIntakeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
