package enums

import "fmt"

// Usage restricts how a licensed asset may be used.
type Usage string

const (
	UsageEditorial  Usage = "editorial"
	UsageCommercial Usage = "commercial"
)

var validUsages = []Usage{
	UsageEditorial,
	UsageCommercial,
}

// String implements fmt.Stringer.
func (u Usage) String() string {
	return string(u)
}

// IsValid reports whether the usage is recognized.
func (u Usage) IsValid() bool {
	for _, candidate := range validUsages {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUsage converts a raw string into a Usage.
func ParseUsage(value string) (Usage, error) {
	for _, candidate := range validUsages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage %q", value)
}
