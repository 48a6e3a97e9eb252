package enums

import "fmt"

// DiscountType distinguishes percentage discounts from fixed monetary ones.
type DiscountType string

const (
	DiscountTypePercent  DiscountType = "percent"
	DiscountTypeMonetary DiscountType = "monetary"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercent,
	DiscountTypeMonetary,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the discount type is recognized.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts a raw string into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
