package enums

import "fmt"

// UnitType is the billing unit of a listing's transaction process.
type UnitType string

const (
	UnitTypeDay   UnitType = "day"
	UnitTypeNight UnitType = "night"
	UnitTypeHour  UnitType = "hour"
	UnitTypeItem  UnitType = "item"
)

var validUnitTypes = []UnitType{
	UnitTypeDay,
	UnitTypeNight,
	UnitTypeHour,
	UnitTypeItem,
}

// String implements fmt.Stringer.
func (u UnitType) String() string {
	return string(u)
}

// IsValid reports whether the unit type is recognized.
func (u UnitType) IsValid() bool {
	for _, candidate := range validUnitTypes {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsBooking reports whether the unit is time based.
func (u UnitType) IsBooking() bool {
	switch u {
	case UnitTypeDay, UnitTypeNight, UnitTypeHour:
		return true
	default:
		return false
	}
}

// LineItemCode maps the unit type to its base line-item code.
func (u UnitType) LineItemCode() (LineItemCode, error) {
	switch u {
	case UnitTypeDay:
		return LineItemDay, nil
	case UnitTypeNight:
		return LineItemNight, nil
	case UnitTypeHour:
		return LineItemHour, nil
	case UnitTypeItem:
		return LineItemItem, nil
	default:
		return "", fmt.Errorf("unit type %q has no line item code", u)
	}
}
