package enums

// LineItemCode identifies one priced component of an order breakdown.
// Unit codes follow the marketplace convention "line-item/<unit>".
type LineItemCode string

const (
	LineItemDay                LineItemCode = "line-item/day"
	LineItemNight              LineItemCode = "line-item/night"
	LineItemHour               LineItemCode = "line-item/hour"
	LineItemItem               LineItemCode = "line-item/item"
	LineItemProviderCommission LineItemCode = "line-item/provider-commission"
	LineItemCustomerCommission LineItemCode = "line-item/customer-commission"
	LineItemDiscount           LineItemCode = "line-item/discount"
)

var validLineItemCodes = []LineItemCode{
	LineItemDay,
	LineItemNight,
	LineItemHour,
	LineItemItem,
	LineItemProviderCommission,
	LineItemCustomerCommission,
	LineItemDiscount,
}

// String implements fmt.Stringer.
func (c LineItemCode) String() string {
	return string(c)
}

// IsValid reports whether the code belongs to the fixed set.
func (c LineItemCode) IsValid() bool {
	for _, candidate := range validLineItemCodes {
		if candidate == c {
			return true
		}
	}
	return false
}
