package enums

// Party names the side of the transaction a line item accrues to.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyProvider Party = "provider"
)

// String implements fmt.Stringer.
func (p Party) String() string {
	return string(p)
}
