package enums

// CartRemovalReason explains why reconciliation dropped a cart item.
type CartRemovalReason string

const (
	CartRemovalReservationExpired CartRemovalReason = "RESERVATION_EXPIRED"
	CartRemovalProductUnavailable CartRemovalReason = "PRODUCT_UNAVAILABLE"
)

// String implements fmt.Stringer.
func (r CartRemovalReason) String() string {
	return string(r)
}
