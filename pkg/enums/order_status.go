package enums

// OrderStatus tracks order fulfillment. Delivery is instantaneous in this
// marketplace, so delivered is the only status an order is ever created with;
// the enum exists so externally forced states remain representable and
// rejectable.
type OrderStatus string

const (
	OrderStatusDelivered OrderStatus = "delivered"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	return o == OrderStatusDelivered
}
