package enums

import "fmt"

// OrderItemStatus tracks one purchased item through fulfillment.
// Transitions are strict: processing -> shipped -> received -> completed.
type OrderItemStatus string

const (
	OrderItemStatusPaid       OrderItemStatus = "paid"
	OrderItemStatusProcessing OrderItemStatus = "processing"
	OrderItemStatusShipped    OrderItemStatus = "shipped"
	OrderItemStatusReceived   OrderItemStatus = "received"
	OrderItemStatusCompleted  OrderItemStatus = "completed"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPaid,
	OrderItemStatusProcessing,
	OrderItemStatusShipped,
	OrderItemStatusReceived,
	OrderItemStatusCompleted,
}

// String implements fmt.Stringer.
func (o OrderItemStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (o OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemStatus converts the raw string to an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
