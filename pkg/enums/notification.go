package enums

import "fmt"

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderPlaced     NotificationType = "order_placed"
	NotificationTypeOrderShipped    NotificationType = "order_shipped"
	NotificationTypeOrderReceived   NotificationType = "order_received"
	NotificationTypeRefundRequested NotificationType = "refund_requested"
	NotificationTypeRefundDecided   NotificationType = "refund_decided"
	NotificationTypeDonationDecided NotificationType = "donation_decided"
	NotificationTypeCartAdjusted    NotificationType = "cart_adjusted"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderPlaced,
	NotificationTypeOrderShipped,
	NotificationTypeOrderReceived,
	NotificationTypeRefundRequested,
	NotificationTypeRefundDecided,
	NotificationTypeDonationDecided,
	NotificationTypeCartAdjusted,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts the raw string to a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
