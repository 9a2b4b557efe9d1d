package orders

import (
	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// dominantOrder ranks item statuses by how urgently the buyer should see
// them. A payment with anything shipped shows shipped, then processing,
// then completed, then paid.
var dominantOrder = []enums.OrderItemStatus{
	enums.OrderItemStatusShipped,
	enums.OrderItemStatusProcessing,
	enums.OrderItemStatusCompleted,
	enums.OrderItemStatusPaid,
}

// DominantStatus derives the single status a payment presents from its
// items. Falls back to the first item's status when none of the ranked
// statuses are present, and to empty for an item-less payment.
func DominantStatus(items []models.OrderItem) enums.OrderItemStatus {
	if len(items) == 0 {
		return ""
	}
	present := make(map[enums.OrderItemStatus]bool, len(items))
	for _, item := range items {
		present[item.Status] = true
	}
	for _, status := range dominantOrder {
		if present[status] {
			return status
		}
	}
	return items[0].Status
}

// CanConfirmReceipt reports whether the payment has at least one shipped
// item the buyer could confirm.
func CanConfirmReceipt(items []models.OrderItem) bool {
	for _, item := range items {
		if item.Status == enums.OrderItemStatusShipped {
			return true
		}
	}
	return false
}
