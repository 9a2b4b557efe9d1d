package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// OrderCreatedEvent signals a confirmed checkout and the order items it produced.
type OrderCreatedEvent struct {
	PaymentID    uuid.UUID   `json:"payment_id"`
	BuyerID      uuid.UUID   `json:"buyer_id"`
	OrderItemIDs []uuid.UUID `json:"order_item_ids"`
	TotalCents   int         `json:"total_cents"`
}

// OrderShippedEvent is emitted when a seller marks an item shipped.
type OrderShippedEvent struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	ProductName string    `json:"product_name"`
	ShippedAt   time.Time `json:"shipped_at"`
}

// OrderReceivedEvent is emitted when a buyer confirms delivery.
type OrderReceivedEvent struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	ProductName string    `json:"product_name"`
	ReceivedAt  time.Time `json:"received_at"`
}

// RefundRequestedEvent tells the seller an item needs a refund decision.
type RefundRequestedEvent struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	ProductName string    `json:"product_name"`
	Reason      string    `json:"reason,omitempty"`
}

// RefundDecidedEvent reports the seller's refund decision back to the buyer.
type RefundDecidedEvent struct {
	OrderItemID uuid.UUID          `json:"order_item_id"`
	PaymentID   uuid.UUID          `json:"payment_id"`
	BuyerID     uuid.UUID          `json:"buyer_id"`
	SellerID    uuid.UUID          `json:"seller_id"`
	ProductName string             `json:"product_name"`
	Decision    enums.RefundStatus `json:"decision"`
}

// DonationDecidedEvent reports an admin's approval or rejection of a donation.
type DonationDecidedEvent struct {
	DonationID uuid.UUID            `json:"donation_id"`
	DonorID    uuid.UUID            `json:"donor_id"`
	Name       string               `json:"name"`
	Decision   enums.DonationStatus `json:"decision"`
}

// CartAdjustedEvent is emitted when the sweeper clamps or removes a cart line
// because the backing product's stock changed.
type CartAdjustedEvent struct {
	CartItemID  uuid.UUID `json:"cart_item_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
	Removed     bool      `json:"removed"`
}
