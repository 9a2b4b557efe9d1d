package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// OrderItem is the purchased snapshot of one product within a payment.
// Each item carries its own fulfillment status and refund state.
type OrderItem struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID      uuid.UUID             `gorm:"column:payment_id;type:uuid;not null;index:order_items_payment_id_idx"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	SellerID       uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index:order_items_seller_id_idx"`
	ProductName    string                `gorm:"column:product_name;not null"`
	Quantity       int                   `gorm:"column:quantity;not null"`
	UnitPriceCents int                   `gorm:"column:unit_price_cents;not null"`
	TotalCents     int                   `gorm:"column:total_cents;not null"`
	Status         enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'processing'"`
	RefundStatus   enums.RefundStatus    `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundReason   *string               `gorm:"column:refund_reason"`
	ShippedAt      *time.Time            `gorm:"column:shipped_at"`
	ReceivedAt     *time.Time            `gorm:"column:received_at"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
