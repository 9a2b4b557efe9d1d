package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// Payment groups the order items produced by one checkout confirmation.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index:payments_buyer_id_idx"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	SquarePaymentID *string             `gorm:"column:square_payment_id"`
	Items           []OrderItem         `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
