package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// OrderItemDTO is one purchased line as shown to buyers and sellers.
type OrderItemDTO struct {
	ID             uuid.UUID             `json:"id"`
	PaymentID      uuid.UUID             `json:"payment_id"`
	ProductID      uuid.UUID             `json:"product_id"`
	SellerID       uuid.UUID             `json:"seller_id"`
	ProductName    string                `json:"product_name"`
	Quantity       int                   `json:"quantity"`
	UnitPriceCents int                   `json:"unit_price_cents"`
	TotalCents     int                   `json:"total_cents"`
	Status         enums.OrderItemStatus `json:"status"`
	RefundStatus   enums.RefundStatus    `json:"refund_status"`
	RefundReason   *string               `json:"refund_reason,omitempty"`
	ShippedAt      *time.Time            `json:"shipped_at,omitempty"`
	ReceivedAt     *time.Time            `json:"received_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// BuyerOrderDTO is one payment with its items and the derived view fields.
type BuyerOrderDTO struct {
	PaymentID         uuid.UUID             `json:"payment_id"`
	Status            enums.PaymentStatus   `json:"status"`
	DominantStatus    enums.OrderItemStatus `json:"dominant_status"`
	CanConfirmReceipt bool                  `json:"can_confirm_receipt"`
	TotalCents        int                   `json:"total_cents"`
	CreatedAt         time.Time             `json:"created_at"`
	Items             []OrderItemDTO        `json:"items"`
}

// BuyerOrdersPageDTO is a cursor page of the buyer's payments.
type BuyerOrdersPageDTO struct {
	Orders     []BuyerOrderDTO `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// SellerOrdersPageDTO is a cursor page of the seller's sold items.
type SellerOrdersPageDTO struct {
	Items      []OrderItemDTO `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ConfirmReceivedInput carries the shipped items the buyer confirms.
type ConfirmReceivedInput struct {
	ItemIDs []uuid.UUID `json:"item_ids" validate:"required,min=1,dive,required"`
}

// RequestRefundInput carries the buyer's refund reason.
type RequestRefundInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// DecideRefundInput carries the admin's refund decision.
type DecideRefundInput struct {
	Approve bool `json:"approve"`
}

func itemToDTO(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:             item.ID,
		PaymentID:      item.PaymentID,
		ProductID:      item.ProductID,
		SellerID:       item.SellerID,
		ProductName:    item.ProductName,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		TotalCents:     item.TotalCents,
		Status:         item.Status,
		RefundStatus:   item.RefundStatus,
		RefundReason:   item.RefundReason,
		ShippedAt:      item.ShippedAt,
		ReceivedAt:     item.ReceivedAt,
		CreatedAt:      item.CreatedAt,
	}
}

func itemsToDTOs(items []models.OrderItem) []OrderItemDTO {
	dtos := make([]OrderItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, itemToDTO(item))
	}
	return dtos
}

func paymentToDTO(payment models.Payment) BuyerOrderDTO {
	return BuyerOrderDTO{
		PaymentID:         payment.ID,
		Status:            payment.Status,
		DominantStatus:    DominantStatus(payment.Items),
		CanConfirmReceipt: CanConfirmReceipt(payment.Items),
		TotalCents:        payment.TotalCents,
		CreatedAt:         payment.CreatedAt,
		Items:             itemsToDTOs(payment.Items),
	}
}
