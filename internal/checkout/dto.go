package checkout

import (
	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// SaveSelectionInput carries the set of cart lines the buyer intends to buy.
type SaveSelectionInput struct {
	CartIDs []uuid.UUID `json:"cart_ids" validate:"required,min=1,dive,required"`
}

// SummaryDTO is the pre-payment fold over the selected cart lines.
type SummaryDTO struct {
	ItemCount  int    `json:"item_count"`
	TotalCents int    `json:"total_cents"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
}

// ConfirmInput carries the payment source for checkout confirmation.
type ConfirmInput struct {
	PaymentSourceID string `json:"payment_source_id" validate:"required"`
}

// ConfirmedItemDTO is one purchased line on the confirmation receipt.
type ConfirmedItemDTO struct {
	OrderItemID    uuid.UUID `json:"order_item_id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	TotalCents     int       `json:"total_cents"`
}

// ConfirmationDTO is the checkout receipt.
type ConfirmationDTO struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	Status     enums.PaymentStatus `json:"status"`
	TotalCents int                 `json:"total_cents"`
	Total      string              `json:"total"`
	Currency   string              `json:"currency"`
	Items      []ConfirmedItemDTO  `json:"items"`
}
