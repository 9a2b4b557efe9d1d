package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// CartLineDTO is one cart line joined with live product data.
type CartLineDTO struct {
	ID                 uuid.UUID           `json:"id"`
	ProductID          uuid.UUID           `json:"product_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	ProductName        string              `json:"product_name"`
	ImageURL           string              `json:"image_url"`
	PriceCents         int                 `json:"price_cents"`
	OriginalPriceCents int                 `json:"original_price_cents"`
	Quantity           int                 `json:"quantity"`
	Available          int                 `json:"available"`
	ProductStatus      enums.ProductStatus `json:"product_status"`
	LineTotalCents     int                 `json:"line_total_cents"`
	AddedAt            time.Time           `json:"added_at"`
}

// CartDTO is the full cart view returned by List.
type CartDTO struct {
	Items []CartLineDTO `json:"items"`
	Count int           `json:"count"`
}

// AddItemInput carries the add-to-cart request body.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// UpdateQuantityInput carries the quantity-update request body.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func lineToDTO(line CartLine) CartLineDTO {
	return CartLineDTO{
		ID:                 line.CartItemID,
		ProductID:          line.ProductID,
		SellerID:           line.SellerID,
		ProductName:        line.ProductName,
		ImageURL:           line.ImageURL,
		PriceCents:         line.PriceCents,
		OriginalPriceCents: line.OriginalPriceCents,
		Quantity:           line.Quantity,
		Available:          line.Available,
		ProductStatus:      line.ProductStatus,
		LineTotalCents:     line.PriceCents * line.Quantity,
		AddedAt:            line.CreatedAt,
	}
}

func linesToDTOs(lines []CartLine) []CartLineDTO {
	dtos := make([]CartLineDTO, 0, len(lines))
	for _, line := range lines {
		dtos = append(dtos, lineToDTO(line))
	}
	return dtos
}
