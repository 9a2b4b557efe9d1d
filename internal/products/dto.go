package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// ProductDTO is the transport shape for a listing.
type ProductDTO struct {
	ID                 uuid.UUID           `json:"id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Category           string              `json:"category"`
	ItemType           string              `json:"item_type"`
	Size               string              `json:"size"`
	Quantity           int                 `json:"quantity"`
	PriceCents         int                 `json:"price_cents"`
	OriginalPriceCents int                 `json:"original_price_cents"`
	ImageURL           string              `json:"image_url"`
	Status             enums.ProductStatus `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// ProductPageDTO is a cursor-paginated product listing.
type ProductPageDTO struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FiltersDTO aggregates the distinct filterable values of the approved catalog.
type FiltersDTO struct {
	Categories    []string `json:"categories"`
	Sizes         []string `json:"sizes"`
	MinPriceCents int      `json:"min_price_cents"`
	MaxPriceCents int      `json:"max_price_cents"`
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name               string `json:"name" validate:"required,min=2,max=160"`
	Description        string `json:"description" validate:"required,max=4000"`
	Category           string `json:"category" validate:"required,max=80"`
	ItemType           string `json:"item_type" validate:"required,max=80"`
	Size               string `json:"size" validate:"required,max=40"`
	Quantity           int    `json:"quantity" validate:"required,min=1"`
	PriceCents         int    `json:"price_cents" validate:"required,min=1"`
	OriginalPriceCents int    `json:"original_price_cents" validate:"required,min=1"`
	ImageURL           string `json:"image_url" validate:"required,url"`
}

// UpdateProductInput carries the mutable listing fields. Name, status and
// image are immutable; sending them with a new value is rejected.
type UpdateProductInput struct {
	Name        *string `json:"name,omitempty"`
	Status      *string `json:"status,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=80"`
	ItemType    *string `json:"item_type,omitempty" validate:"omitempty,max=80"`
	Size        *string `json:"size,omitempty" validate:"omitempty,max=40"`
	Quantity    *int    `json:"quantity,omitempty" validate:"omitempty,min=0"`
	PriceCents  *int    `json:"price_cents,omitempty" validate:"omitempty,min=1"`
}

// ListApprovedInput captures the public catalog query.
type ListApprovedInput struct {
	Cursor        string
	Limit         int
	Category      string
	Size          string
	MinPriceCents *int
	MaxPriceCents *int
}

func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:                 p.ID,
		SellerID:           p.SellerID,
		Name:               p.Name,
		Description:        p.Description,
		Category:           p.Category,
		ItemType:           p.ItemType,
		Size:               p.Size,
		Quantity:           p.Quantity,
		PriceCents:         p.PriceCents,
		OriginalPriceCents: p.OriginalPriceCents,
		ImageURL:           p.ImageURL,
		Status:             p.Status,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return items
}
