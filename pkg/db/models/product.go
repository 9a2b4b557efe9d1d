package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// Product is a seller listing. Name, status and image are immutable after
// creation; the sale price may only ever be reduced.
type Product struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index:products_seller_id_idx"`
	Name               string              `gorm:"column:name;not null"`
	Description        string              `gorm:"column:description;not null"`
	Category           string              `gorm:"column:category;not null"`
	ItemType           string              `gorm:"column:item_type;not null"`
	Size               string              `gorm:"column:size;not null"`
	Quantity           int                 `gorm:"column:quantity;not null;default:0"`
	PriceCents         int                 `gorm:"column:price_cents;not null"`
	OriginalPriceCents int                 `gorm:"column:original_price_cents;not null"`
	ImageURL           string              `gorm:"column:image_url;not null"`
	Status             enums.ProductStatus `gorm:"column:status;type:product_status;not null;default:'pending'"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
