package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one cart line: a buyer/product pair with its quantity.
// The (buyer_id, product_id) pair is unique; quantity stays within
// [1, product.quantity] at every mutation.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index:cart_items_buyer_id_idx;uniqueIndex:cart_items_buyer_product_key"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_items_buyer_product_key"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
