package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// WishlistLine is a wishlist row joined with live product data.
type WishlistLine struct {
	WishlistItemID     uuid.UUID           `gorm:"column:wishlist_item_id"`
	ProductID          uuid.UUID           `gorm:"column:product_id"`
	ProductName        string              `gorm:"column:product_name"`
	SellerID           uuid.UUID           `gorm:"column:seller_id"`
	PriceCents         int                 `gorm:"column:price_cents"`
	OriginalPriceCents int                 `gorm:"column:original_price_cents"`
	ImageURL           string              `gorm:"column:image_url"`
	Available          int                 `gorm:"column:available"`
	ProductStatus      enums.ProductStatus `gorm:"column:product_status"`
	CreatedAt          time.Time           `gorm:"column:created_at"`
}

const wishlistLineSelect = `wishlist_items.id AS wishlist_item_id, wishlist_items.product_id,
wishlist_items.created_at, products.name AS product_name, products.seller_id,
products.price_cents, products.original_price_cents, products.image_url,
products.quantity AS available, products.status AS product_status`

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert saves a wishlist entry. A duplicate (buyer, product) pair
// surfaces as a unique violation on wishlist_items_buyer_product_key.
func (r *Repository) Insert(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Count returns the number of saved listings for the buyer.
func (r *Repository) Count(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count, err
}

// DeleteByProduct removes the buyer's entry for the product, reporting
// whether a row was actually deleted.
func (r *Repository) DeleteByProduct(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Delete(&models.WishlistItem{}, "buyer_id = ? AND product_id = ?", buyerID, productID)
	return result.RowsAffected > 0, result.Error
}

// ListLines returns the buyer's wishlist joined with live product data,
// newest first.
func (r *Repository) ListLines(ctx context.Context, buyerID uuid.UUID) ([]WishlistLine, error) {
	var lines []WishlistLine
	err := r.db.WithContext(ctx).
		Table("wishlist_items").
		Select(wishlistLineSelect).
		Joins("JOIN products ON products.id = wishlist_items.product_id").
		Where("wishlist_items.buyer_id = ?", buyerID).
		Order("wishlist_items.created_at DESC").
		Scan(&lines).Error
	return lines, err
}
