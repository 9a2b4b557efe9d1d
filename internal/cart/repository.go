package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// CartLine is a cart row joined with the live product columns the cart
// views and the sweeper need.
type CartLine struct {
	CartItemID         uuid.UUID           `gorm:"column:cart_item_id"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id"`
	ProductID          uuid.UUID           `gorm:"column:product_id"`
	Quantity           int                 `gorm:"column:quantity"`
	CreatedAt          time.Time           `gorm:"column:created_at"`
	ProductName        string              `gorm:"column:product_name"`
	SellerID           uuid.UUID           `gorm:"column:seller_id"`
	PriceCents         int                 `gorm:"column:price_cents"`
	OriginalPriceCents int                 `gorm:"column:original_price_cents"`
	ImageURL           string              `gorm:"column:image_url"`
	Available          int                 `gorm:"column:available"`
	ProductStatus      enums.ProductStatus `gorm:"column:product_status"`
}

const lineSelect = `cart_items.id AS cart_item_id, cart_items.buyer_id, cart_items.product_id,
cart_items.quantity, cart_items.created_at, products.name AS product_name,
products.seller_id, products.price_cents, products.original_price_cents,
products.image_url, products.quantity AS available, products.status AS product_status`

// Repository encapsulates cart persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Insert creates a new cart line. A duplicate (buyer, product) pair
// surfaces as a unique violation on cart_items_buyer_product_key.
func (r *Repository) Insert(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByBuyerAndID loads a cart line scoped to its owner.
func (r *Repository) FindByBuyerAndID(ctx context.Context, buyerID, cartID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND buyer_id = ?", cartID, buyerID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByBuyerAndProduct loads a cart line by its unique (buyer, product) pair.
func (r *Repository) FindByBuyerAndProduct(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "buyer_id = ? AND product_id = ?", buyerID, productID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByBuyerAndIDs loads the buyer's cart lines matching the given ids.
func (r *Repository) FindByBuyerAndIDs(ctx context.Context, buyerID uuid.UUID, ids []uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

// UpdateQuantity sets the stored quantity for a line.
func (r *Repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

// UpdateQuantityTx sets the stored quantity for a line inside a
// transaction. The sweeper clamps lines atomically with the event it
// emits for them.
func (r *Repository) UpdateQuantityTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, quantity int) error {
	return tx.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

// Delete removes a cart line.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

// DeleteByIDsTx removes a batch of lines inside a transaction. Checkout
// uses it to clear purchased lines atomically with the order insert.
func (r *Repository) DeleteByIDsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Delete(&models.CartItem{}, "id IN ?", ids).Error
}

// ListLines returns the buyer's cart joined with live product data,
// newest first.
func (r *Repository) ListLines(ctx context.Context, buyerID uuid.UUID) ([]CartLine, error) {
	var lines []CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select(lineSelect).
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.buyer_id = ?", buyerID).
		Order("cart_items.created_at DESC").
		Scan(&lines).Error
	return lines, err
}

// Count returns the number of lines in the buyer's cart.
func (r *Repository) Count(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count, err
}

// outOfSyncSelect coalesces the product columns so lines whose product
// row was deleted still scan.
const outOfSyncSelect = `cart_items.id AS cart_item_id, cart_items.buyer_id, cart_items.product_id,
cart_items.quantity, cart_items.created_at,
COALESCE(products.name, '') AS product_name,
COALESCE(products.price_cents, 0) AS price_cents,
COALESCE(products.original_price_cents, 0) AS original_price_cents,
COALESCE(products.image_url, '') AS image_url,
COALESCE(products.quantity, 0) AS available,
COALESCE(products.status, '') AS product_status`

// ListOutOfSync returns lines whose backing product no longer supports
// them: the product is gone, no longer approved, or has less stock than
// the stored quantity. The sweeper reconciles these.
func (r *Repository) ListOutOfSync(ctx context.Context, limit int) ([]CartLine, error) {
	var lines []CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select(outOfSyncSelect).
		Joins("LEFT JOIN products ON products.id = cart_items.product_id").
		Where(`products.id IS NULL
			OR products.status <> ?
			OR products.quantity < cart_items.quantity`, enums.ProductStatusApproved).
		Order("cart_items.created_at ASC").
		Limit(limit).
		Scan(&lines).Error
	return lines, err
}
