package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	"github.com/thriftline/thriftline-backend/pkg/pagination"
)

// Repository encapsulates product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new listing.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads a listing by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a listing with a row lock inside a transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Clauses(lockingClause()).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update applies the provided column map to a listing.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateTx applies the provided column map to a listing inside a transaction.
func (r *Repository) UpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes a listing.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// ListApproved returns a cursor page of approved listings with optional filters.
func (r *Repository) ListApproved(ctx context.Context, input ListApprovedInput) ([]models.Product, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status = ?", enums.ProductStatusApproved).
		Where("quantity > 0")

	if input.Category != "" {
		query = query.Where("category = ?", input.Category)
	}
	if input.Size != "" {
		query = query.Where("size = ?", input.Size)
	}
	if input.MinPriceCents != nil {
		query = query.Where("price_cents >= ?", *input.MinPriceCents)
	}
	if input.MaxPriceCents != nil {
		query = query.Where("price_cents <= ?", *input.MaxPriceCents)
	}

	return r.listPage(query, input.Cursor, input.Limit)
}

// Search matches the term against listing names and descriptions.
func (r *Repository) Search(ctx context.Context, term, cursor string, limit int) ([]models.Product, string, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status = ?", enums.ProductStatusApproved).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)

	return r.listPage(query, cursor, limit)
}

// ListBySeller returns the seller's own listings in every status.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.Product, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ?", sellerID)

	return r.listPage(query, cursor, limit)
}

// SearchBySeller narrows the seller's listings to names matching the term.
func (r *Repository) SearchBySeller(ctx context.Context, sellerID uuid.UUID, term, cursor string, limit int) ([]models.Product, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ?", sellerID)
	if trimmed := strings.TrimSpace(term); trimmed != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(trimmed)+"%")
	}

	return r.listPage(query, cursor, limit)
}

// CountBySellerAndStatus counts the seller's listings in a given status.
func (r *Repository) CountBySellerAndStatus(ctx context.Context, sellerID uuid.UUID, status enums.ProductStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("seller_id = ? AND status = ?", sellerID, status).
		Count(&count).Error
	return count, err
}

// ListPending returns listings waiting on an admin decision.
func (r *Repository) ListPending(ctx context.Context, cursor string, limit int) ([]models.Product, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status = ?", enums.ProductStatusPending)

	return r.listPage(query, cursor, limit)
}

func lockingClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func (r *Repository) listPage(query *gorm.DB, cursor string, limit int) ([]models.Product, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var rows []models.Product
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

// DistinctCategories lists the categories present in the approved catalog.
func (r *Repository) DistinctCategories(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "category")
}

// DistinctSizes lists the sizes present in the approved catalog.
func (r *Repository) DistinctSizes(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "size")
}

func (r *Repository) distinctColumn(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status = ?", enums.ProductStatusApproved).
		Distinct(column).
		Order(column + " ASC").
		Pluck(column, &values).Error
	return values, err
}

// PriceRange returns the min and max approved sale prices in cents.
func (r *Repository) PriceRange(ctx context.Context) (int, int, error) {
	var row struct {
		Min int
		Max int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status = ?", enums.ProductStatusApproved).
		Select("COALESCE(MIN(price_cents), 0) AS min, COALESCE(MAX(price_cents), 0) AS max").
		Scan(&row).Error
	return row.Min, row.Max, err
}

// CountCartReferences counts cart lines pointing at the listing.
func (r *Repository) CountCartReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

// CountOpenOrderReferences counts order items for the listing that are not yet completed.
func (r *Repository) CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Where("product_id = ?", productID).
		Where("status NOT IN ?", []enums.OrderItemStatus{enums.OrderItemStatusCompleted}).
		Count(&count).Error
	return count, err
}
