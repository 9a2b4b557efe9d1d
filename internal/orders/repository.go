package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	"github.com/thriftline/thriftline-backend/pkg/pagination"
)

// Repository encapsulates payment and order item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreatePaymentTx inserts a payment with its order items in one statement.
func (r *Repository) CreatePaymentTx(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return tx.WithContext(ctx).Create(payment).Error
}

// UpdatePaymentTx applies the provided column map to a payment.
func (r *Repository) UpdatePaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindPaymentByID loads a payment with its items.
func (r *Repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPaymentTx loads a payment inside a transaction, items excluded.
func (r *Repository) FindPaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPaymentsByBuyer returns a cursor page of the buyer's payments,
// items preloaded, newest first.
func (r *Repository) ListPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) ([]models.Payment, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Preload("Items").
		Where("buyer_id = ?", buyerID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var payments []models.Payment
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&payments).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(payments) > normalizedLimit {
		payments = payments[:normalizedLimit]
		last := payments[len(payments)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return payments, nextCursor, nil
}

// ListItemsBySeller returns a cursor page of the seller's sold items,
// newest first.
func (r *Repository) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.OrderItem, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("seller_id = ?", sellerID)
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var items []models.OrderItem
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&items).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(items) > normalizedLimit {
		items = items[:normalizedLimit]
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return items, nextCursor, nil
}

// FindItemForUpdate loads an order item with a row lock inside a transaction.
func (r *Repository) FindItemForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemsByIDsForUpdate loads and locks a batch of order items.
func (r *Repository) FindItemsByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

// UpdateItemTx applies the provided column map to an order item.
func (r *Repository) UpdateItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountItemsNotRefunded counts the payment's items whose refund was not
// approved. Zero means the whole payment has been refunded.
func (r *Repository) CountItemsNotRefunded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("payment_id = ?", paymentID).
		Where("refund_status <> ?", enums.RefundStatusApproved).
		Count(&count).Error
	return count, err
}

// ListReceivedBefore returns received items whose refund window has
// passed and that carry no open refund, oldest first. The sweeper
// completes these.
func (r *Repository) ListReceivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderItemStatusReceived).
		Where("received_at < ?", cutoff).
		Where("refund_status IN ?", []enums.RefundStatus{enums.RefundStatusNone, enums.RefundStatusRejected}).
		Order("received_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// UpdateItem applies the provided column map outside a transaction.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountPaymentsByBuyer returns the buyer's total order count.
func (r *Repository) CountPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("buyer_id = ?", buyerID).
		Count(&count).Error
	return count, err
}

// CountItemsBySeller returns how many items the seller has sold.
func (r *Repository) CountItemsBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("seller_id = ?", sellerID).
		Count(&count).Error
	return count, err
}

// SellerRevenueCents sums the seller's item totals, excluding refunded items.
func (r *Repository) SellerRevenueCents(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("COALESCE(SUM(total_cents), 0)").
		Where("seller_id = ?", sellerID).
		Where("refund_status <> ?", enums.RefundStatusApproved).
		Scan(&total).Error
	return total, err
}
