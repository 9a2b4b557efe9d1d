package donations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/pagination"
)

// Repository encapsulates donation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a donations repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new donation offer.
func (r *Repository) Create(ctx context.Context, donation *models.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

// FindByID loads a donation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).First(&donation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

// Update applies the provided column map to a donation.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateTx applies the provided column map inside a transaction.
func (r *Repository) UpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListByDonor returns a cursor page of the donor's donations, newest first.
func (r *Repository) ListByDonor(ctx context.Context, donorID uuid.UUID, cursor string, limit int) ([]models.Donation, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("donor_id = ?", donorID)
	return r.listPage(query, cursor, limit)
}

// CountByDonor returns how many donations the donor has offered.
func (r *Repository) CountByDonor(ctx context.Context, donorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("donor_id = ?", donorID).
		Count(&count).Error
	return count, err
}

// List returns a cursor page of all donations with optional filters.
func (r *Repository) List(ctx context.Context, input AdminListInput) ([]models.Donation, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Donation{})
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.CollectionStatus != "" {
		query = query.Where("collection_status = ?", input.CollectionStatus)
	}
	return r.listPage(query, input.Cursor, input.Limit)
}

func (r *Repository) listPage(query *gorm.DB, cursor string, limit int) ([]models.Donation, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	decodedCursor, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if decodedCursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var donations []models.Donation
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&donations).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(donations) > normalizedLimit {
		donations = donations[:normalizedLimit]
		last := donations[len(donations)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return donations, nextCursor, nil
}
