package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// Donation is an item offered to the marketplace's charity program.
// Approval and collection advance independently; name, status and image are
// immutable after creation and nothing is editable once collected.
type Donation struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DonorID          uuid.UUID              `gorm:"column:donor_id;type:uuid;not null;index:donations_donor_id_idx"`
	Name             string                 `gorm:"column:name;not null"`
	Description      string                 `gorm:"column:description;not null"`
	Category         string                 `gorm:"column:category;not null"`
	ItemType         string                 `gorm:"column:item_type;not null"`
	Size             string                 `gorm:"column:size;not null"`
	Quantity         int                    `gorm:"column:quantity;not null;default:1"`
	ImageURL         string                 `gorm:"column:image_url;not null"`
	Status           enums.DonationStatus   `gorm:"column:status;type:donation_status;not null;default:'pending'"`
	CollectionStatus enums.CollectionStatus `gorm:"column:collection_status;type:collection_status;not null;default:'not_collected'"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
