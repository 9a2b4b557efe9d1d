package donations

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// DonationDTO is the API view of a donation.
type DonationDTO struct {
	ID               uuid.UUID              `json:"id"`
	DonorID          uuid.UUID              `json:"donor_id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	Category         string                 `json:"category"`
	ItemType         string                 `json:"item_type"`
	Size             string                 `json:"size"`
	Quantity         int                    `json:"quantity"`
	ImageURL         string                 `json:"image_url"`
	Status           enums.DonationStatus   `json:"status"`
	CollectionStatus enums.CollectionStatus `json:"collection_status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// DonationPageDTO is a cursor page of donations.
type DonationPageDTO struct {
	Items      []DonationDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// CreateDonationInput carries a new donation offer.
type CreateDonationInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	Category    string `json:"category" validate:"required,max=100"`
	ItemType    string `json:"item_type" validate:"required,max=100"`
	Size        string `json:"size" validate:"required,max=50"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	ImageURL    string `json:"image_url" validate:"required,url"`
}

// UpdateDonationInput carries a donor edit. Name, status, collection
// status and image are immutable; sending an unchanged value is accepted.
type UpdateDonationInput struct {
	Name        *string `json:"name,omitempty"`
	Status      *string `json:"status,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	ItemType    *string `json:"item_type,omitempty"`
	Size        *string `json:"size,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
}

// AdminListInput filters the admin donation listing.
type AdminListInput struct {
	Status           string
	CollectionStatus string
	Cursor           string
	Limit            int
}

// FromModel maps a donation row to its DTO.
func FromModel(donation *models.Donation) DonationDTO {
	return DonationDTO{
		ID:               donation.ID,
		DonorID:          donation.DonorID,
		Name:             donation.Name,
		Description:      donation.Description,
		Category:         donation.Category,
		ItemType:         donation.ItemType,
		Size:             donation.Size,
		Quantity:         donation.Quantity,
		ImageURL:         donation.ImageURL,
		Status:           donation.Status,
		CollectionStatus: donation.CollectionStatus,
		CreatedAt:        donation.CreatedAt,
		UpdatedAt:        donation.UpdatedAt,
	}
}

func fromModels(donations []models.Donation) []DonationDTO {
	dtos := make([]DonationDTO, 0, len(donations))
	for i := range donations {
		dtos = append(dtos, FromModel(&donations[i]))
	}
	return dtos
}
