package donations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
	"github.com/thriftline/thriftline-backend/pkg/outbox/payloads"
)

// Service exposes donor and admin donation operations.
type Service interface {
	Create(ctx context.Context, donorID uuid.UUID, input CreateDonationInput) (*DonationDTO, error)
	ListMine(ctx context.Context, donorID uuid.UUID, cursor string, limit int) (*DonationPageDTO, error)
	AdminList(ctx context.Context, input AdminListInput) (*DonationPageDTO, error)
	Update(ctx context.Context, donorID, donationID uuid.UUID, input UpdateDonationInput) (*DonationDTO, error)
	Decide(ctx context.Context, adminID, donationID uuid.UUID, approve bool) (*DonationDTO, error)
	MarkCollected(ctx context.Context, adminID, donationID uuid.UUID) (*DonationDTO, error)
}

type repository interface {
	Create(ctx context.Context, donation *models.Donation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	ListByDonor(ctx context.Context, donorID uuid.UUID, cursor string, limit int) ([]models.Donation, string, error)
	List(ctx context.Context, input AdminListInput) ([]models.Donation, string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   repository
	tx     txRunner
	events eventEmitter
}

// ServiceParams groups dependencies for the donations service.
type ServiceParams struct {
	Repo   repository
	Tx     txRunner
	Events eventEmitter
}

// NewService builds a donations service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("donations repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	return &service{repo: params.Repo, tx: params.Tx, events: params.Events}, nil
}

func (s *service) Create(ctx context.Context, donorID uuid.UUID, input CreateDonationInput) (*DonationDTO, error) {
	if donorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donor id is required")
	}
	donation := &models.Donation{
		DonorID:          donorID,
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		Category:         strings.TrimSpace(input.Category),
		ItemType:         strings.TrimSpace(input.ItemType),
		Size:             strings.TrimSpace(input.Size),
		Quantity:         input.Quantity,
		ImageURL:         input.ImageURL,
		Status:           enums.DonationStatusPending,
		CollectionStatus: enums.CollectionStatusNotCollected,
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create donation")
	}
	dto := FromModel(donation)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, donorID uuid.UUID, cursor string, limit int) (*DonationPageDTO, error) {
	donations, next, err := s.repo.ListByDonor(ctx, donorID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list donations")
	}
	return &DonationPageDTO{Items: fromModels(donations), NextCursor: next}, nil
}

func (s *service) AdminList(ctx context.Context, input AdminListInput) (*DonationPageDTO, error) {
	donations, next, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list donations")
	}
	return &DonationPageDTO{Items: fromModels(donations), NextCursor: next}, nil
}

func (s *service) Update(ctx context.Context, donorID, donationID uuid.UUID, input UpdateDonationInput) (*DonationDTO, error) {
	donation, err := s.loadDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.DonorID != donorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "donation belongs to another donor")
	}
	if donation.CollectionStatus == enums.CollectionStatusCollected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "collected donations can no longer be edited")
	}

	if input.Name != nil && *input.Name != donation.Name {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be changed")
	}
	if input.Status != nil && *input.Status != donation.Status.String() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be changed")
	}
	if input.ImageURL != nil && *input.ImageURL != donation.ImageURL {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image cannot be changed")
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.ItemType != nil {
		updates["item_type"] = strings.TrimSpace(*input.ItemType)
	}
	if input.Size != nil {
		updates["size"] = strings.TrimSpace(*input.Size)
	}
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		updates["quantity"] = *input.Quantity
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, donationID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update donation")
		}
	}

	updated, err := s.loadDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) Decide(ctx context.Context, adminID, donationID uuid.UUID, approve bool) (*DonationDTO, error) {
	donation, err := s.loadDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.Status != enums.DonationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "donation has already been decided")
	}

	decision := enums.DonationStatusRejected
	if approve {
		decision = enums.DonationStatusApproved
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(ctx, tx, donationID, map[string]any{"status": decision}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide donation")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventDonationDecided,
			AggregateType: enums.AggregateDonation,
			AggregateID:   donation.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: enums.UserRoleAdmin.String()},
			Data: payloads.DonationDecidedEvent{
				DonationID: donation.ID,
				DonorID:    donation.DonorID,
				Name:       donation.Name,
				Decision:   decision,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit donation event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	donation.Status = decision
	dto := FromModel(donation)
	return &dto, nil
}

func (s *service) MarkCollected(ctx context.Context, adminID, donationID uuid.UUID) (*DonationDTO, error) {
	donation, err := s.loadDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if donation.Status != enums.DonationStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only approved donations can be collected")
	}
	if donation.CollectionStatus != enums.CollectionStatusNotCollected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "donation was already collected")
	}

	updates := map[string]any{"collection_status": enums.CollectionStatusCollected}
	if err := s.repo.Update(ctx, donationID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark donation collected")
	}

	donation.CollectionStatus = enums.CollectionStatusCollected
	dto := FromModel(donation)
	return &dto, nil
}

func (s *service) loadDonation(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}
	donation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "donation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load donation")
	}
	return donation, nil
}
