package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db"
	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

const uniqueBuyerProduct = "wishlist_items_buyer_product_key"

// WishlistItemDTO is one saved listing with its live product data.
type WishlistItemDTO struct {
	ID                 uuid.UUID           `json:"id"`
	ProductID          uuid.UUID           `json:"product_id"`
	SellerID           uuid.UUID           `json:"seller_id"`
	ProductName        string              `json:"product_name"`
	ImageURL           string              `json:"image_url"`
	PriceCents         int                 `json:"price_cents"`
	OriginalPriceCents int                 `json:"original_price_cents"`
	Available          int                 `json:"available"`
	ProductStatus      enums.ProductStatus `json:"product_status"`
	SavedAt            time.Time           `json:"saved_at"`
}

// AddInput carries the wishlist add request body.
type AddInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// Service exposes the buyer wishlist operations.
type Service interface {
	Add(ctx context.Context, buyerID uuid.UUID, input AddInput) error
	Remove(ctx context.Context, buyerID, productID uuid.UUID) error
	List(ctx context.Context, buyerID uuid.UUID) ([]WishlistItemDTO, error)
}

type repository interface {
	Insert(ctx context.Context, item *models.WishlistItem) error
	DeleteByProduct(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	ListLines(ctx context.Context, buyerID uuid.UUID) ([]WishlistLine, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     repository
	products productFinder
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Repo     repository
	Products productFinder
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

func (s *service) Add(ctx context.Context, buyerID uuid.UUID, input AddInput) error {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.Status != enums.ProductStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is no longer available")
	}

	item := &models.WishlistItem{BuyerID: buyerID, ProductID: input.ProductID}
	if err := s.repo.Insert(ctx, item); err != nil {
		// Saving twice is fine from the client's point of view.
		if db.IsUniqueViolation(err, uniqueBuyerProduct) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add wishlist item")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, buyerID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	removed, err := s.repo.DeleteByProduct(ctx, buyerID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]WishlistItemDTO, error) {
	lines, err := s.repo.ListLines(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}
	items := make([]WishlistItemDTO, 0, len(lines))
	for _, line := range lines {
		items = append(items, WishlistItemDTO{
			ID:                 line.WishlistItemID,
			ProductID:          line.ProductID,
			SellerID:           line.SellerID,
			ProductName:        line.ProductName,
			ImageURL:           line.ImageURL,
			PriceCents:         line.PriceCents,
			OriginalPriceCents: line.OriginalPriceCents,
			Available:          line.Available,
			ProductStatus:      line.ProductStatus,
			SavedAt:            line.CreatedAt,
		})
	}
	return items, nil
}
