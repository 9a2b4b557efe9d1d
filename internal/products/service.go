package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

const priceIncreaseMessage = "sale price can only be reduced, not increased"

// Service exposes catalog and seller listing operations.
type Service interface {
	ListApproved(ctx context.Context, input ListApprovedInput) (*ProductPageDTO, error)
	Search(ctx context.Context, term, cursor string, limit int) (*ProductPageDTO, error)
	Filters(ctx context.Context) (*FiltersDTO, error)
	Detail(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, sellerID, productID uuid.UUID) error
	ListMine(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) (*ProductPageDTO, error)
	ListPending(ctx context.Context, cursor string, limit int) (*ProductPageDTO, error)
	Decide(ctx context.Context, productID uuid.UUID, approve bool) (*ProductDTO, error)
}

type repository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListApproved(ctx context.Context, input ListApprovedInput) ([]models.Product, string, error)
	Search(ctx context.Context, term, cursor string, limit int) ([]models.Product, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.Product, string, error)
	ListPending(ctx context.Context, cursor string, limit int) ([]models.Product, string, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	DistinctSizes(ctx context.Context) ([]string, error)
	PriceRange(ctx context.Context) (int, int, error)
	CountCartReferences(ctx context.Context, productID uuid.UUID) (int64, error)
	CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error)
}

type service struct {
	repo repository
}

// ServiceParams groups dependencies for the products service.
type ServiceParams struct {
	Repo repository
}

// NewService builds a products service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("products repository is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListApproved(ctx context.Context, input ListApprovedInput) (*ProductPageDTO, error) {
	rows, next, err := s.repo.ListApproved(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return &ProductPageDTO{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) Search(ctx context.Context, term, cursor string, limit int) (*ProductPageDTO, error) {
	if strings.TrimSpace(term) == "" {
		return s.ListApproved(ctx, ListApprovedInput{Cursor: cursor, Limit: limit})
	}
	rows, next, err := s.repo.Search(ctx, term, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
	}
	return &ProductPageDTO{Items: fromModels(rows), NextCursor: next}, nil
}

// Filters fans the three catalog aggregations out concurrently.
func (s *service) Filters(ctx context.Context) (*FiltersDTO, error) {
	var (
		categories []string
		sizes      []string
		minPrice   int
		maxPrice   int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		categories, err = s.repo.DistinctCategories(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		sizes, err = s.repo.DistinctSizes(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		minPrice, maxPrice, err = s.repo.PriceRange(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load filters")
	}

	return &FiltersDTO{
		Categories:    categories,
		Sizes:         sizes,
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
	}, nil
}

func (s *service) Detail(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if input.PriceCents > input.OriginalPriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot exceed the original price")
	}

	product := &models.Product{
		SellerID:           sellerID,
		Name:               strings.TrimSpace(input.Name),
		Description:        input.Description,
		Category:           strings.TrimSpace(input.Category),
		ItemType:           strings.TrimSpace(input.ItemType),
		Size:               strings.TrimSpace(input.Size),
		Quantity:           input.Quantity,
		PriceCents:         input.PriceCents,
		OriginalPriceCents: input.OriginalPriceCents,
		ImageURL:           input.ImageURL,
		Status:             enums.ProductStatusPending,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}

	if input.Name != nil && *input.Name != product.Name {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be changed")
	}
	if input.Status != nil && *input.Status != product.Status.String() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be changed")
	}
	if input.ImageURL != nil && *input.ImageURL != product.ImageURL {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image cannot be changed")
	}
	if input.PriceCents != nil && *input.PriceCents > product.PriceCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, priceIncreaseMessage)
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
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.PriceCents != nil {
		updates["price_cents"] = *input.PriceCents
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, productID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
	}

	return s.Detail(ctx, productID)
}

func (s *service) Delete(ctx context.Context, sellerID, productID uuid.UUID) error {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.SellerID != sellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "listing belongs to another seller")
	}

	cartRefs, err := s.repo.CountCartReferences(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart references")
	}
	if cartRefs > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "listing is in shoppers' carts")
	}
	orderRefs, err := s.repo.CountOpenOrderReferences(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count order references")
	}
	if orderRefs > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "listing has open orders")
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) ListMine(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) (*ProductPageDTO, error) {
	rows, next, err := s.repo.ListBySeller(ctx, sellerID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller products")
	}
	return &ProductPageDTO{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) ListPending(ctx context.Context, cursor string, limit int) (*ProductPageDTO, error) {
	rows, next, err := s.repo.ListPending(ctx, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending products")
	}
	return &ProductPageDTO{Items: fromModels(rows), NextCursor: next}, nil
}

func (s *service) Decide(ctx context.Context, productID uuid.UUID, approve bool) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != enums.ProductStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing has already been decided")
	}

	status := enums.ProductStatusRejected
	if approve {
		status = enums.ProductStatusApproved
	}
	if err := s.repo.Update(ctx, productID, map[string]any{"status": status}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide product")
	}
	return s.Detail(ctx, productID)
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}
