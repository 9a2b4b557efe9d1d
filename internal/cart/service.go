package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/internal/quantity"
	"github.com/thriftline/thriftline-backend/pkg/db"
	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
)

const (
	badgeTTL = 10 * time.Minute

	uniqueBuyerProduct = "cart_items_buyer_product_key"
)

// Service exposes the buyer cart operations.
type Service interface {
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*CartLineDTO, error)
	UpdateQuantity(ctx context.Context, buyerID, cartID uuid.UUID, qty int) (*CartLineDTO, error)
	RemoveItem(ctx context.Context, buyerID, cartID uuid.UUID) error
	List(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error)
	Count(ctx context.Context, buyerID uuid.UUID) (int, error)
}

type repository interface {
	Insert(ctx context.Context, item *models.CartItem) error
	FindByBuyerAndID(ctx context.Context, buyerID, cartID uuid.UUID) (*models.CartItem, error)
	FindByBuyerAndProduct(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListLines(ctx context.Context, buyerID uuid.UUID) ([]CartLine, error)
	Count(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type lineGuard interface {
	Begin(ctx context.Context, buyerID, lineID uuid.UUID) (string, error)
	StillHolds(ctx context.Context, buyerID, lineID uuid.UUID, token string) (bool, error)
	Release(ctx context.Context, buyerID, lineID uuid.UUID, token string) error
}

type badgeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartCountKey(buyerID string) string
}

type selectionPruner interface {
	DropLine(ctx context.Context, buyerID, cartID uuid.UUID) error
}

type service struct {
	repo      repository
	products  productFinder
	guard     lineGuard
	badge     badgeCache
	selection selectionPruner
	logg      *logger.Logger
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo      repository
	Products  productFinder
	Guard     lineGuard
	Badge     badgeCache
	Selection selectionPruner
	Logger    *logger.Logger
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("line guard is required")
	}
	if params.Badge == nil {
		return nil, fmt.Errorf("badge cache is required")
	}
	if params.Selection == nil {
		return nil, fmt.Errorf("selection pruner is required")
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		guard:     params.Guard,
		badge:     params.Badge,
		selection: params.Selection,
		logg:      params.Logger,
	}, nil
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*CartLineDTO, error) {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.Status != enums.ProductStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is no longer available")
	}
	if product.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "you cannot add your own listing to the cart")
	}
	if err := validateQuantity(input.Quantity, product.Quantity); err != nil {
		return nil, err
	}

	if existing, findErr := s.repo.FindByBuyerAndProduct(ctx, buyerID, input.ProductID); findErr == nil {
		return nil, alreadyInCart(existing.ID)
	} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "check cart")
	}

	item := &models.CartItem{
		BuyerID:   buyerID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		// Two adds racing past the lookup land here.
		if db.IsUniqueViolation(err, uniqueBuyerProduct) {
			return nil, alreadyInCart(uuid.Nil)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}

	s.invalidateBadge(ctx, buyerID)

	dto := dtoFromItem(item, product)
	return &dto, nil
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, cartID uuid.UUID, qty int) (*CartLineDTO, error) {
	item, err := s.loadLine(ctx, buyerID, cartID)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	// Identical repeats are a no-op, not an error.
	if qty == item.Quantity {
		dto := dtoFromItem(item, product)
		return &dto, nil
	}

	token, err := s.guard.Begin(ctx, buyerID, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim cart line")
	}

	if err := validateQuantity(qty, product.Quantity); err != nil {
		_ = s.guard.Release(ctx, buyerID, cartID, token)
		return nil, err
	}

	held, err := s.guard.StillHolds(ctx, buyerID, cartID, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart line claim")
	}
	if !held {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another update for this item is in progress")
	}

	if err := s.repo.UpdateQuantity(ctx, cartID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart quantity")
	}
	if err := s.guard.Release(ctx, buyerID, cartID, token); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "cart line token release failed")
	}

	item.Quantity = qty
	dto := dtoFromItem(item, product)
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, buyerID, cartID uuid.UUID) error {
	item, err := s.loadLine(ctx, buyerID, cartID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if err := s.selection.DropLine(ctx, buyerID, cartID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "checkout selection prune failed")
	}
	s.invalidateBadge(ctx, buyerID)
	return nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) (*CartDTO, error) {
	lines, err := s.repo.ListLines(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	items := linesToDTOs(lines)
	return &CartDTO{Items: items, Count: len(items)}, nil
}

func (s *service) Count(ctx context.Context, buyerID uuid.UUID) (int, error) {
	key := s.badge.CartCountKey(buyerID.String())
	cached, err := s.badge.Get(ctx, key)
	if err == nil {
		if count, convErr := strconv.Atoi(cached); convErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, redislib.Nil) && s.logg != nil {
		s.logg.Warn(ctx, "cart badge cache read failed")
	}

	count, err := s.repo.Count(ctx, buyerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart")
	}
	if setErr := s.badge.Set(ctx, key, strconv.FormatInt(count, 10), badgeTTL); setErr != nil && s.logg != nil {
		s.logg.Warn(ctx, "cart badge cache write failed")
	}
	return int(count), nil
}

func (s *service) loadLine(ctx context.Context, buyerID, cartID uuid.UUID) (*models.CartItem, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	item, err := s.repo.FindByBuyerAndID(ctx, buyerID, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	return item, nil
}

func (s *service) invalidateBadge(ctx context.Context, buyerID uuid.UUID) {
	if err := s.badge.Del(ctx, s.badge.CartCountKey(buyerID.String())); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "cart badge cache invalidation failed")
	}
}

func validateQuantity(qty, available int) error {
	if err := quantity.Validate(qty, available); err != nil {
		var short *quantity.InsufficientStockError
		if errors.As(err, &short) {
			return pkgerrors.InsufficientStock(short.Available, short.Requested)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return nil
}

func alreadyInCart(cartID uuid.UUID) *pkgerrors.Error {
	err := pkgerrors.New(pkgerrors.CodeAlreadyInCart, "item is already in your cart")
	if cartID != uuid.Nil {
		return err.WithDetails(map[string]string{"cart_id": cartID.String()})
	}
	return err
}

func dtoFromItem(item *models.CartItem, product *models.Product) CartLineDTO {
	return CartLineDTO{
		ID:                 item.ID,
		ProductID:          product.ID,
		SellerID:           product.SellerID,
		ProductName:        product.Name,
		ImageURL:           product.ImageURL,
		PriceCents:         product.PriceCents,
		OriginalPriceCents: product.OriginalPriceCents,
		Quantity:           item.Quantity,
		Available:          product.Quantity,
		ProductStatus:      product.Status,
		LineTotalCents:     product.PriceCents * item.Quantity,
		AddedAt:            item.CreatedAt,
	}
}
