package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/internal/cart"
	"github.com/thriftline/thriftline-backend/internal/quantity"
	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
	"github.com/thriftline/thriftline-backend/pkg/outbox/payloads"
	"github.com/thriftline/thriftline-backend/pkg/square"
)

const checkoutCurrency = "USD"

// Service exposes the selection, summary and confirmation steps.
type Service interface {
	SaveSelection(ctx context.Context, buyerID uuid.UUID, input SaveSelectionInput) error
	Summary(ctx context.Context, buyerID uuid.UUID) (*SummaryDTO, error)
	Confirm(ctx context.Context, buyerID uuid.UUID, input ConfirmInput) (*ConfirmationDTO, error)
}

type selectionStore interface {
	Save(ctx context.Context, buyerID uuid.UUID, cartIDs []uuid.UUID) error
	Load(ctx context.Context, buyerID uuid.UUID) ([]uuid.UUID, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type cartStore interface {
	FindByBuyerAndIDs(ctx context.Context, buyerID uuid.UUID, ids []uuid.UUID) ([]models.CartItem, error)
	ListLines(ctx context.Context, buyerID uuid.UUID) ([]cart.CartLine, error)
	DeleteByIDsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type productStore interface {
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type paymentStore interface {
	CreatePaymentTx(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	UpdatePaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	LocationID() string
}

type service struct {
	selections selectionStore
	carts      cartStore
	products   productStore
	payments   paymentStore
	tx         txRunner
	events     eventEmitter
	gateway    paymentGateway
	logg       *logger.Logger
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Selections selectionStore
	Carts      cartStore
	Products   productStore
	Payments   paymentStore
	Tx         txRunner
	Events     eventEmitter
	Gateway    paymentGateway
	Logger     *logger.Logger
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Selections == nil {
		return nil, fmt.Errorf("selection store is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store is required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment store is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	return &service{
		selections: params.Selections,
		carts:      params.Carts,
		products:   params.Products,
		payments:   params.Payments,
		tx:         params.Tx,
		events:     params.Events,
		gateway:    params.Gateway,
		logg:       params.Logger,
	}, nil
}

func (s *service) SaveSelection(ctx context.Context, buyerID uuid.UUID, input SaveSelectionInput) error {
	if len(input.CartIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "select at least one item")
	}
	unique := dedupe(input.CartIDs)

	items, err := s.carts.FindByBuyerAndIDs(ctx, buyerID, unique)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	if len(items) != len(unique) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "one or more cart items were not found")
	}

	if err := s.selections.Save(ctx, buyerID, unique); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save selection")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, buyerID uuid.UUID) (*SummaryDTO, error) {
	cartIDs, err := s.loadSelection(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.ListLines(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	selected := make(map[uuid.UUID]bool, len(cartIDs))
	for _, id := range cartIDs {
		selected[id] = true
	}

	itemCount := 0
	totalCents := 0
	for _, line := range lines {
		if !selected[line.CartItemID] {
			continue
		}
		itemCount += line.Quantity
		totalCents += line.PriceCents * line.Quantity
	}

	return &SummaryDTO{
		ItemCount:  itemCount,
		TotalCents: totalCents,
		Total:      formatAmount(totalCents),
		Currency:   checkoutCurrency,
	}, nil
}

// Confirm turns the buyer's selection into a payment and its order items.
// Stock revalidation, the stock decrement, the cart cleanup and the outbox
// emit share one transaction, so a shortfall or a declined charge rolls
// everything back.
func (s *service) Confirm(ctx context.Context, buyerID uuid.UUID, input ConfirmInput) (*ConfirmationDTO, error) {
	if input.PaymentSourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	cartIDs, err := s.loadSelection(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var receipt *ConfirmationDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items, err := s.carts.FindByBuyerAndIDs(ctx, buyerID, cartIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(items) != len(cartIDs) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart no longer matches the selection")
		}

		subtotalCents := 0
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := s.products.FindByIDForUpdate(ctx, tx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "a selected listing is no longer available")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock product")
			}
			if product.Status != enums.ProductStatusApproved {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a selected listing is no longer available")
			}
			if err := quantity.Validate(item.Quantity, product.Quantity); err != nil {
				var short *quantity.InsufficientStockError
				if errors.As(err, &short) {
					return pkgerrors.InsufficientStock(short.Available, short.Requested)
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate quantity")
			}

			lineTotal := product.PriceCents * item.Quantity
			subtotalCents += lineTotal
			orderItems = append(orderItems, models.OrderItem{
				ProductID:      product.ID,
				SellerID:       product.SellerID,
				ProductName:    product.Name,
				Quantity:       item.Quantity,
				UnitPriceCents: product.PriceCents,
				TotalCents:     lineTotal,
				Status:         enums.OrderItemStatusProcessing,
				RefundStatus:   enums.RefundStatusNone,
			})

			remaining := product.Quantity - item.Quantity
			updates := map[string]any{"quantity": remaining}
			if remaining == 0 {
				updates["status"] = enums.ProductStatusSold
			}
			if err := s.products.UpdateTx(ctx, tx, product.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
		}

		payment := &models.Payment{
			BuyerID:       buyerID,
			SubtotalCents: subtotalCents,
			TotalCents:    subtotalCents,
			Status:        enums.PaymentStatusPending,
			Items:         orderItems,
		}
		if err := s.payments.CreatePaymentTx(ctx, tx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment")
		}

		if err := s.carts.DeleteByIDsTx(ctx, tx, cartIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
		}

		orderItemIDs := make([]uuid.UUID, 0, len(payment.Items))
		for _, item := range payment.Items {
			orderItemIDs = append(orderItemIDs, item.ID)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
			Data: payloads.OrderCreatedEvent{
				PaymentID:    payment.ID,
				BuyerID:      buyerID,
				OrderItemIDs: orderItemIDs,
				TotalCents:   subtotalCents,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
		}

		charged, err := s.gateway.CreatePayment(ctx, square.PaymentCreateParams{
			AmountCents:    int64(subtotalCents),
			Currency:       checkoutCurrency,
			LocationID:     s.gateway.LocationID(),
			SourceID:       input.PaymentSourceID,
			IdempotencyKey: payment.ID.String(),
			ReferenceID:    payment.ID.String(),
		})
		if err != nil {
			return err
		}
		updates := map[string]any{"status": enums.PaymentStatusPaid}
		if id := charged.GetID(); id != nil && *id != "" {
			updates["square_payment_id"] = *id
		}
		if err := s.payments.UpdatePaymentTx(ctx, tx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
		}

		receipt = buildReceipt(payment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.selections.Clear(ctx, buyerID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "checkout selection clear failed")
	}
	return receipt, nil
}

func (s *service) loadSelection(ctx context.Context, buyerID uuid.UUID) ([]uuid.UUID, error) {
	cartIDs, err := s.selections.Load(ctx, buyerID)
	if err != nil {
		if errors.Is(err, ErrNoSelection) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout selection is missing or expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load selection")
	}
	return cartIDs, nil
}

func buildReceipt(payment *models.Payment) *ConfirmationDTO {
	items := make([]ConfirmedItemDTO, 0, len(payment.Items))
	for _, item := range payment.Items {
		items = append(items, ConfirmedItemDTO{
			OrderItemID:    item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return &ConfirmationDTO{
		PaymentID:  payment.ID,
		Status:     enums.PaymentStatusPaid,
		TotalCents: payment.TotalCents,
		Total:      formatAmount(payment.TotalCents),
		Currency:   checkoutCurrency,
		Items:      items,
	}
}

func formatAmount(cents int) string {
	return decimal.NewFromInt(int64(cents)).
		DivRound(decimal.NewFromInt(100), 2).
		StringFixed(2)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}
