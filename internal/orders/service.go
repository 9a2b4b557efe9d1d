package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
	"github.com/thriftline/thriftline-backend/pkg/outbox/payloads"
)

// refundableStatuses are the item states a buyer may still open a refund from.
var refundableStatuses = map[enums.OrderItemStatus]bool{
	enums.OrderItemStatusPaid:       true,
	enums.OrderItemStatusProcessing: true,
	enums.OrderItemStatusShipped:    true,
	enums.OrderItemStatusReceived:   true,
}

// Service exposes order listing, fulfillment and refund operations.
type Service interface {
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (*BuyerOrdersPageDTO, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) (*SellerOrdersPageDTO, error)
	MarkShipped(ctx context.Context, sellerID, itemID uuid.UUID) (*OrderItemDTO, error)
	ConfirmReceived(ctx context.Context, buyerID uuid.UUID, input ConfirmReceivedInput) ([]OrderItemDTO, error)
	RequestRefund(ctx context.Context, buyerID, itemID uuid.UUID, input RequestRefundInput) (*OrderItemDTO, error)
	DecideRefund(ctx context.Context, adminID, itemID uuid.UUID, approve bool) (*OrderItemDTO, error)
	CompleteReceived(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type repository interface {
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error)
	UpdatePaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	ListPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) ([]models.Payment, string, error)
	ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.OrderItem, string, error)
	FindItemForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.OrderItem, error)
	FindItemsByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.OrderItem, error)
	UpdateItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error
	CountItemsNotRefunded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (int64, error)
	ListReceivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
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
	logg   *logger.Logger
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Repo   repository
	Tx     txRunner
	Events eventEmitter
	Logger *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	return &service{repo: params.Repo, tx: params.Tx, events: params.Events, logg: params.Logger}, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (*BuyerOrdersPageDTO, error) {
	payments, next, err := s.repo.ListPaymentsByBuyer(ctx, buyerID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	orders := make([]BuyerOrderDTO, 0, len(payments))
	for _, payment := range payments {
		orders = append(orders, paymentToDTO(payment))
	}
	return &BuyerOrdersPageDTO{Orders: orders, NextCursor: next}, nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) (*SellerOrdersPageDTO, error) {
	items, next, err := s.repo.ListItemsBySeller(ctx, sellerID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list sold items")
	}
	return &SellerOrdersPageDTO{Items: itemsToDTOs(items), NextCursor: next}, nil
}

func (s *service) MarkShipped(ctx context.Context, sellerID, itemID uuid.UUID) (*OrderItemDTO, error) {
	var dto *OrderItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item belongs to another seller")
		}
		if item.Status != enums.OrderItemStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only processing items can be shipped")
		}

		payment, err := s.repo.FindPaymentTx(ctx, tx, item.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}

		now := time.Now()
		updates := map[string]any{
			"status":     enums.OrderItemStatusShipped,
			"shipped_at": now,
		}
		if err := s.repo.UpdateItemTx(ctx, tx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark shipped")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: enums.UserRoleSeller.String()},
			Data: payloads.OrderShippedEvent{
				OrderItemID: item.ID,
				PaymentID:   item.PaymentID,
				BuyerID:     payment.BuyerID,
				SellerID:    item.SellerID,
				ProductName: item.ProductName,
				ShippedAt:   now,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit shipped event")
		}

		item.Status = enums.OrderItemStatusShipped
		item.ShippedAt = &now
		result := itemToDTO(*item)
		dto = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) ConfirmReceived(ctx context.Context, buyerID uuid.UUID, input ConfirmReceivedInput) ([]OrderItemDTO, error) {
	if len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one item to confirm")
	}

	var dtos []OrderItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items, err := s.repo.FindItemsByIDsForUpdate(ctx, tx, input.ItemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order items")
		}
		if len(items) != len(input.ItemIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more order items were not found")
		}

		now := time.Now()
		payments := make(map[uuid.UUID]*models.Payment)
		dtos = make([]OrderItemDTO, 0, len(items))
		for i := range items {
			item := &items[i]
			payment, ok := payments[item.PaymentID]
			if !ok {
				payment, err = s.repo.FindPaymentTx(ctx, tx, item.PaymentID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
				}
				payments[item.PaymentID] = payment
			}
			if payment.BuyerID != buyerID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
			}
			if item.Status != enums.OrderItemStatusShipped {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only shipped items can be confirmed as received")
			}

			updates := map[string]any{
				"status":      enums.OrderItemStatusReceived,
				"received_at": now,
			}
			if err := s.repo.UpdateItemTx(ctx, tx, item.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm received")
			}

			event := outbox.DomainEvent{
				EventType:     enums.EventOrderReceived,
				AggregateType: enums.AggregateOrderItem,
				AggregateID:   item.ID,
				Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
				Data: payloads.OrderReceivedEvent{
					OrderItemID: item.ID,
					PaymentID:   item.PaymentID,
					BuyerID:     buyerID,
					SellerID:    item.SellerID,
					ProductName: item.ProductName,
					ReceivedAt:  now,
				},
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit received event")
			}

			item.Status = enums.OrderItemStatusReceived
			item.ReceivedAt = &now
			dtos = append(dtos, itemToDTO(*item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

func (s *service) RequestRefund(ctx context.Context, buyerID, itemID uuid.UUID, input RequestRefundInput) (*OrderItemDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	var dto *OrderItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		payment, err := s.repo.FindPaymentTx(ctx, tx, item.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		if payment.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if !refundableStatuses[item.Status] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is no longer refundable")
		}
		if item.RefundStatus != enums.RefundStatusNone {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a refund was already requested for this item")
		}

		updates := map[string]any{
			"refund_status": enums.RefundStatusRequested,
			"refund_reason": reason,
		}
		if err := s.repo.UpdateItemTx(ctx, tx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "request refund")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
			Data: payloads.RefundRequestedEvent{
				OrderItemID: item.ID,
				PaymentID:   item.PaymentID,
				BuyerID:     buyerID,
				SellerID:    item.SellerID,
				ProductName: item.ProductName,
				Reason:      reason,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit refund event")
		}

		item.RefundStatus = enums.RefundStatusRequested
		item.RefundReason = &reason
		result := itemToDTO(*item)
		dto = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *service) DecideRefund(ctx context.Context, adminID, itemID uuid.UUID, approve bool) (*OrderItemDTO, error) {
	var dto *OrderItemDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		item, err := s.lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.RefundStatus != enums.RefundStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no pending refund request for this item")
		}
		payment, err := s.repo.FindPaymentTx(ctx, tx, item.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}

		decision := enums.RefundStatusRejected
		if approve {
			decision = enums.RefundStatusApproved
		}
		if err := s.repo.UpdateItemTx(ctx, tx, item.ID, map[string]any{"refund_status": decision}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decide refund")
		}

		if approve {
			remaining, err := s.repo.CountItemsNotRefunded(ctx, tx, item.PaymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count refunded items")
			}
			if remaining == 0 {
				updates := map[string]any{"status": enums.PaymentStatusRefunded}
				if err := s.repo.UpdatePaymentTx(ctx, tx, item.PaymentID, updates); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark payment refunded")
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRefundDecided,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: enums.UserRoleAdmin.String()},
			Data: payloads.RefundDecidedEvent{
				OrderItemID: item.ID,
				PaymentID:   item.PaymentID,
				BuyerID:     payment.BuyerID,
				SellerID:    item.SellerID,
				ProductName: item.ProductName,
				Decision:    decision,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit refund decision event")
		}

		item.RefundStatus = decision
		result := itemToDTO(*item)
		dto = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// CompleteReceived advances received items past the refund window to
// completed. Called by the cron worker.
func (s *service) CompleteReceived(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	items, err := s.repo.ListReceivedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list receivable items")
	}
	completed := 0
	for _, item := range items {
		updates := map[string]any{"status": enums.OrderItemStatusCompleted}
		if err := s.repo.UpdateItem(ctx, item.ID, updates); err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "order item completion failed", err)
			}
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *service) lockItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) (*models.OrderItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id is required")
	}
	item, err := s.repo.FindItemForUpdate(ctx, tx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
	}
	return item, nil
}
