package carts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/internal/cart"
	"github.com/thriftline/thriftline-backend/internal/quantity"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/metrics"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
	"github.com/thriftline/thriftline-backend/pkg/outbox/payloads"
)

const (
	sweepBatchLimit = 200
	sweepJobName    = "cart_sweep"
)

type cartStore interface {
	ListOutOfSync(ctx context.Context, limit int) ([]cart.CartLine, error)
	UpdateQuantityTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, quantity int) error
	DeleteByIDsTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type orderCompleter interface {
	CompleteReceived(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles cart lines with live product state and completes
// received order items once their refund window passes.
type Service struct {
	logg             *logger.Logger
	db               txRunner
	carts            cartStore
	orders           orderCompleter
	events           eventEmitter
	jobMetrics       *metrics.JobMetrics
	interval         time.Duration
	maxBackoff       time.Duration
	refundWindowDays int
}

// ServiceParams groups dependencies for the cart sweeper.
type ServiceParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Carts            cartStore
	Orders           orderCompleter
	Events           eventEmitter
	Metrics          *metrics.JobMetrics
	Interval         time.Duration
	MaxBackoff       time.Duration
	RefundWindowDays int
}

// NewService builds the cart sweeper.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order completer required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if params.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive")
	}
	maxBackoff := params.MaxBackoff
	if maxBackoff < params.Interval {
		maxBackoff = params.Interval
	}
	if params.RefundWindowDays <= 0 {
		return nil, fmt.Errorf("refund window must be positive")
	}
	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		carts:            params.Carts,
		orders:           params.Orders,
		events:           params.Events,
		jobMetrics:       params.Metrics,
		interval:         params.Interval,
		maxBackoff:       maxBackoff,
		refundWindowDays: params.RefundWindowDays,
	}, nil
}

// Run executes the sweep loop until the context is canceled. Failed
// sweeps double the wait up to the max backoff; a clean sweep resets it.
func (s *Service) Run(ctx context.Context) error {
	wait := s.interval
	if err := s.sweep(ctx); err != nil {
		s.logg.Error(ctx, "cart sweep failed", err)
		wait = s.nextBackoff(wait)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cart sweeper context canceled")
			return ctx.Err()
		case <-timer.C:
			if err := s.sweep(ctx); err != nil {
				s.logg.Error(ctx, "cart sweep failed", err)
				wait = s.nextBackoff(wait)
			} else {
				wait = s.interval
			}
			timer.Reset(wait)
		}
	}
}

func (s *Service) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > s.maxBackoff {
		next = s.maxBackoff
	}
	return next
}

func (s *Service) sweep(ctx context.Context) error {
	start := time.Now()
	err := s.runSweep(ctx)
	if s.jobMetrics != nil {
		s.jobMetrics.ObserveDuration(sweepJobName, time.Since(start))
		if err != nil {
			s.jobMetrics.IncFailure(sweepJobName)
		} else {
			s.jobMetrics.IncSuccess(sweepJobName)
		}
	}
	return err
}

func (s *Service) runSweep(ctx context.Context) error {
	adjusted, err := s.reconcileCartLines(ctx)
	if err != nil {
		return fmt.Errorf("reconcile cart lines: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.refundWindowDays)
	completed, err := s.orders.CompleteReceived(ctx, cutoff, sweepBatchLimit)
	if err != nil {
		return fmt.Errorf("complete received items: %w", err)
	}

	if adjusted > 0 || completed > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"lines_adjusted":  adjusted,
			"items_completed": completed,
		}), "sweep finished")
	}
	return nil
}

// reconcileCartLines removes lines whose product is gone, inactive, or
// sold out and clamps lines above the remaining stock. Each adjustment
// commits with its cart.adjusted event.
func (s *Service) reconcileCartLines(ctx context.Context) (int, error) {
	lines, err := s.carts.ListOutOfSync(ctx, sweepBatchLimit)
	if err != nil {
		return 0, err
	}

	adjusted := 0
	var errs []error
	for _, line := range lines {
		if err := s.reconcileLine(ctx, line); err != nil {
			errs = append(errs, fmt.Errorf("cart item %s: %w", line.CartItemID, err))
			continue
		}
		adjusted++
	}
	return adjusted, multierr.Combine(errs...)
}

func (s *Service) reconcileLine(ctx context.Context, line cart.CartLine) error {
	remove := line.ProductStatus != enums.ProductStatusApproved || line.Available <= 0
	newQuantity := 0
	if !remove {
		newQuantity = quantity.Clamp(line.Quantity, line.Available)
		if newQuantity == line.Quantity {
			return nil
		}
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if remove {
			if err := s.carts.DeleteByIDsTx(ctx, tx, []uuid.UUID{line.CartItemID}); err != nil {
				return err
			}
		} else {
			if err := s.carts.UpdateQuantityTx(ctx, tx, line.CartItemID, newQuantity); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCartAdjusted,
			AggregateType: enums.AggregateCartItem,
			AggregateID:   line.CartItemID,
			Data: payloads.CartAdjustedEvent{
				CartItemID:  line.CartItemID,
				BuyerID:     line.BuyerID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				OldQuantity: line.Quantity,
				NewQuantity: newQuantity,
				Removed:     remove,
			},
		}
		return s.events.Emit(ctx, tx, event)
	})
}
