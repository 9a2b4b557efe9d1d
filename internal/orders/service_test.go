package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/outbox"
)

type stubOrdersRepo struct {
	payments       map[uuid.UUID]*models.Payment
	items          map[uuid.UUID]*models.OrderItem
	itemUpdates    map[uuid.UUID][]map[string]any
	paymentUpdates map[uuid.UUID][]map[string]any
	receivedBefore []models.OrderItem
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{
		payments:       make(map[uuid.UUID]*models.Payment),
		items:          make(map[uuid.UUID]*models.OrderItem),
		itemUpdates:    make(map[uuid.UUID][]map[string]any),
		paymentUpdates: make(map[uuid.UUID][]map[string]any),
	}
}

func (r *stubOrdersRepo) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (r *stubOrdersRepo) FindPaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	return r.FindPaymentByID(ctx, id)
}

func (r *stubOrdersRepo) UpdatePaymentTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	r.paymentUpdates[id] = append(r.paymentUpdates[id], updates)
	if status, ok := updates["status"].(enums.PaymentStatus); ok {
		r.payments[id].Status = status
	}
	return nil
}

func (r *stubOrdersRepo) ListPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) ([]models.Payment, string, error) {
	var payments []models.Payment
	for _, payment := range r.payments {
		if payment.BuyerID == buyerID {
			payments = append(payments, *payment)
		}
	}
	return payments, "", nil
}

func (r *stubOrdersRepo) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.OrderItem, string, error) {
	var items []models.OrderItem
	for _, item := range r.items {
		if item.SellerID == sellerID {
			items = append(items, *item)
		}
	}
	return items, "", nil
}

func (r *stubOrdersRepo) FindItemForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.OrderItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *stubOrdersRepo) FindItemsByIDsForUpdate(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (r *stubOrdersRepo) UpdateItemTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	r.itemUpdates[id] = append(r.itemUpdates[id], updates)
	item := r.items[id]
	if status, ok := updates["status"].(enums.OrderItemStatus); ok {
		item.Status = status
	}
	if refund, ok := updates["refund_status"].(enums.RefundStatus); ok {
		item.RefundStatus = refund
	}
	return nil
}

func (r *stubOrdersRepo) CountItemsNotRefunded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (int64, error) {
	var count int64
	for _, item := range r.items {
		if item.PaymentID == paymentID && item.RefundStatus != enums.RefundStatusApproved {
			count++
		}
	}
	return count, nil
}

func (r *stubOrdersRepo) ListReceivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderItem, error) {
	return r.receivedBefore, nil
}

func (r *stubOrdersRepo) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.UpdateItemTx(ctx, nil, id, updates)
}

type stubOrdersTx struct{}

func (stubOrdersTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOrdersEmitter struct {
	events []outbox.DomainEvent
}

func (e *stubOrdersEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	e.events = append(e.events, event)
	return nil
}

type ordersFixture struct {
	svc     Service
	repo    *stubOrdersRepo
	emitter *stubOrdersEmitter
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	repo := newStubOrdersRepo()
	emitter := &stubOrdersEmitter{}
	svc, err := NewService(ServiceParams{Repo: repo, Tx: stubOrdersTx{}, Events: emitter})
	require.NoError(t, err)
	return &ordersFixture{svc: svc, repo: repo, emitter: emitter}
}

func (f *ordersFixture) seedOrder(buyerID, sellerID uuid.UUID, status enums.OrderItemStatus) *models.OrderItem {
	payment := &models.Payment{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		SubtotalCents: 2000,
		TotalCents:    2000,
		Status:        enums.PaymentStatusPaid,
	}
	item := &models.OrderItem{
		ID:             uuid.New(),
		PaymentID:      payment.ID,
		ProductID:      uuid.New(),
		SellerID:       sellerID,
		ProductName:    "Wool Sweater",
		Quantity:       1,
		UnitPriceCents: 2000,
		TotalCents:     2000,
		Status:         status,
		RefundStatus:   enums.RefundStatusNone,
	}
	payment.Items = []models.OrderItem{*item}
	f.repo.payments[payment.ID] = payment
	f.repo.items[item.ID] = item
	return item
}

func TestMarkShipped(t *testing.T) {
	fixture := newOrdersFixture(t)
	sellerID := uuid.New()
	item := fixture.seedOrder(uuid.New(), sellerID, enums.OrderItemStatusProcessing)

	dto, err := fixture.svc.MarkShipped(context.Background(), sellerID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderItemStatusShipped, dto.Status)
	require.NotNil(t, dto.ShippedAt)

	require.Len(t, fixture.emitter.events, 1)
	assert.Equal(t, enums.EventOrderShipped, fixture.emitter.events[0].EventType)
}

func TestMarkShippedOnlyFromProcessing(t *testing.T) {
	fixture := newOrdersFixture(t)
	sellerID := uuid.New()

	for _, status := range []enums.OrderItemStatus{
		enums.OrderItemStatusShipped,
		enums.OrderItemStatusReceived,
		enums.OrderItemStatusCompleted,
	} {
		item := fixture.seedOrder(uuid.New(), sellerID, status)
		_, err := fixture.svc.MarkShipped(context.Background(), sellerID, item.ID)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "status %s", status)
		assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	}
}

func TestMarkShippedForbiddenForOtherSeller(t *testing.T) {
	fixture := newOrdersFixture(t)
	item := fixture.seedOrder(uuid.New(), uuid.New(), enums.OrderItemStatusProcessing)

	_, err := fixture.svc.MarkShipped(context.Background(), uuid.New(), item.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestConfirmReceived(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusShipped)

	dtos, err := fixture.svc.ConfirmReceived(context.Background(), buyerID, ConfirmReceivedInput{
		ItemIDs: []uuid.UUID{item.ID},
	})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, enums.OrderItemStatusReceived, dtos[0].Status)
	require.NotNil(t, dtos[0].ReceivedAt)

	require.Len(t, fixture.emitter.events, 1)
	assert.Equal(t, enums.EventOrderReceived, fixture.emitter.events[0].EventType)
}

func TestConfirmReceivedRejectsNonShipped(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	shipped := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusShipped)
	processing := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusProcessing)

	_, err := fixture.svc.ConfirmReceived(context.Background(), buyerID, ConfirmReceivedInput{
		ItemIDs: []uuid.UUID{shipped.ID, processing.ID},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestConfirmReceivedForeignOrder(t *testing.T) {
	fixture := newOrdersFixture(t)
	item := fixture.seedOrder(uuid.New(), uuid.New(), enums.OrderItemStatusShipped)

	_, err := fixture.svc.ConfirmReceived(context.Background(), uuid.New(), ConfirmReceivedInput{
		ItemIDs: []uuid.UUID{item.ID},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestRequestRefund(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusShipped)

	dto, err := fixture.svc.RequestRefund(context.Background(), buyerID, item.ID, RequestRefundInput{
		Reason: "arrived damaged",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRequested, dto.RefundStatus)

	require.Len(t, fixture.emitter.events, 1)
	assert.Equal(t, enums.EventRefundRequested, fixture.emitter.events[0].EventType)

	// A second request on the same item conflicts.
	_, err = fixture.svc.RequestRefund(context.Background(), buyerID, item.ID, RequestRefundInput{
		Reason: "still damaged",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRequestRefundRequiresReason(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusShipped)

	_, err := fixture.svc.RequestRefund(context.Background(), buyerID, item.ID, RequestRefundInput{Reason: "  "})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRequestRefundNotRefundableWhenCompleted(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusCompleted)

	_, err := fixture.svc.RequestRefund(context.Background(), buyerID, item.ID, RequestRefundInput{Reason: "late"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestDecideRefundApprovalSettlesPayment(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	adminID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusShipped)
	item.RefundStatus = enums.RefundStatusRequested

	dto, err := fixture.svc.DecideRefund(context.Background(), adminID, item.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusApproved, dto.RefundStatus)

	// The only item was refunded, so the payment flips to refunded.
	assert.Equal(t, enums.PaymentStatusRefunded, fixture.repo.payments[item.PaymentID].Status)

	require.Len(t, fixture.emitter.events, 1)
	assert.Equal(t, enums.EventRefundDecided, fixture.emitter.events[0].EventType)
}

func TestDecideRefundRejectionKeepsPayment(t *testing.T) {
	fixture := newOrdersFixture(t)
	item := fixture.seedOrder(uuid.New(), uuid.New(), enums.OrderItemStatusShipped)
	item.RefundStatus = enums.RefundStatusRequested

	dto, err := fixture.svc.DecideRefund(context.Background(), uuid.New(), item.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRejected, dto.RefundStatus)
	assert.Equal(t, enums.PaymentStatusPaid, fixture.repo.payments[item.PaymentID].Status)
}

func TestDecideRefundRequiresPendingRequest(t *testing.T) {
	fixture := newOrdersFixture(t)
	item := fixture.seedOrder(uuid.New(), uuid.New(), enums.OrderItemStatusShipped)

	_, err := fixture.svc.DecideRefund(context.Background(), uuid.New(), item.ID, true)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListBuyerOrdersDerivesViewFields(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	payment := &models.Payment{
		ID:         uuid.New(),
		BuyerID:    buyerID,
		TotalCents: 5000,
		Status:     enums.PaymentStatusPaid,
		Items: []models.OrderItem{
			{ID: uuid.New(), Status: enums.OrderItemStatusShipped},
			{ID: uuid.New(), Status: enums.OrderItemStatusProcessing},
		},
	}
	fixture.repo.payments[payment.ID] = payment

	page, err := fixture.svc.ListBuyerOrders(context.Background(), buyerID, "", 20)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, enums.OrderItemStatusShipped, page.Orders[0].DominantStatus)
	assert.True(t, page.Orders[0].CanConfirmReceipt)
}

func TestCompleteReceived(t *testing.T) {
	fixture := newOrdersFixture(t)
	buyerID := uuid.New()
	item := fixture.seedOrder(buyerID, uuid.New(), enums.OrderItemStatusReceived)
	fixture.repo.receivedBefore = []models.OrderItem{*item}

	completed, err := fixture.svc.CompleteReceived(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, enums.OrderItemStatusCompleted, fixture.repo.items[item.ID].Status)
}
