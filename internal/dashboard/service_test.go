package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
)

type stubUsers struct {
	user *models.User
	fail error
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.user, nil
}

type stubOrderStats struct {
	payments     []models.Payment
	items        []models.OrderItem
	buyerCount   int64
	sellerCount  int64
	revenueCents int64
	failRevenue  error
	failPayments error
}

func (s *stubOrderStats) CountPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	return s.buyerCount, nil
}

func (s *stubOrderStats) ListPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) ([]models.Payment, string, error) {
	if s.failPayments != nil {
		return nil, "", s.failPayments
	}
	return s.payments, "", nil
}

func (s *stubOrderStats) CountItemsBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	return s.sellerCount, nil
}

func (s *stubOrderStats) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.OrderItem, string, error) {
	return s.items, "", nil
}

func (s *stubOrderStats) SellerRevenueCents(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if s.failRevenue != nil {
		return 0, s.failRevenue
	}
	return s.revenueCents, nil
}

type stubListingStats struct {
	products []models.Product
	counts   map[enums.ProductStatus]int64
	lastTerm string
}

func (s *stubListingStats) SearchBySeller(ctx context.Context, sellerID uuid.UUID, term, cursor string, limit int) ([]models.Product, string, error) {
	s.lastTerm = term
	return s.products, "", nil
}

func (s *stubListingStats) CountBySellerAndStatus(ctx context.Context, sellerID uuid.UUID, status enums.ProductStatus) (int64, error) {
	return s.counts[status], nil
}

type stubWishlistCounter struct{ count int64 }

func (s *stubWishlistCounter) Count(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	return s.count, nil
}

type stubDonationCounter struct{ count int64 }

func (s *stubDonationCounter) CountByDonor(ctx context.Context, donorID uuid.UUID) (int64, error) {
	return s.count, nil
}

type stubCartCounter struct {
	count int
	fail  error
}

func (s *stubCartCounter) Count(ctx context.Context, buyerID uuid.UUID) (int, error) {
	if s.fail != nil {
		return 0, s.fail
	}
	return s.count, nil
}

type dashboardFixture struct {
	users     *stubUsers
	orders    *stubOrderStats
	listings  *stubListingStats
	wishlist  *stubWishlistCounter
	donations *stubDonationCounter
	cart      *stubCartCounter
}

func newDashboardFixture() *dashboardFixture {
	return &dashboardFixture{
		users:     &stubUsers{user: &models.User{Name: "Dana", Email: "dana@example.com", Role: enums.UserRoleBuyer, CreatedAt: time.Now().UTC()}},
		orders:    &stubOrderStats{},
		listings:  &stubListingStats{counts: map[enums.ProductStatus]int64{}},
		wishlist:  &stubWishlistCounter{},
		donations: &stubDonationCounter{},
		cart:      &stubCartCounter{},
	}
}

func (f *dashboardFixture) build(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Users:     f.users,
		Orders:    f.orders,
		Listings:  f.listings,
		Wishlist:  f.wishlist,
		Donations: f.donations,
		Cart:      f.cart,
	})
	require.NoError(t, err)
	return svc
}

func TestBuyerOverviewAssemblesPanels(t *testing.T) {
	fixture := newDashboardFixture()
	fixture.orders.buyerCount = 3
	fixture.orders.payments = []models.Payment{
		{ID: uuid.New(), TotalCents: 2500, Status: enums.PaymentStatusPaid, CreatedAt: time.Now().UTC()},
	}
	fixture.wishlist.count = 7
	fixture.donations.count = 2
	fixture.cart.count = 4
	svc := fixture.build(t)

	overview, err := svc.BuyerOverview(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "Dana", overview.Profile.Name)
	assert.Equal(t, "buyer", overview.Profile.Role)
	assert.EqualValues(t, 3, overview.Counts.Orders)
	assert.EqualValues(t, 7, overview.Counts.Wishlist)
	assert.EqualValues(t, 2, overview.Counts.Donations)
	require.Len(t, overview.RecentOrders.Orders, 1)
	assert.Equal(t, 2500, overview.RecentOrders.Orders[0].TotalCents)
	assert.Equal(t, 4, overview.Cart.Count)
	assert.Empty(t, overview.Profile.Error)
}

func TestBuyerOverviewDegradesFailedPanelsOnly(t *testing.T) {
	fixture := newDashboardFixture()
	fixture.orders.failPayments = errors.New("orders db down")
	fixture.cart.fail = errors.New("redis down")
	fixture.wishlist.count = 5
	svc := fixture.build(t)

	overview, err := svc.BuyerOverview(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.NotEmpty(t, overview.RecentOrders.Error)
	assert.Empty(t, overview.RecentOrders.Orders)
	assert.NotEmpty(t, overview.Cart.Error)

	// Healthy panels are untouched by the failures.
	assert.Equal(t, "Dana", overview.Profile.Name)
	assert.EqualValues(t, 5, overview.Counts.Wishlist)
	assert.Empty(t, overview.Counts.Error)
}

func TestSellerOverviewAssemblesPanels(t *testing.T) {
	fixture := newDashboardFixture()
	fixture.users.user.Role = enums.UserRoleSeller
	fixture.listings.counts = map[enums.ProductStatus]int64{
		enums.ProductStatusApproved: 6,
		enums.ProductStatusPending:  1,
		enums.ProductStatusSold:     3,
	}
	fixture.listings.products = []models.Product{
		{ID: uuid.New(), Name: "Corduroy Jacket", PriceCents: 5200, Quantity: 1, Status: enums.ProductStatusApproved},
	}
	fixture.orders.sellerCount = 9
	fixture.orders.items = []models.OrderItem{
		{ID: uuid.New(), ProductName: "Corduroy Jacket", Quantity: 1, TotalCents: 5200, Status: enums.OrderItemStatusShipped},
	}
	fixture.orders.revenueCents = 123450
	svc := fixture.build(t)

	overview, err := svc.SellerOverview(context.Background(), uuid.New(), "jacket")
	require.NoError(t, err)

	assert.EqualValues(t, 6, overview.Counts.ApprovedListings)
	assert.EqualValues(t, 1, overview.Counts.PendingListings)
	assert.EqualValues(t, 3, overview.Counts.SoldListings)
	assert.EqualValues(t, 9, overview.Counts.ItemsSold)
	require.Len(t, overview.RecentListings.Listings, 1)
	require.Len(t, overview.RecentSales.Sales, 1)
	assert.Equal(t, "jacket", fixture.listings.lastTerm)
	assert.EqualValues(t, 123450, overview.Revenue.TotalCents)
	assert.Equal(t, "1234.50", overview.Revenue.Total)
}

func TestSellerOverviewRevenueFailureDegrades(t *testing.T) {
	fixture := newDashboardFixture()
	fixture.orders.failRevenue = errors.New("sum failed")
	svc := fixture.build(t)

	overview, err := svc.SellerOverview(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, overview.Revenue.Error)
	assert.Empty(t, overview.Counts.Error)
}

func TestOverviewRequiresUserID(t *testing.T) {
	svc := newDashboardFixture().build(t)

	_, err := svc.BuyerOverview(context.Background(), uuid.Nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.SellerOverview(context.Background(), uuid.Nil, "")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
