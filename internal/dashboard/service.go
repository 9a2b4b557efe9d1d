package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thriftline/thriftline-backend/pkg/db/models"
	"github.com/thriftline/thriftline-backend/pkg/enums"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
)

const recentPanelLimit = 5

// Service assembles the buyer and seller overview pages.
type Service interface {
	BuyerOverview(ctx context.Context, buyerID uuid.UUID) (*BuyerOverviewDTO, error)
	SellerOverview(ctx context.Context, sellerID uuid.UUID, term string) (*SellerOverviewDTO, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type orderStats interface {
	CountPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID) (int64, error)
	ListPaymentsByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) ([]models.Payment, string, error)
	CountItemsBySeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
	ListItemsBySeller(ctx context.Context, sellerID uuid.UUID, cursor string, limit int) ([]models.OrderItem, string, error)
	SellerRevenueCents(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

type listingStats interface {
	SearchBySeller(ctx context.Context, sellerID uuid.UUID, term, cursor string, limit int) ([]models.Product, string, error)
	CountBySellerAndStatus(ctx context.Context, sellerID uuid.UUID, status enums.ProductStatus) (int64, error)
}

type wishlistCounter interface {
	Count(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type donationCounter interface {
	CountByDonor(ctx context.Context, donorID uuid.UUID) (int64, error)
}

type cartCounter interface {
	Count(ctx context.Context, buyerID uuid.UUID) (int, error)
}

type service struct {
	users     userFinder
	orders    orderStats
	listings  listingStats
	wishlist  wishlistCounter
	donations donationCounter
	cart      cartCounter
	logg      *logger.Logger
}

// ServiceParams groups dependencies for the dashboard service.
type ServiceParams struct {
	Users     userFinder
	Orders    orderStats
	Listings  listingStats
	Wishlist  wishlistCounter
	Donations donationCounter
	Cart      cartCounter
	Logger    *logger.Logger
}

// NewService builds a dashboard service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user finder is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order stats are required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing stats are required")
	}
	if params.Wishlist == nil {
		return nil, fmt.Errorf("wishlist counter is required")
	}
	if params.Donations == nil {
		return nil, fmt.Errorf("donation counter is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart counter is required")
	}
	return &service{
		users:     params.Users,
		orders:    params.Orders,
		listings:  params.Listings,
		wishlist:  params.Wishlist,
		donations: params.Donations,
		cart:      params.Cart,
		logg:      params.Logger,
	}, nil
}

// BuyerOverview fires the buyer panels concurrently. A failed panel is
// returned with its error marker set; the others are unaffected.
func (s *service) BuyerOverview(ctx context.Context, buyerID uuid.UUID) (*BuyerOverviewDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	overview := &BuyerOverviewDTO{}
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		overview.Profile = s.profilePanel(ctx, buyerID)
	}()
	go func() {
		defer wg.Done()
		overview.Counts = s.buyerCountsPanel(ctx, buyerID)
	}()
	go func() {
		defer wg.Done()
		overview.RecentOrders = s.recentOrdersPanel(ctx, buyerID)
	}()
	go func() {
		defer wg.Done()
		overview.Cart = s.cartBadgePanel(ctx, buyerID)
	}()

	wg.Wait()
	return overview, nil
}

// SellerOverview fires the seller panels concurrently. The term narrows
// the recent-listings panel only.
func (s *service) SellerOverview(ctx context.Context, sellerID uuid.UUID, term string) (*SellerOverviewDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}

	overview := &SellerOverviewDTO{}
	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		overview.Profile = s.profilePanel(ctx, sellerID)
	}()
	go func() {
		defer wg.Done()
		overview.Counts = s.sellerCountsPanel(ctx, sellerID)
	}()
	go func() {
		defer wg.Done()
		overview.RecentListings = s.recentListingsPanel(ctx, sellerID, term)
	}()
	go func() {
		defer wg.Done()
		overview.RecentSales = s.recentSalesPanel(ctx, sellerID)
	}()
	go func() {
		defer wg.Done()
		overview.Revenue = s.revenuePanel(ctx, sellerID)
	}()

	wg.Wait()
	return overview, nil
}

func (s *service) profilePanel(ctx context.Context, userID uuid.UUID) ProfilePanel {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ProfilePanel{Error: s.panelError(ctx, "profile", err)}
	}
	return ProfilePanel{
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role.String(),
		JoinedAt: user.CreatedAt,
	}
}

func (s *service) buyerCountsPanel(ctx context.Context, buyerID uuid.UUID) BuyerCountsPanel {
	panel := BuyerCountsPanel{}

	orders, err := s.orders.CountPaymentsByBuyer(ctx, buyerID)
	if err != nil {
		return BuyerCountsPanel{Error: s.panelError(ctx, "buyer counts", err)}
	}
	wishlist, err := s.wishlist.Count(ctx, buyerID)
	if err != nil {
		return BuyerCountsPanel{Error: s.panelError(ctx, "buyer counts", err)}
	}
	donations, err := s.donations.CountByDonor(ctx, buyerID)
	if err != nil {
		return BuyerCountsPanel{Error: s.panelError(ctx, "buyer counts", err)}
	}

	panel.Orders = orders
	panel.Wishlist = wishlist
	panel.Donations = donations
	return panel
}

func (s *service) recentOrdersPanel(ctx context.Context, buyerID uuid.UUID) RecentOrdersPanel {
	payments, _, err := s.orders.ListPaymentsByBuyer(ctx, buyerID, "", recentPanelLimit)
	if err != nil {
		return RecentOrdersPanel{Error: s.panelError(ctx, "recent orders", err)}
	}
	orders := make([]OrderSummary, 0, len(payments))
	for _, payment := range payments {
		orders = append(orders, OrderSummary{
			PaymentID:  payment.ID,
			TotalCents: payment.TotalCents,
			Status:     payment.Status,
			CreatedAt:  payment.CreatedAt,
		})
	}
	return RecentOrdersPanel{Orders: orders}
}

func (s *service) cartBadgePanel(ctx context.Context, buyerID uuid.UUID) CartBadgePanel {
	count, err := s.cart.Count(ctx, buyerID)
	if err != nil {
		return CartBadgePanel{Error: s.panelError(ctx, "cart badge", err)}
	}
	return CartBadgePanel{Count: count}
}

func (s *service) sellerCountsPanel(ctx context.Context, sellerID uuid.UUID) SellerCountsPanel {
	panel := SellerCountsPanel{}

	approved, err := s.listings.CountBySellerAndStatus(ctx, sellerID, enums.ProductStatusApproved)
	if err != nil {
		return SellerCountsPanel{Error: s.panelError(ctx, "seller counts", err)}
	}
	pending, err := s.listings.CountBySellerAndStatus(ctx, sellerID, enums.ProductStatusPending)
	if err != nil {
		return SellerCountsPanel{Error: s.panelError(ctx, "seller counts", err)}
	}
	sold, err := s.listings.CountBySellerAndStatus(ctx, sellerID, enums.ProductStatusSold)
	if err != nil {
		return SellerCountsPanel{Error: s.panelError(ctx, "seller counts", err)}
	}
	items, err := s.orders.CountItemsBySeller(ctx, sellerID)
	if err != nil {
		return SellerCountsPanel{Error: s.panelError(ctx, "seller counts", err)}
	}

	panel.ApprovedListings = approved
	panel.PendingListings = pending
	panel.SoldListings = sold
	panel.ItemsSold = items
	return panel
}

func (s *service) recentListingsPanel(ctx context.Context, sellerID uuid.UUID, term string) RecentListingsPanel {
	products, _, err := s.listings.SearchBySeller(ctx, sellerID, term, "", recentPanelLimit)
	if err != nil {
		return RecentListingsPanel{Error: s.panelError(ctx, "recent listings", err)}
	}
	listings := make([]ListingSummary, 0, len(products))
	for _, product := range products {
		listings = append(listings, ListingSummary{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   product.Quantity,
			Status:     product.Status,
			CreatedAt:  product.CreatedAt,
		})
	}
	return RecentListingsPanel{Listings: listings}
}

func (s *service) recentSalesPanel(ctx context.Context, sellerID uuid.UUID) RecentSalesPanel {
	items, _, err := s.orders.ListItemsBySeller(ctx, sellerID, "", recentPanelLimit)
	if err != nil {
		return RecentSalesPanel{Error: s.panelError(ctx, "recent sales", err)}
	}
	sales := make([]SaleSummary, 0, len(items))
	for _, item := range items {
		sales = append(sales, SaleSummary{
			OrderItemID: item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			TotalCents:  item.TotalCents,
			Status:      item.Status,
			CreatedAt:   item.CreatedAt,
		})
	}
	return RecentSalesPanel{Sales: sales}
}

func (s *service) revenuePanel(ctx context.Context, sellerID uuid.UUID) RevenuePanel {
	cents, err := s.orders.SellerRevenueCents(ctx, sellerID)
	if err != nil {
		return RevenuePanel{Error: s.panelError(ctx, "revenue", err)}
	}
	total := decimal.NewFromInt(cents).DivRound(decimal.NewFromInt(100), 2)
	return RevenuePanel{TotalCents: cents, Total: total.StringFixed(2)}
}

func (s *service) panelError(ctx context.Context, panel string, err error) string {
	if s.logg != nil {
		s.logg.Error(ctx, fmt.Sprintf("dashboard %s panel failed", panel), err)
	}
	return fmt.Sprintf("failed to load %s", panel)
}
