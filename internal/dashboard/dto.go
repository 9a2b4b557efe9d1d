package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/thriftline-backend/pkg/enums"
)

// Each panel carries its own error marker so one failed fetch degrades
// that panel only and never blocks the rest of the overview.

// ProfilePanel shows the signed-in user's account summary.
type ProfilePanel struct {
	Name     string    `json:"name,omitempty"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// BuyerCountsPanel aggregates the buyer's activity counters.
type BuyerCountsPanel struct {
	Orders    int64  `json:"orders"`
	Wishlist  int64  `json:"wishlist"`
	Donations int64  `json:"donations"`
	Error     string `json:"error,omitempty"`
}

// CartBadgePanel carries the buyer's cart badge count.
type CartBadgePanel struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// OrderSummary is one row of a recent-orders panel.
type OrderSummary struct {
	PaymentID  uuid.UUID           `json:"payment_id"`
	TotalCents int                 `json:"total_cents"`
	Status     enums.PaymentStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// RecentOrdersPanel lists the buyer's latest orders.
type RecentOrdersPanel struct {
	Orders []OrderSummary `json:"orders"`
	Error  string         `json:"error,omitempty"`
}

// BuyerOverviewDTO is the composite buyer dashboard response.
type BuyerOverviewDTO struct {
	Profile      ProfilePanel      `json:"profile"`
	Counts       BuyerCountsPanel  `json:"counts"`
	RecentOrders RecentOrdersPanel `json:"recent_orders"`
	Cart         CartBadgePanel    `json:"cart"`
}

// SellerCountsPanel aggregates the seller's listing and sales counters.
type SellerCountsPanel struct {
	ApprovedListings int64  `json:"approved_listings"`
	PendingListings  int64  `json:"pending_listings"`
	SoldListings     int64  `json:"sold_listings"`
	ItemsSold        int64  `json:"items_sold"`
	Error            string `json:"error,omitempty"`
}

// ListingSummary is one row of the seller's recent-listings panel.
type ListingSummary struct {
	ProductID  uuid.UUID           `json:"product_id"`
	Name       string              `json:"name"`
	PriceCents int                 `json:"price_cents"`
	Quantity   int                 `json:"quantity"`
	Status     enums.ProductStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// RecentListingsPanel lists the seller's latest listings, optionally
// narrowed by a search term.
type RecentListingsPanel struct {
	Listings []ListingSummary `json:"listings"`
	Error    string           `json:"error,omitempty"`
}

// SaleSummary is one row of the seller's recent-sales panel.
type SaleSummary struct {
	OrderItemID uuid.UUID             `json:"order_item_id"`
	ProductName string                `json:"product_name"`
	Quantity    int                   `json:"quantity"`
	TotalCents  int                   `json:"total_cents"`
	Status      enums.OrderItemStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
}

// RecentSalesPanel lists the seller's latest sold items.
type RecentSalesPanel struct {
	Sales []SaleSummary `json:"sales"`
	Error string        `json:"error,omitempty"`
}

// RevenuePanel carries the seller's lifetime revenue, refunds excluded.
type RevenuePanel struct {
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
	Error      string `json:"error,omitempty"`
}

// SellerOverviewDTO is the composite seller dashboard response.
type SellerOverviewDTO struct {
	Profile        ProfilePanel        `json:"profile"`
	Counts         SellerCountsPanel   `json:"counts"`
	RecentListings RecentListingsPanel `json:"recent_listings"`
	RecentSales    RecentSalesPanel    `json:"recent_sales"`
	Revenue        RevenuePanel        `json:"revenue"`
}
