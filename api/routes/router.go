package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thriftline/thriftline-backend/api/controllers"
	"github.com/thriftline/thriftline-backend/api/middleware"
	authsvc "github.com/thriftline/thriftline-backend/internal/auth"
	cartsvc "github.com/thriftline/thriftline-backend/internal/cart"
	checkoutsvc "github.com/thriftline/thriftline-backend/internal/checkout"
	dashboardsvc "github.com/thriftline/thriftline-backend/internal/dashboard"
	donationsvc "github.com/thriftline/thriftline-backend/internal/donations"
	notificationsvc "github.com/thriftline/thriftline-backend/internal/notifications"
	ordersvc "github.com/thriftline/thriftline-backend/internal/orders"
	productsvc "github.com/thriftline/thriftline-backend/internal/products"
	wishlistsvc "github.com/thriftline/thriftline-backend/internal/wishlist"
	"github.com/thriftline/thriftline-backend/pkg/auth/session"
	"github.com/thriftline/thriftline-backend/pkg/config"
	"github.com/thriftline/thriftline-backend/pkg/db"
	"github.com/thriftline/thriftline-backend/pkg/logger"
	"github.com/thriftline/thriftline-backend/pkg/metrics"
	pkgredis "github.com/thriftline/thriftline-backend/pkg/redis"
)

// Deps gathers everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *pkgredis.Client
	Sessions      session.AccessSessionChecker
	HTTPMetrics   *metrics.HTTPMetrics
	Registry      *prometheus.Registry
	Auth          authsvc.Service
	Products      productsvc.Service
	Cart          cartsvc.Service
	Checkout      checkoutsvc.Service
	Orders        ordersvc.Service
	Donations     donationsvc.Service
	Wishlist      wishlistsvc.Service
	Notifications notificationsvc.Service
	Dashboard     dashboardsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// assign through locals so a nil *Client never becomes a non-nil interface
	var idemStore pkgredis.IdempotencyStore
	var limiter middleware.RateLimiterStore
	if deps.Redis != nil {
		idemStore = deps.Redis
		limiter = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.RateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		// public surface
		r.Group(func(r chi.Router) {
			r.With(
				middleware.AuthRateLimit(limiter, registerPolicy, logg),
				middleware.Idempotency(idemStore, logg),
			).Post("/auth/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(limiter, loginPolicy, logg)).Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/auth/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))

			r.Get("/products/approved", controllers.ProductsList(deps.Products, logg))
			r.Get("/products/search", controllers.ProductsSearch(deps.Products, logg))
			r.Get("/products/filters", controllers.ProductsFilters(deps.Products, logg))
			r.Get("/products/{productId}", controllers.ProductsDetail(deps.Products, logg))
		})

		// authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(idemStore, logg))
			r.Use(middleware.RateLimit(limiter, cfg.RateLimit, logg))

			r.Get("/auth/me", controllers.AuthMe(deps.Auth, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Post("/add", controllers.CartAdd(deps.Cart, logg))
				r.Get("/", controllers.CartList(deps.Cart, logg))
				r.Get("/count", controllers.CartCount(deps.Cart, logg))
				r.Put("/update/{cartId}", controllers.CartUpdateQuantity(deps.Cart, logg))
				r.Delete("/{cartId}", controllers.CartRemove(deps.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Put("/selection", controllers.CheckoutSaveSelection(deps.Checkout, logg))
				r.Get("/summary", controllers.CheckoutSummary(deps.Checkout, logg))
				r.Post("/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.BuyerOrdersList(deps.Orders, logg))
				r.Post("/confirm-received", controllers.OrdersConfirmReceived(deps.Orders, logg))
				r.Post("/refund-request", controllers.OrdersRequestRefund(deps.Orders, logg))
			})

			r.Route("/donations", func(r chi.Router) {
				r.Post("/", controllers.DonationCreate(deps.Donations, logg))
				r.Get("/", controllers.DonationsListMine(deps.Donations, logg))
				r.Put("/{donationId}", controllers.DonationUpdate(deps.Donations, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Post("/", controllers.WishlistAdd(deps.Wishlist, logg))
				r.Get("/", controllers.WishlistList(deps.Wishlist, logg))
				r.Delete("/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.NotificationsList(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.NotificationMarkRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.NotificationsMarkAllRead(deps.Notifications, logg))
			})

			r.Get("/dashboard/buyer", controllers.DashboardBuyer(deps.Dashboard, logg))
			r.With(middleware.RequireRole("seller", logg)).Get("/dashboard/seller", controllers.DashboardSeller(deps.Dashboard, logg))

			r.Route("/seller", func(r chi.Router) {
				r.Use(middleware.RequireRole("seller", logg))
				r.Post("/products", controllers.SellerProductCreate(deps.Products, logg))
				r.Get("/products", controllers.SellerProductsList(deps.Products, logg))
				r.Put("/products/{productId}", controllers.SellerProductUpdate(deps.Products, logg))
				r.Delete("/products/{productId}", controllers.SellerProductDelete(deps.Products, logg))
				r.Get("/orders", controllers.SellerOrdersList(deps.Orders, logg))
				r.Post("/orders/{itemId}/ship", controllers.SellerOrderShip(deps.Orders, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Get("/products/pending", controllers.AdminPendingProducts(deps.Products, logg))
				r.Post("/products/{productId}/decision", controllers.AdminProductDecision(deps.Products, logg))
				r.Get("/donations", controllers.AdminDonationsList(deps.Donations, logg))
				r.Post("/donations/{donationId}/decision", controllers.AdminDonationDecision(deps.Donations, logg))
				r.Post("/donations/{donationId}/collect", controllers.AdminDonationCollect(deps.Donations, logg))
				r.Post("/refunds/{itemId}/decision", controllers.AdminRefundDecision(deps.Orders, logg))
			})
		})
	})

	return r
}
