package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mruizcampos/unimarket-backend/api/controllers"
	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/internal/auctions"
	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/internal/handoff"
	"github.com/mruizcampos/unimarket-backend/internal/notifications"
	"github.com/mruizcampos/unimarket-backend/internal/orders"
	"github.com/mruizcampos/unimarket-backend/internal/stats"
	"github.com/mruizcampos/unimarket-backend/internal/wallet"
	"github.com/mruizcampos/unimarket-backend/pkg/config"
	"github.com/mruizcampos/unimarket-backend/pkg/db"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Wallet        wallet.Service
	Catalog       catalog.Service
	Auctions      auctions.Service
	Orders        orders.Service
	Handoff       handoff.Service
	Stats         stats.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	writePolicy := middleware.NewRateLimitPolicy(
		"write",
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.IPLimit,
		cfg.AuthRateLimit.KeyLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(writePolicy, redisClient, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(svcs.Wallet, logg))
			r.Post("/recharge", controllers.WalletRecharge(svcs.Wallet, logg))
			r.Get("/movements", controllers.WalletMovements(svcs.Wallet, logg))
			r.Get("/stats", controllers.WalletStats(svcs.Stats, logg))
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.ListingList(svcs.Catalog, logg))
			r.Post("/", controllers.ListingCreate(svcs.Catalog, logg))
			r.Get("/{listingId}", controllers.ListingDetail(svcs.Catalog, logg))
			r.Post("/{listingId}/status", controllers.ListingSetStatus(svcs.Catalog, logg))

			r.Route("/{listingId}/bids", func(r chi.Router) {
				r.Get("/", controllers.BidList(svcs.Auctions, logg))
				r.Post("/", controllers.BidPlace(svcs.Auctions, logg))
				r.Get("/highest", controllers.BidHighest(svcs.Auctions, logg))
			})
			r.Post("/{listingId}/accept", controllers.BidAccept(svcs.Auctions, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Post("/{orderId}/pay", controllers.OrderPay(svcs.Orders, logg))
			r.Post("/{orderId}/prepare", controllers.OrderStartPreparing(svcs.Orders, logg))
			r.Post("/{orderId}/tracking", controllers.OrderSetTracking(svcs.Orders, logg))
			r.Post("/{orderId}/in-transit", controllers.OrderMarkInTransit(svcs.Orders, logg))
			r.Post("/{orderId}/delivered", controllers.OrderMarkDelivered(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
			r.Post("/{orderId}/refund", controllers.OrderRefund(svcs.Orders, logg))

			r.Post("/{orderId}/handoff-code", controllers.HandoffGenerate(svcs.Handoff, logg))
			r.Post("/{orderId}/handoff-verify", controllers.HandoffVerify(svcs.Handoff, logg))
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/sales-by-category", controllers.SalesByCategory(svcs.Stats, logg))
			r.Get("/sales-by-seller", controllers.SalesBySeller(svcs.Stats, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(svcs.Notifications, logg))
		})
	})

	return r
}
