package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/controllers"
	"github.com/agoralabs/bazaar-backend/api/middleware"
	"github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/internal/offers"
	"github.com/agoralabs/bazaar-backend/internal/promotions"
	"github.com/agoralabs/bazaar-backend/internal/purchases"
	"github.com/agoralabs/bazaar-backend/internal/reviews"
	"github.com/agoralabs/bazaar-backend/internal/trust"
	"github.com/agoralabs/bazaar-backend/pkg/config"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Evidence   evidence.Service
	Listings   listings.Service
	Offers     offers.Service
	Purchases  purchases.Service
	Reviews    reviews.Service
	Trust      trust.Service
	Promotions promotions.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/listings", func(r chi.Router) {
			r.Post("/", controllers.CreateListing(svcs.Listings, logg))
			r.Get("/{listingId}", controllers.GetListing(svcs.Listings, logg))
			r.Patch("/{listingId}/price", controllers.UpdateListingPrice(svcs.Listings, logg))
			r.Post("/{listingId}/restock", controllers.RestockListing(svcs.Listings, logg))
		})

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Get("/listings", controllers.ListStoreListings(svcs.Listings, logg))
			r.Get("/trust", controllers.GetTrustProfile(svcs.Trust, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.Post("/", controllers.MakeOffer(svcs.Offers, logg))
			r.Get("/{offerId}", controllers.GetOffer(svcs.Offers, logg))
			r.Post("/{offerId}/accept", controllers.AcceptOffer(svcs.Offers, logg))
			r.Post("/{offerId}/reject", controllers.RejectOffer(svcs.Offers, logg))
		})

		r.Post("/evidence", controllers.RecordEvidence(svcs.Evidence, logg))

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/direct", controllers.PurchaseDirect(svcs.Purchases, logg))
			r.Post("/from-offer", controllers.PurchaseFromOffer(svcs.Purchases, logg))
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.GetOrder(svcs.Purchases, logg))
			r.Get("/review", controllers.GetOrderReview(svcs.Reviews, logg))
		})

		r.Post("/reviews", controllers.LeaveReview(svcs.Reviews, logg))

		r.Route("/promotions", func(r chi.Router) {
			r.Get("/", controllers.ListActivePromotions(svcs.Promotions, logg))
			r.Post("/", controllers.CreatePromotion(svcs.Promotions, logg))
			r.Delete("/{promotionId}", controllers.CancelPromotion(svcs.Promotions, logg))
		})
	})

	return r
}
