package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/onauc-backend/api/controllers"
	"github.com/angelmondragon/onauc-backend/api/middleware"
	"github.com/angelmondragon/onauc-backend/internal/bidding"
	"github.com/angelmondragon/onauc-backend/internal/listings"
	"github.com/angelmondragon/onauc-backend/pkg/auth"
	"github.com/angelmondragon/onauc-backend/pkg/config"
	"github.com/angelmondragon/onauc-backend/pkg/logger"
	"github.com/angelmondragon/onauc-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// NewRouter wires the public and authenticated auction API. redisClient may be
// nil, in which case idempotency and throttling are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	verifier *auth.Verifier,
	listingService listings.Service,
	biddingEngine bidding.Engine,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	var (
		redisPinger controllers.Pinger
		idemStore   redis.IdempotencyStore
		counters    counterStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
		counters = redisClient
	}

	bidPolicy := middleware.NewRateLimitPolicy(
		"bids",
		cfg.Bidding.RateLimitWindow,
		cfg.Bidding.RateLimitPerUser,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.ListCategories(listingService, logg))
		r.Get("/listings", controllers.ListActiveListings(listingService, logg))
		r.Get("/listings/{listingId}", controllers.GetListing(listingService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Post("/listings", controllers.CreateListing(listingService, logg))
			r.With(middleware.UserRateLimit(bidPolicy, counters, logg)).
				Post("/listings/{listingId}/bids", controllers.PlaceBid(biddingEngine, logg))

			r.Route("/me", func(r chi.Router) {
				r.Get("/listings", controllers.MyListings(listingService, logg))
				r.Get("/bids", controllers.MyBids(listingService, logg))
			})
		})
	})

	return r
}
