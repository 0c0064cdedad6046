package http

import (
	"log/slog"
	"net/http"

	"github.com/fcl-miniapp/internal/application/registration"
	"github.com/fcl-miniapp/internal/application/stats"
	"github.com/fcl-miniapp/internal/config"
	"github.com/fcl-miniapp/internal/infrastructure/metrics"
	"github.com/fcl-miniapp/internal/transport/http/handler"
	appmiddleware "github.com/fcl-miniapp/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	Drafts   DraftStore
	Ledger   Ledger
	Verifier IdentityVerifier
	Notifier Notifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		// The rate limiter keys on RemoteAddr; RealIP rewrites it from the
		// forwarding headers. Only safe behind a proxy that sets them.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", appmiddleware.InitDataHeader, appmiddleware.AdminTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Applied to the user write endpoints.
	writeRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.SubmitRatePerSecond), cfg.SubmitRateBurst)

	regDeps := registration.ServiceDeps{
		Drafts:   deps.Drafts,
		Ledger:   deps.Ledger,
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
		DraftTTL: cfg.DraftTTL,
	}
	// A nil *metrics.Metrics must stay a nil interface.
	if deps.Metrics != nil {
		regDeps.Metrics = deps.Metrics
	}
	regSvc := registration.NewService(regDeps)
	statsSvc := stats.NewService(deps.Ledger)

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(regSvc, deps.Logger)
	statsH := handler.NewStatsHandler(statsSvc, cfg.StatsRecentLimit, deps.Logger)

	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.Check)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Verifier))

			r.Get("/draft", regH.GetDraft)
			r.With(writeRL.Limit).Put("/draft", regH.PutDraft)
			r.With(writeRL.Limit).Post("/submit", regH.Submit)
		})

		r.With(appmiddleware.AdminToken(cfg.AdminToken)).Get("/admin/stats", statsH.Get)
	})

	return r
}
