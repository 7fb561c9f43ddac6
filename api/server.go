package api

import (
	"net/http"
	"strings"
	"time"

	"giveaway/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options configures the HTTP surface
type Options struct {
	JWTSecret      string
	AllowedOrigins string
	RateLimitRPS   int
	RateLimitBurst int
}

// Server owns the router and its collaborators
type Server struct {
	services Services
	opts     Options
	limiter  *RateLimiter
}

// NewServer creates the HTTP server
func NewServer(services Services, opts Options) *Server {
	return &Server{
		services: services,
		opts:     opts,
		limiter:  NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

// Limiter exposes the rate limiter so the caller can run its sweeper
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(observeRequests)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(s.opts.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(Auth(s.opts.JWTSecret))
		r.Use(s.limiter.Handler)

		r.Get("/wallet", s.GetWallet)
		r.Post("/wallet/deposit", s.Deposit)
		r.Get("/wallet/ledger", s.ListLedger)

		r.Post("/giveaways", s.CreateGiveaway)
		r.Get("/giveaways/{id}", s.GetGiveaway)
		r.Get("/giveaways/{id}/contributions", s.ListContributions)
		r.Post("/giveaways/{id}/donations", s.Donate)
		r.Post("/giveaways/{id}/tickets", s.BuyTickets)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(s.services.Access))

			r.Post("/giveaways/{id}/close", s.CloseGiveaway)
			r.Post("/giveaways/{id}/review", s.StartReview)
			r.Post("/giveaways/{id}/pick", s.PickWinner)
			r.Post("/giveaways/{id}/repick", s.RepickWinner)
			r.Post("/giveaways/{id}/finalize", s.FinalizeWinner)

			r.Get("/audit", s.ListAudit)
			r.Get("/audit/export", s.ExportAudit)

			r.Post("/wallets/{userId}/credit", s.AdminCredit)
			r.Post("/wallets/{userId}/debit", s.AdminDebit)
			r.Post("/wallets/{userId}/tickets", s.AdminAdjustTickets)
			r.Get("/wallets/{userId}/reconcile", s.Reconcile)

			r.Put("/roles/{userId}", s.SetRole)
		})
	})

	return router
}

// observeRequests records request counts and latency by route pattern
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}

func splitOrigins(value string) []string {
	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
