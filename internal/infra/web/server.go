// File: internal/infra/web/server.go
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/usecase"
)

// Server exposes the billing API: a public webhook ingress, a user surface
// for purchases/subscriptions/quota, and an admin surface for the catalog
// and refunds.
type Server struct {
	cfg       config.ServerConfig
	auth      *AuthManager
	paymentUC usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	pkgUC     usecase.PackageUseCase
	webhookUC usecase.WebhookUseCase
	notifUC   usecase.NotificationUseCase
	gateways  map[string]adapter.PaymentGateway
	log       *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	paymentUC usecase.PaymentUseCase,
	subUC usecase.SubscriptionUseCase,
	pkgUC usecase.PackageUseCase,
	webhookUC usecase.WebhookUseCase,
	notifUC usecase.NotificationUseCase,
	gateways map[string]adapter.PaymentGateway,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		cfg:       cfg,
		auth:      NewAuthManager(cfg.JWTSecret),
		paymentUC: paymentUC,
		subUC:     subUC,
		pkgUC:     pkgUC,
		webhookUC: webhookUC,
		notifUC:   notifUC,
		gateways:  gateways,
		log:       &l,
	}
}

// Handler builds the full route tree. Split from Run so tests can drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Gateways authenticate with signatures, not bearer tokens.
	r.Post("/api/v1/webhooks/{gateway}", s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/packages", s.handleListPackages)
		r.Get("/packages/{code}", s.handleGetPackage)

		r.Post("/payments", s.handlePurchase)
		r.Get("/payments/{id}", s.handleGetPayment)

		r.Get("/subscriptions/current", s.handleCurrentSubscription)
		r.Post("/subscriptions/{id}/cancel", s.handleCancelSubscription)

		r.Get("/quota/{type}", s.handleCheckQuota)
		r.Post("/quota/{type}/consume", s.handleConsumeQuota)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/packages", s.handleCreatePackage)
			r.Put("/packages/{code}", s.handlePublishPackage)
			r.Delete("/packages/{code}", s.handleDeactivatePackage)

			r.Post("/payments/{id}/refund", s.handleRefund)
			r.Get("/revenue", s.handleRevenue)
			r.Get("/notifications/dead-letters", s.handleDeadLetters)
		})
	})
	return r
}

// Run serves until ctx cancels, then drains within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.cfg.Port).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("http server draining")
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(claimsInto(r.Context(), claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != "admin" {
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
