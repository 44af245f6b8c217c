package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"marathon-billing/internal/config"
	"marathon-billing/internal/infra/redis"
	"marathon-billing/internal/usecase"
)

type Server struct {
	orderUC      usecase.OrderUseCase
	reconcileUC  usecase.ReconcileUseCase
	enrollmentUC usecase.EnrollmentUseCase
	auth         *AuthManager
	limiter      *redis.RateLimiter // optional
	frontendURL  string
	log          *zerolog.Logger
	httpServer   *http.Server
}

func NewServer(
	cfg *config.Config,
	orderUC usecase.OrderUseCase,
	reconcileUC usecase.ReconcileUseCase,
	enrollmentUC usecase.EnrollmentUseCase,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		orderUC:      orderUC,
		reconcileUC:  reconcileUC,
		enrollmentUC: enrollmentUC,
		auth:         auth,
		limiter:      limiter,
		frontendURL:  cfg.Payment.FrontendURL,
		log:          logger,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/payment", func(r chi.Router) {
		// Bank-facing endpoints carry no user token.
		r.Post("/webhook", s.handleWebhook)
		r.Get("/callback", s.handleCallback)
		r.With(s.rateLimit).Get("/status-public/{orderID}", s.handleStatusPublic)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/create", s.handleCreatePremium)
			r.Post("/create-exercise", s.handleCreateExercise)
			r.Post("/create-marathon", s.handleCreateMarathon)
			r.Get("/status/{paymentID}", s.handleStatus)
			r.Get("/history", s.handleHistory)
		})
	})

	r.Route("/api/marathons", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/user/my-enrollments", s.handleMyEnrollments)
		r.Post("/{id}/enroll", s.handleEnroll)
		r.Get("/{id}/day/{day}", s.handleDay)
		r.Post("/{id}/complete-day", s.handleCompleteDay)
		r.Get("/{id}/progress", s.handleProgress)
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

const (
	publicRateLimit  = 30
	publicRateWindow = time.Minute
)

// rateLimit throttles unauthenticated endpoints by remote address. Fails open:
// if redis is down, the request goes through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			ok, err := s.limiter.Allow(r.Context(), redis.PublicStatusKey(r.RemoteAddr), publicRateLimit, publicRateWindow)
			if err == nil && !ok {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
