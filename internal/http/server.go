package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trackit/internal/log"
	"trackit/internal/middleware/ratelimit"
	"trackit/internal/middleware/security"
	"trackit/internal/middleware/trace"
	"trackit/internal/services"
)

// Options tune the server. Zero values pick the defaults.
type Options struct {
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	// Ready reports whether the snapshot backend is reachable.
	Ready  func(context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	svc      *services.FinanceService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(context.Context) error
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svc *services.FinanceService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		svc:      svc,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}, logger),
		ready:   opts.Ready,
		timeout: opts.RequestTimeout,
		logger:  logger,
		now:     time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP))
		r.Use(middleware.AllowContentType("application/json", "application/x-www-form-urlencoded"))
		r.Use(s.withTimeout)

		r.Post("/", s.handleCreateSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/summary", s.handleSummary)
			r.Get("/health", s.handleHealthScore)
			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)

			mountResource(r, s, incomeResource, nil)
			mountResource(r, s, expenseResource, nil)
			mountResource(r, s, cardResource, nil)
			mountResource(r, s, cardTransactionResource, nil)
			mountResource(r, s, goalResource, func(r chi.Router) {
				r.Post("/{id}/progress", s.handleGoalProgress)
				r.Get("/{id}/plan", s.handleSavingsPlan)
			})
			mountResource(r, s, goalContributionResource, nil)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/cards", s.handleCardDashboard)
				r.Get("/goals", s.handleGoalDashboard)
				r.Get("/overview", s.handleOverviewDashboard)
			})
		})
	})

	return r
}

// withTimeout bounds backend I/O for API requests.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
