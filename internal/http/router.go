package http

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/natours-api/internal/auth"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/metrics"
	"github.com/redmonkez12/natours-api/internal/ratelimit"
	"github.com/redmonkez12/natours-api/internal/user"
)

// RouterConfig holds the router's transport settings
type RouterConfig struct {
	IsDevelopment  bool
	TrustedOrigins []string
	RateLimitRetry time.Duration  // Retry-After sent with 429 responses
	TrustedProxies []netip.Prefix // peers allowed to set forwarding headers
}

// Dependencies are the components the router exposes over HTTP
type Dependencies struct {
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	Limiter        ratelimit.Limiter
	Gatherer       prometheus.Gatherer
	Logger         *logging.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg RouterConfig, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	logger := deps.Logger

	// CORS - must be first
	if len(cfg.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders(!cfg.IsDevelopment)) // Security headers on all responses
	r.Use(Recoverer)                           // Recover from panics with a JSON 500
	r.Use(middleware.RequestID)                // Add request ID
	r.Use(RealIP(cfg.TrustedProxies))          // Client IP from trusted proxies only
	r.Use(logging.RequestLogger(logger))       // Structured logging with request context
	r.Use(middleware.Compress(5))              // Compress responses

	r.NotFound(handleNotFound)

	// Public routes
	r.Get("/health", handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// Swagger UI - only in development
	if cfg.IsDevelopment {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	h := deps.AuthHandler
	mw := deps.AuthMiddleware
	limit := func(purpose string) func(http.Handler) http.Handler {
		return ratelimit.Middleware(deps.Limiter, purpose, cfg.RateLimitRetry)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limit("signup")).Post("/signup", h.Signup)
			r.With(limit("login")).Post("/login", h.Login)
			r.Get("/logout", h.Logout)
			r.With(limit("forgot_password")).Post("/forgotPassword", h.ForgotPassword)
			r.Patch("/resetPassword/{token}", h.ResetPassword)
			r.With(mw.OptionalAuth).Get("/session", h.Session)

			// Protected routes (require authentication)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAuth)
				r.Patch("/updateMyPassword", h.UpdateMyPassword)
				r.Get("/me", h.Me)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Use(mw.RequireRole(user.RoleAdmin, user.RoleLeadGuide))
			r.Get("/accounts/{id}", h.GetAccount)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} httputil.Response
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondMessage(w, "api is running", http.StatusOK)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.RespondErrorWithCode(w, "can't find "+r.URL.Path+" on this server", httputil.CodeNotFound, http.StatusNotFound)
}
