package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/notification"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/repository"
	"github.com/reelhunter/recruiter/internal/search"
	"github.com/reelhunter/recruiter/internal/workspace"
	"github.com/reelhunter/recruiter/pkg/health"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

const serviceName = "recruiter"

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	Workspaces     *workspace.Manager
	Store          *pipeline.Store
	Profiles       repository.ProfileRepository
	Search         *search.Service
	Composer       *notification.Composer
	Dispatcher     *notification.Dispatcher
	Verifier       *identity.Verifier
	Health         *health.Handler
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all recruiter service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	logger := cfg.Logger

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(cfg.Workspaces, logger)
	profileHandler := NewProfileHandler(cfg.Profiles, logger)
	pipelineHandler := NewPipelineHandler(cfg.Store, cfg.Composer, cfg.Dispatcher, logger)
	moveHandler := NewMoveHandler(logger)
	candidateHandler := NewCandidateHandler(cfg.Search, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Auth endpoints (public, rate limited)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/auth/sign-up", authHandler.SignUp)
			r.Post("/auth/sign-in", authHandler.SignIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Verifier.Validate))
			r.Use(middleware.RequestLogger(logger))

			r.Post("/auth/sign-out", authHandler.SignOut)
		})

		// Session, profile, search and pipeline endpoints (workspace required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Verifier.Validate))
			r.Use(middleware.RequestLogger(logger))
			r.Use(WithWorkspace(cfg.Workspaces, logger))

			r.Get("/session", authHandler.Session)

			r.Get("/profile", profileHandler.Get)
			r.Patch("/profile", profileHandler.Update)

			r.With(RequireRecruiter(logger)).Get("/candidates/search", candidateHandler.Search)

			r.Route("/pipeline", func(r chi.Router) {
				r.Use(RequireRecruiter(logger))

				r.Get("/", pipelineHandler.Get)
				r.Post("/reload", pipelineHandler.Reload)
				r.Post("/bootstrap", pipelineHandler.Bootstrap)
				r.Post("/candidates", pipelineHandler.PlaceCandidate)
				r.Get("/candidates/{candidateID}/moves", pipelineHandler.History)
				r.Post("/candidates/{candidateID}/interview-invite", pipelineHandler.InterviewInvite)

				r.Route("/moves", func(r chi.Router) {
					r.Post("/pick-up", moveHandler.PickUp)
					r.Post("/drop", moveHandler.Drop)
					r.Post("/release", moveHandler.Release)
					r.Put("/email", moveHandler.SetEmail)
					r.Post("/confirm", moveHandler.Confirm)
					r.Post("/cancel", moveHandler.Cancel)
					r.Get("/confirmation", moveHandler.Confirmation)
				})
			})
		})
	})

	return r
}
