package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/usecase"
	"github.com/nexaflow/nexaflow/pkg/utils/logging"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type Server struct {
	router         *chi.Mux
	uc             *usecase.UseCases
	authUC         AuthUseCase
	whatsappSecret string
	enableMetrics  bool
	maxUploadSize  int64
}

type Options func(*Server)

// DefaultMaxUploadSize caps the multipart body of a version upload
const DefaultMaxUploadSize = 64 << 20

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithWhatsAppWebhook enables POST /hooks/whatsapp, verified with secret
func WithWhatsAppWebhook(secret string) Options {
	return func(s *Server) {
		s.whatsappSecret = secret
	}
}

// WithMetrics exposes Prometheus metrics on /metrics
func WithMetrics(enabled bool) Options {
	return func(s *Server) {
		s.enableMetrics = enabled
	}
}

func WithMaxUploadSize(size int64) Options {
	return func(s *Server) {
		s.maxUploadSize = size
	}
}

func New(uc *usecase.UseCases, opts ...Options) (*Server, error) {
	if uc == nil {
		return nil, goerr.New("use cases are required")
	}

	r := chi.NewRouter()
	s := &Server{
		router:        r,
		uc:            uc,
		authUC:        uc.Auth,
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.authUC == nil {
		return nil, goerr.New("authentication is not configured")
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(requestMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.authUC))

		r.Get("/me", s.getMe)

		r.Get("/profiles", s.listProfiles)
		r.Put("/profiles/{profileID}", s.putProfile)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.listProjects)
			r.Post("/", s.createProject)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.getProject)
				r.Post("/members", s.addProjectMember)
				r.Get("/activities", s.listProjectActivities)
				r.Get("/deliverables", s.listDeliverables)
				r.Post("/deliverables", s.createDeliverable)
			})
		})

		r.Route("/deliverables/{deliverableID}", func(r chi.Router) {
			r.Get("/", s.getDeliverable)
			r.Post("/versions", s.uploadVersion)
			r.Post("/decision", s.decide)
			r.Post("/revision", s.requestRevision)
			r.Post("/assign", s.assign)
			r.Post("/email-links", s.issueEmailLinks)
			r.Get("/activities", s.listDeliverableActivities)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.createRule)
			r.Get("/{ruleID}", s.getRule)
			r.Put("/{ruleID}", s.updateRule)
			r.Delete("/{ruleID}", s.deleteRule)
		})

		r.Get("/notifications", s.listNotifications)
	})

	// Email approval links carry their own signed scope, no session required
	r.Get(usecase.EmailLinkPath, s.showEmailLink)
	r.Post(usecase.EmailLinkPath, s.decideByEmailLink)

	if s.whatsappSecret != "" {
		r.Route("/hooks/whatsapp", func(r chi.Router) {
			r.Use(WhatsAppSignatureMiddleware(s.whatsappSecret))
			r.Post("/", s.whatsappWebhook)
		})
	}

	if s.enableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
