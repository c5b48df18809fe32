package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/metrics"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

// SessionCookie is the cookie carrying the admin session token.
const SessionCookie = "liteclient_session"

// defaultMaxBodySize caps request bodies when Options.MaxBodySize is unset.
const defaultMaxBodySize = 1 << 20

// Procedures is the budget procedure set served over HTTP.
type Procedures interface {
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	GetCustomerInfo(ctx context.Context, in model.CustomerInfoInput) (*model.CustomerDetail, error)
	CreateBudget(ctx context.Context, in model.BudgetCreateRequest) (*model.BudgetResponse, error)
	AssignBudget(ctx context.Context, in model.BudgetAssignment) (*model.BudgetResponse, error)
}

// Sessions authenticates admins and resolves their session tokens.
type Sessions interface {
	Login(ctx context.Context, email, password string) (string, *model.Session, error)
	Resolve(ctx context.Context, token string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

// Options tunes the HTTP surface.
type Options struct {
	// CookieSecure marks the session cookie Secure (HTTPS only).
	CookieSecure bool

	// MaxBodySize limits JSON request bodies in bytes.
	MaxBodySize int64
}

// Server exposes authentication and budget procedures over HTTP.
type Server struct {
	procedures Procedures
	sessions   Sessions
	opts       Options
	router     chi.Router
	logger     *zap.Logger
}

// NewServer creates an API server.
func NewServer(procedures Procedures, sessions Sessions, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	s := &Server{
		procedures: procedures,
		sessions:   sessions,
		opts:       opts,
		router:     chi.NewRouter(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/session", s.handleSession)
		})

		r.Route("/budget", func(r chi.Router) {
			r.Get("/customers", s.handleListCustomers)
			r.Get("/customers/{id}", s.handleGetCustomerInfo)
			r.Post("/budgets", s.handleCreateBudget)
			r.Post("/assignments", s.handleAssignBudget)
		})
	})
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
