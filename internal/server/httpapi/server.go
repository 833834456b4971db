// Package httpapi exposes the notes REST API over chi: auth endpoints, the
// access-guarded notes endpoints, the note event stream, and health/metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/events"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

type UserService interface {
	Register(ctx context.Context, name, email, password string) (*services.Session, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	RequestReset(ctx context.Context, email string) error
	RedeemReset(ctx context.Context, email, code, newPassword string) error
}

type NoteService interface {
	List(ctx context.Context, userID, search string) ([]models.Note, error)
	Get(ctx context.Context, userID, id string) (*models.Note, error)
	Create(ctx context.Context, userID, title, content string) (*models.Note, error)
	Update(ctx context.Context, userID, id, title, content string) (*models.Note, error)
	TogglePin(ctx context.Context, userID, id string) (*models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type EventSource interface {
	Subscribe(userID string) (<-chan events.Event, func())
}

// Options configures a Server. AuthRate/AuthBurst bound the per-client rate
// of the unauthenticated auth endpoints; a zero AuthRate disables limiting.
type Options struct {
	Address         string
	Users           UserService
	Notes           NoteService
	Tokens          TokenVerifier
	Events          EventSource
	Logger          logging.Logger
	CORSOrigins     []string
	AuthRate        rate.Limit
	AuthBurst       int
	ShutdownTimeout time.Duration
}

type Server struct {
	address         string
	users           UserService
	notes           NoteService
	tokens          TokenVerifier
	events          EventSource
	logger          logging.Logger
	validate        *validator.Validate
	corsOrigins     []string
	limiter         *ipLimiter
	shutdownTimeout time.Duration
	isReady         atomic.Bool
}

func NewServer(o Options) *Server {
	logger := o.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	s := &Server{
		address:         o.Address,
		users:           o.Users,
		notes:           o.Notes,
		tokens:          o.Tokens,
		events:          o.Events,
		logger:          logger.With("module", "http_server"),
		validate:        newValidator(),
		corsOrigins:     o.CORSOrigins,
		shutdownTimeout: o.ShutdownTimeout,
	}
	if o.AuthRate > 0 {
		s.limiter = newIPLimiter(o.AuthRate, o.AuthBurst)
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	s.isReady.Store(true)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/livez", s.handleLivenessCheck)
	r.Get("/readyz", s.handleReadinessCheck)
	r.Get("/drain", s.handleDrain)
	r.Get("/undrain", s.handleUndrain)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(instrument)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimit).Post("/register", s.handleRegister)
			r.With(s.rateLimit).Post("/login", s.handleLogin)
			r.With(s.rateLimit).Post("/forgot-password", s.handleForgotPassword)
			r.With(s.rateLimit).Post("/reset-password", s.handleResetPassword)
			r.With(s.accessGuard).Get("/profile", s.handleProfile)
		})

		r.Route("/notes", func(r chi.Router) {
			r.With(tokenFromQuery, s.accessGuard).Get("/events", s.handleEvents)

			r.Group(func(r chi.Router) {
				r.Use(s.accessGuard)
				r.Get("/", s.handleListNotes)
				r.Post("/", s.handleCreateNote)
				r.Get("/{id}", s.handleGetNote)
				r.Put("/{id}", s.handleUpdateNote)
				r.Put("/{id}/pin", s.handleTogglePin)
				r.Delete("/{id}", s.handleDeleteNote)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then marks the server not ready and
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.isReady.Store(false)
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
