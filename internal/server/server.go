// Package server wires the application together and runs the local bridge.
//
// New is the composition root:
//
//	config → sqlite.DB (+ token sealer) → session.Store
//	       → moodle.Client → AuthService, AggregationService
//	       → schedule source → ScheduleService
//	       → viewstate controllers → handlers → chi router
//
// Each layer receives only the interfaces it uses; nothing below the
// handlers knows about HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/eljunior/internal/auth"
	"github.com/sakif/eljunior/internal/config"
	"github.com/sakif/eljunior/internal/handler"
	"github.com/sakif/eljunior/internal/middleware"
	"github.com/sakif/eljunior/internal/model"
	"github.com/sakif/eljunior/internal/moodle"
	"github.com/sakif/eljunior/internal/repository"
	sqliteRepo "github.com/sakif/eljunior/internal/repository/sqlite"
	"github.com/sakif/eljunior/internal/schedule"
	"github.com/sakif/eljunior/internal/service"
	"github.com/sakif/eljunior/internal/session"
	"github.com/sakif/eljunior/internal/viewstate"
)

const shutdownTimeout = 30 * time.Second

// Deps replaces the parts of the wiring that tests need to control.
// Zero values mean the production choice.
type Deps struct {
	HTTPClient *http.Client
	Clock      func() time.Time
	Schedule   schedule.Source
}

// Server owns the database, the controllers and the router.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	cancel      context.CancelFunc
	closers     []interface{ Close() }
	unsubscribe func()
}

// New builds the whole object graph from cfg.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	// === Storage ===
	var sealer repository.TokenSealer
	if cfg.Storage.SessionKey != "" {
		s, err := auth.NewSealer(cfg.Storage.SessionKey)
		if err != nil {
			return nil, fmt.Errorf("creating token sealer: %w", err)
		}
		sealer = s
	} else {
		logger.Warn("storage.session_key not set: the Moodle token is stored unencrypted")
	}

	if cfg.Storage.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.Storage.DBPath, sealer)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.wire(deps); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire(deps Deps) error {
	cfg, logger := s.config, s.logger

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// === Remote API ===
	client, err := moodle.New(moodle.Config{
		BaseURL:           cfg.Moodle.URL,
		Service:           cfg.Moodle.Service,
		Timeout:           cfg.Moodle.Timeout,
		RequestsPerSecond: cfg.Moodle.RequestsPerSecond,
		Burst:             cfg.Moodle.Burst,
	}, deps.HTTPClient, logger)
	if err != nil {
		return fmt.Errorf("creating moodle client: %w", err)
	}

	// === Services ===
	store := session.NewStore(s.db, logger)
	authSvc := service.NewAuthService(client, store, logger)
	aggSvc := service.NewAggregationService(client, authSvc, deps.Clock, logger)

	source, err := s.scheduleSource(deps)
	if err != nil {
		return err
	}
	scheduleSvc := service.NewScheduleService(source, logger)

	// === Screens ===
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	authScreen, err := viewstate.NewAuthController(ctx, authSvc, store, logger)
	if err != nil {
		return fmt.Errorf("creating auth screen: %w", err)
	}
	home := viewstate.NewHomeController(ctx, authSvc, aggSvc, scheduleSvc, deps.Clock, logger)
	courses := viewstate.NewCoursesController(ctx, aggSvc, logger)
	profile := viewstate.NewProfileController(ctx, authSvc, aggSvc, logger)
	timetable := viewstate.NewScheduleController(ctx, scheduleSvc, deps.Clock, logger)
	s.closers = append(s.closers, authScreen, home, courses, profile, timetable)

	loadScreens := func() {
		home.Load()
		courses.Load()
		profile.Load()
	}

	// Clearing the session empties the screens that show student data and
	// drops their loads in flight. The callback runs under the store lock, so
	// signedIn needs no other.
	signedIn := false
	s.unsubscribe, err = store.Subscribe(ctx, func(sess *model.Session) {
		wasSignedIn := signedIn
		signedIn = sess != nil
		if signedIn || !wasSignedIn {
			return
		}
		home.Reset()
		courses.Reset()
		profile.Reset()
	})
	if err != nil {
		return fmt.Errorf("following session changes: %w", err)
	}

	// === Handlers ===
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return fmt.Errorf("loading schedule timezone: %w", err)
	}
	authHandler := handler.NewAuthHandler(authScreen, authSvc, tokens, loadScreens, logger)
	dashboard := handler.NewDashboardHandler(handler.Screens{
		Home:     home,
		Courses:  courses,
		Profile:  profile,
		Schedule: timetable,
	}, aggSvc, deps.Clock, loc, logger)

	s.setupRoutes(tokens, authHandler, dashboard)

	// === Initial state ===
	timetable.SelectDate(deps.Clock().In(loc))
	if sess, err := authSvc.CurrentSession(ctx); err != nil {
		logger.Warn("could not read stored session", slog.String("error", err.Error()))
	} else if sess != nil {
		logger.Info("resuming stored session", slog.Int64("userID", sess.UserID))
		loadScreens()
	}

	return nil
}

func (s *Server) scheduleSource(deps Deps) (schedule.Source, error) {
	if deps.Schedule != nil {
		return deps.Schedule, nil
	}
	if s.config.Schedule.ICS == "" {
		s.logger.Info("no schedule.ics configured, serving the sample timetable")
		return schedule.MockSource{}, nil
	}

	loc, err := s.config.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("loading schedule timezone: %w", err)
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: s.config.Moodle.Timeout}
	}
	return &schedule.ICSSource{
		Location: s.config.Schedule.ICS,
		HTTP:     httpClient,
		TZ:       loc,
		Logger:   s.logger,
	}, nil
}

// setupRoutes configures middleware and routes.
//
//	GET    /healthz
//	POST   /auth/login                 → sign in, sets the bridge cookie
//	POST   /auth/logout
//	GET    /auth/state                 → whether to show the login screen
//	DELETE /auth/error                 → dismiss the last login error
//	GET    /api/me
//	GET    /api/home                   POST /api/home/refresh
//	GET    /api/courses                POST /api/courses/refresh
//	GET    /api/courses/{id}           GET  /api/courses/{id}/contents
//	POST   /api/courses/{id}/favourite
//	GET    /api/deadlines?limit=N      GET  /api/alerts
//	GET    /api/profile                POST /api/profile/refresh
//	GET    /api/schedule               POST /api/schedule/date
//	POST   /api/schedule/next          POST /api/schedule/previous
//
// /api requires the bridge cookie and a stored session that matches it.
func (s *Server) setupRoutes(tokens *auth.TokenService, a *handler.AuthHandler, d *handler.DashboardHandler) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.NoCache)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.HandleLogin)
		r.Post("/logout", a.HandleLogout)
		r.Get("/state", a.HandleState)
		r.Delete("/error", a.HandleClearError)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Use(a.RequireSession)

		r.Get("/me", a.HandleMe)

		r.Get("/home", d.HandleHome)
		r.Post("/home/refresh", d.HandleHomeRefresh)

		r.Get("/courses", d.HandleCourses)
		r.Post("/courses/refresh", d.HandleCoursesRefresh)
		r.Get("/courses/{id}", d.HandleCourse)
		r.Get("/courses/{id}/contents", d.HandleCourseContents)
		r.Post("/courses/{id}/favourite", d.HandleToggleFavourite)

		r.Get("/deadlines", d.HandleDeadlines)
		r.Get("/alerts", d.HandleAlerts)

		r.Get("/profile", d.HandleProfile)
		r.Post("/profile/refresh", d.HandleProfileRefresh)

		r.Get("/schedule", d.HandleSchedule)
		r.Post("/schedule/date", d.HandleSelectDate)
		r.Post("/schedule/next", d.HandleNextWeek)
		r.Post("/schedule/previous", d.HandlePreviousWeek)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops background work and closes the database. It is safe to call
// on a partially built Server.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}
	for _, c := range s.closers {
		c.Close()
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("closing database", slog.String("error", err.Error()))
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
// in-flight requests finish, background loads are cancelled and the
// database is closed.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.Moodle.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening",
			slog.String("addr", srv.Addr),
			slog.String("moodle", s.config.Moodle.URL),
			slog.String("database", s.config.Storage.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
