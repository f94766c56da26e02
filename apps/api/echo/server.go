package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/class"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/schedule"
	"github.com/trezcool/classroom/core/user"
)

type (
	Deps struct {
		Conf        *core.Config
		Logger      core.Logger
		Validator   *core.Validator
		Metrics     RequestObserver // optional
		UserSvc     *user.Service
		CourseSvc   *course.Service
		ClassSvc    *class.Service
		ScheduleSvc *schedule.Service
	}

	Server struct {
		app      *echo.Echo
		addr     string
		deps     *Deps
		tokens   TokenIssuer
		shutdown chan os.Signal
		errors   chan error
	}
)

// NewServer sets up the API. A nil shutdown channel is replaced by one only fed by the server itself.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &Server{
		app:      echo.New(),
		addr:     addr,
		deps:     deps,
		tokens:   NewTokenIssuer(deps.Conf),
		shutdown: shutdown,
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Validator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", home)

	v1 := s.app.Group("/api/v1")
	jwt := []echo.MiddlewareFunc{middleware.JWTWithConfig(s.tokens.middlewareConfig()), accessTokenMiddleware}

	registerAuthAPI(v1, s.tokens, s.deps.UserSvc)
	registerCourseAPI(v1, s.deps.CourseSvc)
	registerClassAPI(v1, s.deps.ClassSvc)
	registerScheduleAPI(v1, s.deps.ScheduleSvc)
	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validator)
}

// Start blocks until the server stops; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo API!")
}
