package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/storage/database/inmem"
)

type (
	Options struct {
		Address            string
		DisableReqLogs     bool
		Debug              bool
		TestMode           bool
		AppName            string
		SecretKey          string
		JWTExpirationDelta time.Duration
		AuthScheme         string // "Token" or "Bearer"
		DB                 *inmemdb.DB
		Logger             core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		jwtConfig  middleware.JWTConfig
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	if opts.AuthScheme == "" {
		opts.AuthScheme = "Token"
	}
	if opts.JWTExpirationDelta <= 0 {
		opts.JWTExpirationDelta = 7 * 24 * time.Hour
	}
	validate, translator := core.NewValidator()
	s := &server{
		opts:       opts,
		app:        echo.New(),
		validate:   validate,
		translator: translator,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(opts.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
			AuthScheme:    opts.AuthScheme,
		},
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(middleware.RequestID()) // keeps the client's X-Request-ID

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", s.home)
	s.app.GET(inmemdb.MediaPrefix+"*", s.media)

	jwt := middleware.JWTWithConfig(s.jwtConfig)
	staff := staffMiddleware()

	s.registerUserAPI(s.app.Group("/user/auth"), jwt, staff)
	s.registerInstitutionAPI(s.app.Group("/institucion", jwt, staff))
	s.registerAcademicAPI(s.app.Group("/academico", jwt, staff))
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.opts.Logger.Fatal(fmt.Sprintf("server error: %v", err), err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	name := s.opts.AppName
	if name == "" {
		name = "Masomo"
	}
	return ctx.String(http.StatusOK, "Welcome to "+name+" API!")
}

// media serves the files uploaded through the multipart forms (logos, photos).
func (s *server) media(ctx echo.Context) error {
	content, ok := s.opts.DB.Media(ctx.Param("*"))
	if !ok {
		return errHttpNotFound
	}
	return ctx.Blob(http.StatusOK, http.DetectContentType(content), content)
}
