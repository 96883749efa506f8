package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fitfuel/identity-service/docs"
	"github.com/fitfuel/identity-service/internal/api/handler"
	"github.com/fitfuel/identity-service/internal/api/middleware"
	"github.com/fitfuel/identity-service/internal/core/domain"
	"github.com/fitfuel/identity-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Log      zerolog.Logger
	Users    middleware.SubjectChecker
	Tokens   middleware.TokenValidator
	Auth     ports.AuthService
	Accounts ports.AccountService
	Admin    ports.AdminService
	// Health maps a dependency name to its readiness check.
	Health map[string]handler.Pinger
	// Registry receives the HTTP metrics. /metrics serves it together with
	// the default registry. Nil selects the default registry only.
	Registry *prometheus.Registry
	// Clock is used to check token expiry. Nil selects time.Now.
	Clock func() time.Time
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer = d.Registry
		gatherer = prometheus.Gatherers{d.Registry, prometheus.DefaultGatherer}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Identity(d.Tokens, d.Users, d.Clock, d.Log))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Accounts)
	adminHandler := handler.NewAdminHandler(d.Admin)
	healthHandler := handler.NewHealthHandler(d.Health)

	requireAdmin := middleware.RequireRole(domain.RoleAdmin)

	// --- Auth routes (public) ---
	authGroup := e.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// --- User routes ---
	userGroup := e.Group("/user")
	userGroup.POST("/change-password", userHandler.ChangePassword, middleware.RequireAuth())
	userGroup.POST("/force-password-change/:username", userHandler.ForcePasswordChange, requireAdmin)

	// --- Admin routes ---
	adminGroup := e.Group("/admin", requireAdmin)
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.GET("/stats", adminHandler.Stats)
	adminGroup.POST("/change-password", adminHandler.ChangeUserPassword)

	// --- Health checks (no auth required) ---
	e.GET("/health", healthHandler.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/swagger", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	return e
}
