package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/notteddydev/reimagined-lamp/internal/errors"
	"github.com/notteddydev/reimagined-lamp/internal/logging"
	"github.com/notteddydev/reimagined-lamp/web"
)

func (s *Server) registerRoutes() {
	e := s.echo

	e.Use(correlationMiddleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(errors.Middleware())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
	}))

	csrf := middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:csrf_token,header:X-CSRF-Token",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   s.config.AppEnv == "production",
		CookieSameSite: http.SameSiteStrictMode,
	})
	authLimiter := newRateLimiter(1, 5)

	// Observability endpoints (no auth required)
	e.GET("/health/live", s.handleLiveness)
	e.GET("/health/ready", s.handleReadiness)
	e.GET("/version", s.handleVersion)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.StaticFS("/static", echo.MustSubFS(web.StaticFiles, "static"))

	// Root redirects to the contact list, or login without a session.
	e.GET("/", func(c echo.Context) error {
		if s.isAuthenticated(c) {
			return c.Redirect(302, "/contacts")
		}
		return c.Redirect(302, "/auth/login")
	})

	// Auth (rate limited by IP, CSRF on the form posts)
	e.GET("/auth/register", s.handleRegisterPage, csrf)
	e.POST("/auth/register", s.handleRegister, authLimiter, csrf)
	e.GET("/auth/login", s.handleLoginPage, csrf)
	e.POST("/auth/login", s.handleLogin, authLimiter, csrf)
	e.POST("/auth/logout", s.handleLogout, s.requireAuth, csrf)

	// Contacts
	e.GET("/contacts", s.handleContactList, s.requireAuth, csrf)
	e.GET("/contacts/new", s.handleContactNew, s.requireAuth, csrf)
	e.POST("/contacts", s.handleContactCreate, s.requireAuth, csrf)
	e.GET("/contacts/:id", s.handleContactDetail, s.requireAuth, csrf)
	e.GET("/contacts/:id/edit", s.handleContactEdit, s.requireAuth, csrf)
	e.POST("/contacts/:id", s.handleContactUpdate, s.requireAuth, csrf)
	e.POST("/contacts/:id/delete", s.handleContactDelete, s.requireAuth, csrf)

	// Exports (static segments take precedence over :id in echo's router)
	e.GET("/contacts/vcard", s.handleContactListVCard, s.requireAuth)
	e.GET("/contacts/export", s.handleContactListXLSX, s.requireAuth)
	e.GET("/contacts/:id/vcard", s.handleContactVCard, s.requireAuth)
	e.GET("/contacts/:id/qrcode", s.handleContactQRCode, s.requireAuth)

	// Addresses
	e.GET("/addresses", s.handleAddressList, s.requireAuth, csrf)
	e.GET("/addresses/new", s.handleAddressNew, s.requireAuth, csrf)
	e.POST("/addresses", s.handleAddressCreate, s.requireAuth, csrf)
	e.GET("/addresses/:id", s.handleAddressDetail, s.requireAuth, csrf)
	e.GET("/addresses/:id/edit", s.handleAddressEdit, s.requireAuth, csrf)
	e.POST("/addresses/:id", s.handleAddressUpdate, s.requireAuth, csrf)
	e.POST("/addresses/:id/delete", s.handleAddressDelete, s.requireAuth, csrf)

	// Tags
	e.GET("/tags/new", s.handleTagNew, s.requireAuth, csrf)
	e.POST("/tags", s.handleTagCreate, s.requireAuth, csrf)
	e.POST("/tags/:id/delete", s.handleTagDelete, s.requireAuth, csrf)
}

// correlationMiddleware stamps each request context with a correlation ID so
// every log line of a request can be tied together.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.WithCorrelationID(c.Request().Context(), logging.NewCorrelationID())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
