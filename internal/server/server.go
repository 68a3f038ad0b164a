// Package server wires the HTTP surface: session auth, CSRF, form parsing,
// and the HTML handlers for contacts, addresses, tags, and exports.
package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/notteddydev/reimagined-lamp/internal/config"
	"github.com/notteddydev/reimagined-lamp/internal/domain"
	"github.com/notteddydev/reimagined-lamp/internal/redis"
	"github.com/notteddydev/reimagined-lamp/web"
)

// Session keys
const (
	sessionName      = "rolodex-session"
	sessionKeyUserID = "user_id"
	contextKeyUserID = "userID"
)

// Repositories bundles the persistence interfaces the handlers need.
type Repositories struct {
	Users     domain.UserRepository
	Contacts  domain.ContactRepository
	Addresses domain.AddressRepository
	Tags      domain.TagRepository
	Lookups   domain.LookupRepository
}

// healthPinger is the slice of a pool or client the readiness probe needs.
type healthPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	repos        Repositories
	vcards       *redis.VCardCache
	clock        clockwork.Clock
	sessionStore *sessions.CookieStore
	templates    *template.Template

	postgresHealth healthPinger
	redisHealth    healthPinger
}

// Option tweaks optional server collaborators.
type Option func(*Server)

// WithClock replaces the wall clock, so tests can pin "today".
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithHealthCheckers sets the postgres and redis probes used by /health/ready.
func WithHealthCheckers(postgres, redis healthPinger) Option {
	return func(s *Server) {
		s.postgresHealth = postgres
		s.redisHealth = redis
	}
}

func NewServer(cfg *config.Config, repos Repositories, vcards *redis.VCardCache, opts ...Option) (*Server, error) {
	// Parse the embedded templates once at startup.
	templates, err := template.New("").Funcs(templateFuncs()).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		repos:        repos,
		vcards:       vcards,
		clock:        clockwork.NewRealClock(),
		sessionStore: newSessionStore(cfg),
		templates:    templates,
	}
	for _, opt := range opts {
		opt(srv)
	}

	e.Renderer = &templateRenderer{templates: templates}

	srv.registerRoutes()

	return srv, nil
}

func newSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// templateFuncs are the helpers the templates lean on.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		// selected reports whether a lookup option is in the submitted set.
		"selected": func(ids []uuid.UUID, id uuid.UUID) bool {
			for _, candidate := range ids {
				if candidate == id {
					return true
				}
			}
			return false
		},
	}
}

// templateRenderer satisfies echo.Renderer so the error middleware can render
// error.html through c.Render.
type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// renderTemplate executes into a buffer first, so a template failure never
// sends half a page.
func (s *Server) renderTemplate(c echo.Context, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = domain.FieldErrors{}
	}
	if _, ok := data["CSRFToken"]; !ok {
		if token, tok := c.Get("csrf").(string); tok {
			data["CSRFToken"] = token
		}
	}
	if userID, ok := c.Get(contextKeyUserID).(uuid.UUID); ok {
		data["AuthedUserID"] = userID
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "template", name, "path", c.Request().URL.Path, "error", err)
		return c.String(500, "Failed to render page")
	}
	return c.HTMLBlob(200, buf.Bytes())
}
