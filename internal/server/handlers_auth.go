package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

const minPasswordLength = 8

func (s *Server) handleRegisterPage(c echo.Context) error {
	if s.isAuthenticated(c) {
		return c.Redirect(302, "/contacts")
	}
	return s.renderTemplate(c, "register.html", nil)
}

func (s *Server) handleRegister(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	confirm := c.FormValue("password_confirm")

	if msg := validateRegistration(username, password, confirm); msg != "" {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "failure").Inc()
		return s.renderTemplate(c, "register.html", map[string]any{
			"Error":    msg,
			"Username": username,
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return err
	}

	user, err := s.repos.Users.Create(c.Request().Context(), username, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "failure").Inc()
			return s.renderTemplate(c, "register.html", map[string]any{
				"Error":    "That username is already taken.",
				"Username": username,
			})
		}
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	slog.Info("User registered", "username", username)

	if err := s.startSession(c, user.ID.String()); err != nil {
		return err
	}
	return c.Redirect(302, "/contacts")
}

func validateRegistration(username, password, confirm string) string {
	if username == "" {
		return "Username is required."
	}
	if len(username) > 150 {
		return "Username is too long."
	}
	if len(password) < minPasswordLength {
		return "Password must be at least 8 characters."
	}
	if password != confirm {
		return "Passwords do not match."
	}
	return ""
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if s.isAuthenticated(c) {
		return c.Redirect(302, "/contacts")
	}
	return s.renderTemplate(c, "login.html", nil)
}

func (s *Server) handleLogin(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	user, err := s.authenticate(c.Request().Context(), username, password)
	if errors.Is(err, domain.ErrInvalidCredential) {
		return s.loginFailed(c, username)
	}
	if err != nil {
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()

	if err := s.startSession(c, user.ID.String()); err != nil {
		return err
	}
	return c.Redirect(302, "/contacts")
}

// authenticate resolves the username and checks the password, collapsing both
// failure modes into ErrInvalidCredential so the response never reveals which
// part was wrong.
func (s *Server) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repos.Users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredential
	}
	return user, nil
}

func (s *Server) loginFailed(c echo.Context, username string) error {
	metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
	slog.Info("Login failed", "username", username)
	return s.renderTemplate(c, "login.html", map[string]any{
		"Error":    "Invalid username or password.",
		"Username": username,
	})
}

// startSession drops any existing session and issues a fresh cookie carrying
// the user ID, so a pre-login session cannot be fixated onto an account.
func (s *Server) startSession(c echo.Context, userID string) error {
	if old, err := s.sessionStore.Get(c.Request(), sessionName); err == nil {
		old.Options.MaxAge = -1
		if err := old.Save(c.Request(), c.Response().Writer); err != nil {
			slog.Warn("Failed to invalidate old session", "error", err)
		}
	}

	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to create session", "error", err)
	}
	session.Values[sessionKeyUserID] = userID
	return session.Save(c.Request(), c.Response().Writer)
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("Failed to create new session during logout", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("Failed to save logout session", "error", err)
		return c.String(500, "Failed to logout due to a session error. Please clear your cookies.")
	}

	metrics.AuthAttemptsTotal.WithLabelValues("logout", "success").Inc()
	return c.Redirect(302, "/auth/login")
}
