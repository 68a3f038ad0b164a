package server

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requireAuth redirects to the login page unless the session carries the ID
// of a user that still exists.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUserID(c)
		if !ok {
			return c.Redirect(302, "/auth/login")
		}

		if _, err := s.repos.Users.GetByID(c.Request().Context(), userID); err != nil {
			return c.Redirect(302, "/auth/login")
		}

		c.Set(contextKeyUserID, userID)
		return next(c)
	}
}

func (s *Server) isAuthenticated(c echo.Context) bool {
	_, ok := s.sessionUserID(c)
	return ok
}

// sessionUserID extracts and parses the user ID from the session cookie.
func (s *Server) sessionUserID(c echo.Context) (uuid.UUID, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return uuid.Nil, false
	}

	raw, ok := session.Values[sessionKeyUserID]
	if !ok {
		return uuid.Nil, false
	}

	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// currentUserID reads the user ID requireAuth stashed on the context.
func currentUserID(c echo.Context) uuid.UUID {
	return c.Get(contextKeyUserID).(uuid.UUID)
}
