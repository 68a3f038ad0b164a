package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

// --- requireAuth ---

func TestRequireAuth_NoSession(t *testing.T) {
	srv := newTestServer(t, newTestRepos())

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	handler := srv.requireAuth(func(c echo.Context) error {
		return c.String(200, "ok")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	repos := newTestRepos()
	repos.users.getByID = func(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
		return nil, domain.ErrUserNotFound
	}
	srv := newTestServer(t, repos)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rec := httptest.NewRecorder()
	setSessionUserID(t, srv, req, rec, userID)

	req2 := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	for _, cookie := range rec.Result().Cookies() {
		req2.AddCookie(cookie)
	}
	rec2 := httptest.NewRecorder()
	c := srv.echo.NewContext(req2, rec2)

	handler := srv.requireAuth(func(c echo.Context) error {
		return c.String(200, "ok")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, 302, rec2.Code)
}

func TestRequireAuth_ValidSession(t *testing.T) {
	srv := newTestServer(t, newTestRepos())
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	rec := httptest.NewRecorder()
	setSessionUserID(t, srv, req, rec, userID)

	req2 := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	for _, cookie := range rec.Result().Cookies() {
		req2.AddCookie(cookie)
	}
	rec2 := httptest.NewRecorder()
	c := srv.echo.NewContext(req2, rec2)

	var gotUserID uuid.UUID
	handler := srv.requireAuth(func(c echo.Context) error {
		gotUserID = c.Get(contextKeyUserID).(uuid.UUID)
		return c.String(200, "ok")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, 200, rec2.Code)
	assert.Equal(t, userID, gotUserID)
}

func setSessionUserID(t *testing.T, srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) {
	t.Helper()
	session, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(req, rec))
}

// --- register ---

func TestHandleRegister_Success(t *testing.T) {
	var gotHash string
	repos := newTestRepos()
	repos.users.create = func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
		gotHash = passwordHash
		return &domain.User{ID: uuid.New(), Username: username}, nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/auth/register", url.Values{
		"username":         {"alice"},
		"password":         {"liberty-bell-9"},
		"password_confirm": {"liberty-bell-9"},
	})
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleRegister(c))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/contacts", rec.Header().Get("Location"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("liberty-bell-9")))
}

func TestHandleRegister_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "missing username",
			form: url.Values{"password": {"liberty-bell-9"}, "password_confirm": {"liberty-bell-9"}},
			want: "Username is required",
		},
		{
			name: "short password",
			form: url.Values{"username": {"alice"}, "password": {"short"}, "password_confirm": {"short"}},
			want: "at least 8 characters",
		},
		{
			name: "mismatched confirmation",
			form: url.Values{"username": {"alice"}, "password": {"liberty-bell-9"}, "password_confirm": {"other-bell-9"}},
			want: "do not match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, newTestRepos())
			req := postForm("/auth/register", tt.form)
			rec := httptest.NewRecorder()
			c := srv.echo.NewContext(req, rec)

			require.NoError(t, srv.handleRegister(c))
			assert.Equal(t, 200, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestHandleRegister_UsernameTaken(t *testing.T) {
	repos := newTestRepos()
	repos.users.create = func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
		return nil, domain.ErrUsernameTaken
	}
	srv := newTestServer(t, repos)

	req := postForm("/auth/register", url.Values{
		"username":         {"alice"},
		"password":         {"liberty-bell-9"},
		"password_confirm": {"liberty-bell-9"},
	})
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleRegister(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "already taken")
}

// --- login ---

func TestHandleLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("liberty-bell-9"), bcrypt.MinCost)
	require.NoError(t, err)

	repos := newTestRepos()
	repos.users.getByUsername = func(ctx context.Context, username string) (*domain.User, error) {
		return &domain.User{ID: uuid.New(), Username: username, PasswordHash: string(hash)}, nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/auth/login", url.Values{
		"username": {"alice"},
		"password": {"liberty-bell-9"},
	})
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleLogin(c))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/contacts", rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("liberty-bell-9"), bcrypt.MinCost)
	require.NoError(t, err)

	repos := newTestRepos()
	repos.users.getByUsername = func(ctx context.Context, username string) (*domain.User, error) {
		return &domain.User{ID: uuid.New(), Username: username, PasswordHash: string(hash)}, nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/auth/login", url.Values{
		"username": {"alice"},
		"password": {"not-the-password"},
	})
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleLogin(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestHandleLogin_UnknownUser(t *testing.T) {
	srv := newTestServer(t, newTestRepos())

	req := postForm("/auth/login", url.Values{
		"username": {"nobody"},
		"password": {"whatever-else"},
	})
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleLogin(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestAuthenticate_CollapsesFailureModes(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("liberty-bell-9"), bcrypt.MinCost)
	require.NoError(t, err)

	repos := newTestRepos()
	repos.users.getByUsername = func(ctx context.Context, username string) (*domain.User, error) {
		if username == "alice" {
			return &domain.User{ID: uuid.New(), Username: username, PasswordHash: string(hash)}, nil
		}
		return nil, domain.ErrUserNotFound
	}
	srv := newTestServer(t, repos)
	ctx := context.Background()

	_, err = srv.authenticate(ctx, "nobody", "liberty-bell-9")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = srv.authenticate(ctx, "alice", "not-the-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	user, err := srv.authenticate(ctx, "alice", "liberty-bell-9")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

// --- logout ---

func TestHandleLogout_ExpiresSession(t *testing.T) {
	srv := newTestServer(t, newTestRepos())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleLogout(c))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
