package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t, newTestRepos())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleLiveness(c))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv := newTestServer(t, newTestRepos())
	srv.postgresHealth = stubPinger{}
	srv.redisHealth = stubPinger{}

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_RedisDown(t *testing.T) {
	srv := newTestServer(t, newTestRepos())
	srv.postgresHealth = stubPinger{}
	srv.redisHealth = stubPinger{err: errors.New("connection refused")}

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"redis"`)
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t, newTestRepos())

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, srv.handleVersion(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
	assert.Contains(t, rec.Body.String(), `"go_version"`)
}
