package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

func TestHandleTagCreate_RedirectsToFilteredList(t *testing.T) {
	userID := uuid.New()
	contactID := uuid.New()
	repos := newTestRepos()

	var gotContactIDs []uuid.UUID
	repos.tags.create = func(ctx context.Context, _ uuid.UUID, name string, contactIDs []uuid.UUID) (*domain.Tag, error) {
		gotContactIDs = contactIDs
		return &domain.Tag{ID: uuid.New(), UserID: userID, Name: name}, nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/tags", url.Values{
		"name":     {"book club"},
		"contacts": {contactID.String()},
	})
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, userID)

	require.NoError(t, srv.handleTagCreate(c))
	assert.Equal(t, 302, rec.Code)
	assert.Equal(t, "/contacts?filter_field=tag&filter_value=book+club", rec.Header().Get("Location"))
	assert.Equal(t, []uuid.UUID{contactID}, gotContactIDs)
}

func TestHandleTagCreate_DuplicateName(t *testing.T) {
	repos := newTestRepos()
	repos.tags.create = func(ctx context.Context, _ uuid.UUID, name string, _ []uuid.UUID) (*domain.Tag, error) {
		return nil, domain.ErrDuplicateTag
	}
	srv := newTestServer(t, repos)

	req := postForm("/tags", url.Values{"name": {"book club"}})
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, uuid.New())

	require.NoError(t, srv.handleTagCreate(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "already have a tag")
}

func TestHandleTagCreate_RequiresName(t *testing.T) {
	repos := newTestRepos()
	created := false
	repos.tags.create = func(ctx context.Context, _ uuid.UUID, name string, _ []uuid.UUID) (*domain.Tag, error) {
		created = true
		return nil, nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/tags", url.Values{"name": {"   "}})
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, uuid.New())

	require.NoError(t, srv.handleTagCreate(c))
	assert.Equal(t, 200, rec.Code)
	assert.False(t, created)
	assert.Contains(t, rec.Body.String(), "Tag name is required.")
}

func TestHandleTagNew_PreselectsOwnedContact(t *testing.T) {
	userID := uuid.New()
	contactID := uuid.New()
	repos := newTestRepos()
	repos.contacts.list = func(ctx context.Context, _ uuid.UUID, _ *domain.ContactFilter) ([]*domain.Contact, error) {
		return []*domain.Contact{{ID: contactID, UserID: userID, FirstName: "Grace"}}, nil
	}
	repos.contacts.exists = func(ctx context.Context, _, gotContactID uuid.UUID) (bool, error) {
		return gotContactID == contactID, nil
	}
	srv := newTestServer(t, repos)

	req := httptest.NewRequest(http.MethodGet, "/tags/new?contact_id="+contactID.String(), nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, userID)

	require.NoError(t, srv.handleTagNew(c))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "selected")
}

func TestHandleTagNew_IgnoresForeignContact(t *testing.T) {
	userID := uuid.New()
	repos := newTestRepos()
	repos.contacts.list = func(ctx context.Context, _ uuid.UUID, _ *domain.ContactFilter) ([]*domain.Contact, error) {
		return []*domain.Contact{{ID: uuid.New(), UserID: userID, FirstName: "Grace"}}, nil
	}
	srv := newTestServer(t, repos)

	req := httptest.NewRequest(http.MethodGet, "/tags/new?contact_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, userID)

	require.NoError(t, srv.handleTagNew(c))
	assert.Equal(t, 200, rec.Code)
	assert.NotContains(t, rec.Body.String(), `selected>`)
}

func TestHandleTagDelete(t *testing.T) {
	userID := uuid.New()
	tagID := uuid.New()
	repos := newTestRepos()

	deleted := false
	repos.tags.delete = func(ctx context.Context, _, gotTagID uuid.UUID) error {
		assert.Equal(t, tagID, gotTagID)
		deleted = true
		return nil
	}
	srv := newTestServer(t, repos)

	req := postForm("/tags/"+tagID.String()+"/delete", url.Values{})
	rec := httptest.NewRecorder()
	c := authedContext(srv, req, rec, userID)
	c.SetParamNames("id")
	c.SetParamValues(tagID.String())

	require.NoError(t, srv.handleTagDelete(c))
	assert.True(t, deleted)
	assert.Equal(t, 302, rec.Code)
}
