package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/notteddydev/reimagined-lamp/internal/config"
	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

// Mock repositories with pluggable function fields. Unset functions return
// the matching not-found sentinel so handlers exercise their error paths.

type mockUserRepo struct {
	getByID       func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getByUsername func(ctx context.Context, username string) (*domain.User, error)
	create        func(ctx context.Context, username, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getByID != nil {
		return m.getByID(ctx, userID)
	}
	return &domain.User{ID: userID, Username: "tester"}, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsername != nil {
		return m.getByUsername(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	if m.create != nil {
		return m.create(ctx, username, passwordHash)
	}
	return &domain.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}, nil
}

type mockContactRepo struct {
	list    func(ctx context.Context, userID uuid.UUID, filter *domain.ContactFilter) ([]*domain.Contact, error)
	getByID func(ctx context.Context, userID, contactID uuid.UUID) (*domain.Contact, error)
	create  func(ctx context.Context, userID uuid.UUID, input domain.ContactInput) (*domain.Contact, error)
	update  func(ctx context.Context, userID, contactID uuid.UUID, input domain.ContactInput) (*domain.Contact, error)
	delete  func(ctx context.Context, userID, contactID uuid.UUID) error
	exists  func(ctx context.Context, userID, contactID uuid.UUID) (bool, error)
}

func (m *mockContactRepo) List(ctx context.Context, userID uuid.UUID, filter *domain.ContactFilter) ([]*domain.Contact, error) {
	if m.list != nil {
		return m.list(ctx, userID, filter)
	}
	return nil, nil
}

func (m *mockContactRepo) GetByID(ctx context.Context, userID, contactID uuid.UUID) (*domain.Contact, error) {
	if m.getByID != nil {
		return m.getByID(ctx, userID, contactID)
	}
	return nil, domain.ErrContactNotFound
}

func (m *mockContactRepo) Create(ctx context.Context, userID uuid.UUID, input domain.ContactInput) (*domain.Contact, error) {
	if m.create != nil {
		return m.create(ctx, userID, input)
	}
	return &domain.Contact{ID: uuid.New(), UserID: userID, FirstName: input.FirstName}, nil
}

func (m *mockContactRepo) Update(ctx context.Context, userID, contactID uuid.UUID, input domain.ContactInput) (*domain.Contact, error) {
	if m.update != nil {
		return m.update(ctx, userID, contactID, input)
	}
	return nil, domain.ErrContactNotFound
}

func (m *mockContactRepo) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, userID, contactID)
	}
	return domain.ErrContactNotFound
}

func (m *mockContactRepo) Exists(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	if m.exists != nil {
		return m.exists(ctx, userID, contactID)
	}
	return false, nil
}

type mockAddressRepo struct {
	listByUser func(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	getByID    func(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error)
	create     func(ctx context.Context, userID uuid.UUID, input domain.AddressInput) (*domain.Address, error)
	update     func(ctx context.Context, userID, addressID uuid.UUID, input domain.AddressInput) (*domain.Address, error)
	delete     func(ctx context.Context, userID, addressID uuid.UUID) error
}

func (m *mockAddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	if m.listByUser != nil {
		return m.listByUser(ctx, userID)
	}
	return nil, nil
}

func (m *mockAddressRepo) GetByID(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	if m.getByID != nil {
		return m.getByID(ctx, userID, addressID)
	}
	return nil, domain.ErrAddressNotFound
}

func (m *mockAddressRepo) Create(ctx context.Context, userID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	if m.create != nil {
		return m.create(ctx, userID, input)
	}
	return &domain.Address{ID: uuid.New(), UserID: userID, City: input.City}, nil
}

func (m *mockAddressRepo) Update(ctx context.Context, userID, addressID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	if m.update != nil {
		return m.update(ctx, userID, addressID, input)
	}
	return nil, domain.ErrAddressNotFound
}

func (m *mockAddressRepo) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, userID, addressID)
	}
	return domain.ErrAddressNotFound
}

type mockTagRepo struct {
	listByUser func(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error)
	create     func(ctx context.Context, userID uuid.UUID, name string, contactIDs []uuid.UUID) (*domain.Tag, error)
	delete     func(ctx context.Context, userID, tagID uuid.UUID) error
}

func (m *mockTagRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error) {
	if m.listByUser != nil {
		return m.listByUser(ctx, userID)
	}
	return nil, nil
}

func (m *mockTagRepo) Create(ctx context.Context, userID uuid.UUID, name string, contactIDs []uuid.UUID) (*domain.Tag, error) {
	if m.create != nil {
		return m.create(ctx, userID, name, contactIDs)
	}
	return &domain.Tag{ID: uuid.New(), UserID: userID, Name: name}, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	if m.delete != nil {
		return m.delete(ctx, userID, tagID)
	}
	return domain.ErrTagNotFound
}

// mockLookupRepo serves fixed type tables so the preferred-type validation
// has real IDs to work with.
type mockLookupRepo struct {
	emailPref   uuid.UUID
	emailHome   uuid.UUID
	phonePref   uuid.UUID
	phoneMobile uuid.UUID
	addressPref uuid.UUID
	addressHome uuid.UUID
	nationGB    uuid.UUID
	networkBTC  uuid.UUID
}

func newMockLookupRepo() *mockLookupRepo {
	return &mockLookupRepo{
		emailPref:   uuid.New(),
		emailHome:   uuid.New(),
		phonePref:   uuid.New(),
		phoneMobile: uuid.New(),
		addressPref: uuid.New(),
		addressHome: uuid.New(),
		nationGB:    uuid.New(),
		networkBTC:  uuid.New(),
	}
}

func (m *mockLookupRepo) Nations(ctx context.Context) ([]domain.Nation, error) {
	return []domain.Nation{{ID: m.nationGB, Code: "GBR", Verbose: "United Kingdom"}}, nil
}

func (m *mockLookupRepo) Professions(ctx context.Context) ([]domain.Profession, error) {
	return []domain.Profession{{ID: uuid.New(), Name: "Engineer"}}, nil
}

func (m *mockLookupRepo) CryptoNetworks(ctx context.Context) ([]domain.CryptoNetwork, error) {
	return []domain.CryptoNetwork{{ID: m.networkBTC, Name: "Bitcoin", Symbol: "BTC"}}, nil
}

func (m *mockLookupRepo) AddressTypes(ctx context.Context) (domain.TypeLabels, error) {
	return domain.TypeLabels{
		{ID: m.addressPref, Name: domain.TypeNamePreferred, Verbose: "Preferred"},
		{ID: m.addressHome, Name: "home", Verbose: "Home"},
	}, nil
}

func (m *mockLookupRepo) PhoneNumberTypes(ctx context.Context) (domain.TypeLabels, error) {
	return domain.TypeLabels{
		{ID: m.phonePref, Name: domain.TypeNamePreferred, Verbose: "Preferred"},
		{ID: m.phoneMobile, Name: "mobile", Verbose: "Mobile"},
	}, nil
}

func (m *mockLookupRepo) EmailTypes(ctx context.Context) (domain.TypeLabels, error) {
	return domain.TypeLabels{
		{ID: m.emailPref, Name: domain.TypeNamePreferred, Verbose: "Preferred"},
		{ID: m.emailHome, Name: "home", Verbose: "Home"},
	}, nil
}

// testRepos bundles fresh mocks so individual tests can override behaviour.
type testRepos struct {
	users     *mockUserRepo
	contacts  *mockContactRepo
	addresses *mockAddressRepo
	tags      *mockTagRepo
	lookups   *mockLookupRepo
}

func newTestRepos() *testRepos {
	return &testRepos{
		users:     &mockUserRepo{},
		contacts:  &mockContactRepo{},
		addresses: &mockAddressRepo{},
		tags:      &mockTagRepo{},
		lookups:   newMockLookupRepo(),
	}
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, repos *testRepos) *Server {
	t.Helper()

	cfg := &config.Config{
		AppEnv:        "test",
		Port:          "8080",
		SessionSecret: strings.Repeat("s", 32),
		SessionMaxAge: 7 * 24 * time.Hour,
		BcryptCost:    4,
	}

	srv, err := NewServer(cfg, Repositories{
		Users:     repos.users,
		Contacts:  repos.contacts,
		Addresses: repos.addresses,
		Tags:      repos.tags,
		Lookups:   repos.lookups,
	}, nil, WithClock(clockwork.NewFakeClockAt(testNow)))
	require.NoError(t, err)
	return srv
}

// authedContext builds an echo context with the user ID already set, the way
// requireAuth leaves it.
func authedContext(srv *Server, req *http.Request, rec *httptest.ResponseRecorder, userID uuid.UUID) echo.Context {
	c := srv.echo.NewContext(req, rec)
	c.Set(contextKeyUserID, userID)
	return c
}
