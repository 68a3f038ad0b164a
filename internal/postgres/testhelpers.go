package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

// CreateTestUser is a helper that creates a user for testing.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, username string) *domain.User {
	t.Helper()

	repo := NewUserRepo(pool)
	user, err := repo.Create(context.Background(), username, "$2a$10$testhashtesthashtesthashte")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	return user
}

// CreateTestAddress creates a bare address owned by the user.
func CreateTestAddress(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, city string) *domain.Address {
	t.Helper()

	repo := NewAddressRepo(pool)
	addr, err := repo.Create(context.Background(), userID, domain.AddressInput{
		Line1: "1 Test Street",
		City:  city,
	})
	require.NoError(t, err)

	return addr
}

// LookupNationID resolves a seeded nation by its ISO 3166-1 alpha-3 code.
func LookupNationID(t *testing.T, pool *pgxpool.Pool, code string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`SELECT id FROM nations WHERE code = $1`, code).Scan(&id)
	require.NoError(t, err)

	return id
}

// LookupTypeID resolves a seeded contactable type by table and name.
func LookupTypeID(t *testing.T, pool *pgxpool.Pool, table, name string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	require.NoError(t, err)

	return id
}

// LookupNetworkID resolves a seeded crypto network by symbol.
func LookupNetworkID(t *testing.T, pool *pgxpool.Pool, symbol string) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`SELECT id FROM crypto_networks WHERE symbol = $1`, symbol).Scan(&id)
	require.NoError(t, err)

	return id
}
