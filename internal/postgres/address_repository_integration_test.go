package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

func TestAddressRepo_CreateWithCountryAndPhones(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAddressRepo(pool)
	ctx := context.Background()

	user := CreateTestUser(t, pool, "alice")
	pt := LookupNationID(t, pool, "PRT")
	landline := LookupTypeID(t, pool, "phone_number_types", "home")

	addr, err := repo.Create(ctx, user.ID, domain.AddressInput{
		Line1:     "Rua Augusta 10",
		City:      "Lisbon",
		Postcode:  "1100-053",
		CountryID: &pt,
		Phones: []domain.PhoneInput{
			{Number: "+351213456789", TypeIDs: []uuid.UUID{landline}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Lisbon", addr.City)
	require.NotNil(t, addr.Country)
	assert.Equal(t, "PRT", addr.Country.Code)
	require.Len(t, addr.PhoneNumbers, 1)
	assert.Equal(t, "+351213456789", addr.PhoneNumbers[0].Number)
}

func TestAddressRepo_UpdateSyncsTenancies(t *testing.T) {
	pool := setupTestDB(t)
	addrRepo := NewAddressRepo(pool)
	contactRepo := NewContactRepo(pool)
	ctx := context.Background()

	user := CreateTestUser(t, pool, "alice")
	first, err := contactRepo.Create(ctx, user.ID, domain.ContactInput{FirstName: "First", YearMet: 2014})
	require.NoError(t, err)
	second, err := contactRepo.Create(ctx, user.ID, domain.ContactInput{FirstName: "Second", YearMet: 2014})
	require.NoError(t, err)

	addr, err := addrRepo.Create(ctx, user.ID, domain.AddressInput{
		Line1:      "Main Street 1",
		City:       "Faro",
		ContactIDs: []uuid.UUID{first.ID},
	})
	require.NoError(t, err)
	require.Len(t, addr.Tenancies, 1)
	assert.Equal(t, first.ID, addr.Tenancies[0].ContactID)

	// Swap the linked contact
	addr, err = addrRepo.Update(ctx, user.ID, addr.ID, domain.AddressInput{
		Line1:      "Main Street 1",
		City:       "Faro",
		ContactIDs: []uuid.UUID{second.ID},
	})
	require.NoError(t, err)
	require.Len(t, addr.Tenancies, 1)
	assert.Equal(t, second.ID, addr.Tenancies[0].ContactID)
}

func TestAddressRepo_ListOrdering(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAddressRepo(pool)
	ctx := context.Background()

	user := CreateTestUser(t, pool, "alice")
	pt := LookupNationID(t, pool, "PRT")

	_, err := repo.Create(ctx, user.ID, domain.AddressInput{Line1: "B", City: "Braga"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, user.ID, domain.AddressInput{Line1: "A", City: "Aveiro", CountryID: &pt})
	require.NoError(t, err)

	addresses, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	// Addresses with a country sort before those without
	assert.Equal(t, "Aveiro", addresses[0].City)
	assert.Equal(t, "Braga", addresses[1].City)
}

func TestAddressRepo_DeleteRemovesTenancies(t *testing.T) {
	pool := setupTestDB(t)
	addrRepo := NewAddressRepo(pool)
	contactRepo := NewContactRepo(pool)
	ctx := context.Background()

	user := CreateTestUser(t, pool, "alice")
	contact, err := contactRepo.Create(ctx, user.ID, domain.ContactInput{FirstName: "Tenant", YearMet: 2016})
	require.NoError(t, err)

	addr, err := addrRepo.Create(ctx, user.ID, domain.AddressInput{
		Line1:      "Gone 1",
		City:       "Coimbra",
		ContactIDs: []uuid.UUID{contact.ID},
	})
	require.NoError(t, err)

	err = addrRepo.Delete(ctx, user.ID, addr.ID)
	require.NoError(t, err)

	contact, err = contactRepo.GetByID(ctx, user.ID, contact.ID)
	require.NoError(t, err)
	assert.Empty(t, contact.Tenancies)
}

func TestAddressRepo_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewAddressRepo(pool)
	ctx := context.Background()

	user := CreateTestUser(t, pool, "alice")

	_, err := repo.GetByID(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	err = repo.Delete(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
}
