package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

func TestContactsXLSX(t *testing.T) {
	dob := time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)
	contacts := []*domain.Contact{
		{
			ID:        uuid.New(),
			FirstName: "Bruno",
			LastName:  "Carvalho",
			Gender:    domain.GenderMale,
			DOB:       &dob,
			YearMet:   2015,
			Profession: &domain.Profession{
				Name: "Engineer",
			},
			Nationalities: []domain.Nation{
				{Verbose: "Portugal"},
				{Verbose: "United Kingdom"},
			},
			Emails: []domain.Email{
				{Address: "bruno@example.com", Types: domain.TypeLabels{{Name: domain.TypeNamePreferred, Verbose: "Preferred"}}},
			},
			Tags: []domain.Tag{
				{Name: "friends"},
			},
		},
		{
			ID:        uuid.New(),
			FirstName: "Ada",
			YearMet:   2020,
		},
	}

	data, err := ContactsXLSX(contacts)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "First Name", rows[0][0])
	assert.Equal(t, "Bruno", rows[1][0])
	assert.Equal(t, "Carvalho", rows[1][2])
	assert.Equal(t, "M", rows[1][4])
	assert.Equal(t, "1990-03-14", rows[1][5])
	assert.Equal(t, "2015", rows[1][6])
	assert.Equal(t, "Engineer", rows[1][7])
	assert.Equal(t, "Portugal, United Kingdom", rows[1][8])
	assert.Equal(t, "bruno@example.com", rows[1][9])
	assert.Equal(t, "friends", rows[1][11])
	assert.Equal(t, "Ada", rows[2][0])
}

func TestContactsXLSX_Empty(t *testing.T) {
	data, err := ContactsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, contactHeader, rows[0])
}
