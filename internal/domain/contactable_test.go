package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeLabels(t *testing.T) {
	types := TypeLabels{
		{Name: "home", Verbose: "Home"},
		{Name: TypeNamePreferred, Verbose: "Preferred"},
	}

	assert.Equal(t, "Home, Preferred", types.Readable())
	assert.Equal(t, []string{"home", "pref"}, types.Names())
	assert.True(t, types.HasPreferred())
	assert.False(t, TypeLabels{{Name: "work"}}.HasPreferred())
}

func TestPhoneNumberFormatting(t *testing.T) {
	p := PhoneNumber{Number: "+442079460123"}

	assert.Equal(t, 44, p.CountryPrefix())
	assert.Equal(t, "GB", p.CountryCode())
	assert.Equal(t, uint64(2079460123), p.NationalNumber())
	assert.Equal(t, "+44 20 7946 0123", p.Formatted())
}

func TestPhoneNumberFormatted_Unparseable(t *testing.T) {
	p := PhoneNumber{Number: "not a number"}
	assert.Equal(t, "not a number", p.Formatted())
}

func TestValidatePhoneNumber(t *testing.T) {
	normalised, err := ValidatePhoneNumber("+44 20 7946 0123")
	require.NoError(t, err)
	assert.Equal(t, "+442079460123", normalised)

	_, err = ValidatePhoneNumber("12")
	assert.Error(t, err)
}

func TestWalletTransmissionHR(t *testing.T) {
	w := WalletAddress{Transmission: TransmissionTheyReceive}
	assert.Equal(t, "They receive", w.TransmissionHR())

	w.Transmission = TransmissionYouReceive
	assert.Equal(t, "You receive", w.TransmissionHR())
}

func TestAddressReadable(t *testing.T) {
	a := Address{
		Line1:    "10 Downing Street",
		City:     "London",
		Postcode: "SW1A 2AA",
		Country:  &Nation{Code: "GBR", Verbose: "United Kingdom"},
		Notes:    "Knock twice",
	}

	want := "10 Downing Street\nLondon\nSW1A 2AA\nUnited Kingdom\n\nNotes:\nKnock twice"
	assert.Equal(t, want, a.Readable())
}

func TestValidatePreferredTypes(t *testing.T) {
	prefID := uuid.New()
	homeID := uuid.New()
	workID := uuid.New()

	tests := []struct {
		name    string
		rows    []ContactableRow
		wantErr string
	}{
		{
			name: "one preferred among unarchived rows",
			rows: []ContactableRow{
				{TypeIDs: []uuid.UUID{prefID, homeID}},
				{TypeIDs: []uuid.UUID{workID}},
			},
		},
		{
			name: "no rows at all",
			rows: nil,
		},
		{
			name: "only archived rows need no preferred",
			rows: []ContactableRow{
				{Archived: true, TypeIDs: []uuid.UUID{homeID}},
			},
		},
		{
			name: "deleted rows are ignored",
			rows: []ContactableRow{
				{Delete: true, TypeIDs: []uuid.UUID{prefID, prefID}},
			},
		},
		{
			name: "two preferred rows",
			rows: []ContactableRow{
				{TypeIDs: []uuid.UUID{prefID, homeID}},
				{TypeIDs: []uuid.UUID{prefID, workID}},
			},
			wantErr: "only one entry may be preferred",
		},
		{
			name: "unarchived rows without a preferred",
			rows: []ContactableRow{
				{TypeIDs: []uuid.UUID{homeID}},
				{TypeIDs: []uuid.UUID{workID}},
			},
			wantErr: "one entry must be preferred",
		},
		{
			name: "archived row cannot be preferred",
			rows: []ContactableRow{
				{Archived: true, TypeIDs: []uuid.UUID{prefID, homeID}},
			},
			wantErr: "a preferred entry cannot be archived",
		},
		{
			name: "preferred cannot be the only type",
			rows: []ContactableRow{
				{TypeIDs: []uuid.UUID{prefID}},
			},
			wantErr: "preferred cannot be the only type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePreferredTypes("emails", prefID, tt.rows)
			if tt.wantErr == "" {
				assert.NoError(t, errs.ErrOrNil())
				return
			}
			require.True(t, errs.HasErrors())
			assert.Contains(t, errs["emails"], tt.wantErr)
		})
	}
}

func TestFieldErrors(t *testing.T) {
	errs := make(FieldErrors)
	assert.NoError(t, errs.ErrOrNil())

	errs.Add("dob", "bad date")
	errs.Add("dob", "still bad")
	errs.Add("anniversary", "too soon")

	require.Error(t, errs.ErrOrNil())
	assert.Equal(t, "anniversary: too soon, dob: bad date; still bad", errs.Error())
}
