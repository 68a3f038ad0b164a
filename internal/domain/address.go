package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Line1         string
	Line2         string
	Neighbourhood string
	City          string
	State         string
	Postcode      string
	Country       *Nation
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Loaded aggregates.
	PhoneNumbers []PhoneNumber
	Tenancies    []Tenancy
}

// Readable renders the address with line breaks as if written on an envelope,
// skipping empty parts.
func (a *Address) Readable() string {
	var b strings.Builder
	for _, part := range []string{a.Line1, a.Line2, a.Neighbourhood, a.City, a.State, a.Postcode} {
		if part != "" {
			b.WriteString(part)
			b.WriteString("\n")
		}
	}
	if a.Country != nil {
		b.WriteString(a.Country.Verbose)
		b.WriteString("\n")
	}
	if a.Notes != "" {
		b.WriteString("\nNotes:\n")
		b.WriteString(a.Notes)
	}
	return b.String()
}

func (a *Address) String() string {
	return strings.TrimSpace(a.Line1 + " " + a.City)
}

// Validate reports every field problem at once.
func (a *Address) Validate() FieldErrors {
	errs := make(FieldErrors)
	if strings.TrimSpace(a.City) == "" {
		errs.Add("city", "City is required.")
	}
	return errs
}

// Tenancy links a Contact to an Address with address-type labels and an
// archived flag. A contact/address pair is unique.
type Tenancy struct {
	ID        uuid.UUID
	ContactID uuid.UUID
	AddressID uuid.UUID
	Archived  bool
	Types     TypeLabels
	// Address is loaded from the contact side, Contact from the address side.
	Address   *Address
	Contact   *ContactRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressInput carries a create/update submission for an address along with
// its inline phone number rows and the contacts it should be attached to.
type AddressInput struct {
	Line1         string
	Line2         string
	Neighbourhood string
	City          string
	State         string
	Postcode      string
	CountryID     *uuid.UUID
	Notes         string

	ContactIDs []uuid.UUID
	Phones     []PhoneInput
}

type AddressRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Address, error)
	GetByID(ctx context.Context, userID, addressID uuid.UUID) (*Address, error)
	Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*Address, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input AddressInput) (*Address, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}
