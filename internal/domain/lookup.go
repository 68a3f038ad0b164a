package domain

import (
	"context"

	"github.com/google/uuid"
)

// Nation is a seeded lookup row; contacts reference it for nationalities and
// addresses for their country.
type Nation struct {
	ID      uuid.UUID
	Code    string
	Verbose string
}

type Profession struct {
	ID   uuid.UUID
	Name string
}

type CryptoNetwork struct {
	ID     uuid.UUID
	Name   string
	Symbol string
}

func (n CryptoNetwork) String() string {
	return n.Name + " (" + n.Symbol + ")"
}

// LookupRepository serves the seeded reference tables the forms render as
// select options. All lists come back in display order.
type LookupRepository interface {
	Nations(ctx context.Context) ([]Nation, error)
	Professions(ctx context.Context) ([]Profession, error)
	CryptoNetworks(ctx context.Context) ([]CryptoNetwork, error)
	AddressTypes(ctx context.Context) (TypeLabels, error)
	PhoneNumberTypes(ctx context.Context) (TypeLabels, error)
	EmailTypes(ctx context.Context) (TypeLabels, error)
}
