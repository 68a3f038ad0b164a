package domain

import (
	"time"

	"github.com/google/uuid"
)

type Email struct {
	ID        uuid.UUID
	ContactID uuid.UUID
	Address   string
	Archived  bool
	Types     TypeLabels
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Email) String() string {
	return e.Address
}
