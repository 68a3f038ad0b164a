package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tag is user-owned; names are unique per user.
type Tag struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Tag) String() string {
	return t.Name
}

type TagRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Tag, error)
	// Create inserts the tag and links it to the given contacts, all of which
	// must belong to userID. Returns ErrDuplicateTag on a name collision.
	Create(ctx context.Context, userID uuid.UUID, name string, contactIDs []uuid.UUID) (*Tag, error)
	Delete(ctx context.Context, userID, tagID uuid.UUID) error
}
