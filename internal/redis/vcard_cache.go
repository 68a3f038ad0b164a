package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/notteddydev/reimagined-lamp/internal/metrics"
)

const (
	vcardCachePrefix = "vcard_cache:"
	vcardCacheTTL    = 1 * time.Hour
)

// VCardCache stores rendered vCards keyed by contact ID. It is strictly
// best-effort: a Redis failure degrades to recomposing from PostgreSQL.
type VCardCache struct {
	rdb goredis.Cmdable
}

func NewVCardCache(rdb goredis.Cmdable) *VCardCache {
	return &VCardCache{rdb: rdb}
}

// Get returns the cached vCard for a contact, or false on miss or error.
func (c *VCardCache) Get(ctx context.Context, contactID uuid.UUID) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, vcardCachePrefix+contactID.String()).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis vCard cache GET failed, recomposing", "contact_id", contactID, "error", err)
		}
		metrics.VCardCacheMisses.Inc()
		return nil, false
	}

	metrics.VCardCacheHits.Inc()
	return data, true
}

// Set stores a rendered vCard (best-effort).
func (c *VCardCache) Set(ctx context.Context, contactID uuid.UUID, data []byte) {
	if err := c.rdb.Set(ctx, vcardCachePrefix+contactID.String(), data, vcardCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate Redis vCard cache", "contact_id", contactID, "error", err)
	}
}

// Invalidate drops the cached vCards for the given contacts. Callers pass
// every contact touched by a mutation, including tenants of a changed address.
func (c *VCardCache) Invalidate(ctx context.Context, contactIDs ...uuid.UUID) error {
	if len(contactIDs) == 0 {
		return nil
	}

	keys := make([]string, len(contactIDs))
	for i, id := range contactIDs {
		keys[i] = vcardCachePrefix + id.String()
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate vCard cache: %w", err)
	}
	return nil
}
