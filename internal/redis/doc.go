// Package redis implements Redis-backed caching.
//
// Provides VCardCache, a best-effort TTL cache for rendered vCards keyed by
// contact, invalidated whenever a contact or one of its addresses changes.
package redis
