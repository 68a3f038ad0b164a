// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (contact.go, address.go,
// tag.go, etc.) with entities, derived properties, validation rules, and the
// repository contracts the storage layer implements. No implementation code -
// just contracts. Prevents circular imports by keeping interfaces on the
// consumer side.
package domain
