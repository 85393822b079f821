package tenant

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("tenant not found")

// Store is the contract consumed from the (out-of-scope) relational store
// of tenant registrations. Lookups return ErrNotFound, never a zero value.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	GetByApiKeyHash(ctx context.Context, hash string) (*Tenant, error)
	FindByWebhookIdentifier(ctx context.Context, key, value string) (*Tenant, error)
	ListActive(ctx context.Context, env Environment) ([]*Tenant, error)
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	UpdateTenant(ctx context.Context, t *Tenant) error
}
