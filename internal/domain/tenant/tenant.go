// Package tenant defines the tenant directory consumed by entity
// validation: tenant resolution and per-tenant profile configuration.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrProfileNotFound = errors.New("tenant profile not found")
)

// Tenant represents an isolated customer account owning entities.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Profile carries the tenant's configured resource ceilings. A zero
// MaxTests means the tenant may not create any tests.
type Profile struct {
	MaxTests int64
}

// Directory resolves tenants and their profile configuration. It is a
// read-only capability; entity services never mutate tenant state.
type Directory interface {
	// FindByID retrieves a tenant by id, or ErrTenantNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// ProfileConfiguration returns the tenant's profile limits, or
	// ErrProfileNotFound when the tenant has no profile.
	ProfileConfiguration(ctx context.Context, id uuid.UUID) (*Profile, error)
}
