// Package postgres provides the PostgreSQL-backed tenant directory.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crashlab/crashlab/internal/domain/tenant"
	"github.com/crashlab/crashlab/internal/infra/storage"
)

var _ tenant.Directory = (*DirectoryStore)(nil)

// DirectoryStore resolves tenants and their profile configuration from
// PostgreSQL. It is read-only from the entity service's perspective.
type DirectoryStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewDirectoryStore creates a tenant directory backed by the given pool.
func NewDirectoryStore(pool *pgxpool.Pool, tracer trace.Tracer) *DirectoryStore {
	return &DirectoryStore{pool: pool, tracer: tracer}
}

// FindByID retrieves a tenant by id.
// Returns tenant.ErrTenantNotFound if the tenant doesn't exist.
func (s *DirectoryStore) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := storage.ExecuteAndTrace(ctx, s.tracer, "directoryStore.FindByID",
		[]attribute.KeyValue{attribute.String("tenant_id", id.String())},
		func(ctx context.Context) error {
			row := s.pool.QueryRow(ctx,
				"SELECT id, name, created_at FROM tenant WHERE id = $1", id)
			if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return tenant.ErrTenantNotFound
				}
				return fmt.Errorf("querying tenant: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ProfileConfiguration returns the tenant's configured limits.
// Returns tenant.ErrProfileNotFound if the tenant doesn't exist.
func (s *DirectoryStore) ProfileConfiguration(ctx context.Context, id uuid.UUID) (*tenant.Profile, error) {
	var p tenant.Profile
	err := storage.ExecuteAndTrace(ctx, s.tracer, "directoryStore.ProfileConfiguration",
		[]attribute.KeyValue{attribute.String("tenant_id", id.String())},
		func(ctx context.Context) error {
			row := s.pool.QueryRow(ctx,
				"SELECT max_tests FROM tenant WHERE id = $1", id)
			if err := row.Scan(&p.MaxTests); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return tenant.ErrProfileNotFound
				}
				return fmt.Errorf("querying tenant profile: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
