// Package postgres provides the PostgreSQL-backed relation cleanup store.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crashlab/crashlab/internal/domain/relation"
	"github.com/crashlab/crashlab/internal/infra/storage"
)

var _ relation.Repository = (*RelationStore)(nil)

// RelationStore removes relation edges referencing an entity.
type RelationStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewRelationStore creates a relation store backed by the given pool.
func NewRelationStore(pool *pgxpool.Pool, tracer trace.Tracer) *RelationStore {
	return &RelationStore{pool: pool, tracer: tracer}
}

// DeleteEntityRelations removes every edge pointing at or out of the
// entity. Deleting relations of an entity that has none is a no-op.
func (s *RelationStore) DeleteEntityRelations(ctx context.Context, tenantID, entityID uuid.UUID) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "relationStore.DeleteEntityRelations",
		[]attribute.KeyValue{
			attribute.String("tenant_id", tenantID.String()),
			attribute.String("entity_id", entityID.String()),
		},
		func(ctx context.Context) error {
			_, err := s.pool.Exec(ctx,
				"DELETE FROM relation WHERE tenant_id = $1 AND (from_id = $2 OR to_id = $2)",
				tenantID, entityID,
			)
			if err != nil {
				return fmt.Errorf("deleting entity relations: %w", err)
			}
			return nil
		},
	)
}
