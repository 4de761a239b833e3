// Package relation defines cleanup of graph edges referencing an entity.
package relation

import (
	"context"

	"github.com/google/uuid"
)

// Repository removes relation edges that reference an entity. Cleanup is
// idempotent: deleting relations of an entity that has none is a no-op.
type Repository interface {
	// DeleteEntityRelations removes every edge pointing at or out of the
	// given entity within the tenant.
	DeleteEntityRelations(ctx context.Context, tenantID, entityID uuid.UUID) error
}
