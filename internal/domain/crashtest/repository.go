package crashtest

import (
	"context"

	"github.com/google/uuid"

	"github.com/crashlab/crashlab/pkg/common/async"
	"github.com/crashlab/crashlab/pkg/common/paging"
)

// Repository defines data access for full test records. Lookups return
// ErrTestNotFound when no row matches; asynchronous variants deliver the
// same result or failure through the returned future.
type Repository interface {
	// FindByID retrieves a test by tenant and identifier.
	FindByID(ctx context.Context, tenantID, testID uuid.UUID) (*Test, error)

	// FindByIDAsync performs FindByID on the store's asynchronous
	// execution path.
	FindByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*Test]

	// Save inserts a new test or updates an existing one, returning the
	// persisted record with storage-assigned fields populated.
	Save(ctx context.Context, tenantID uuid.UUID, test *Test) (*Test, error)

	// DeleteByID removes a test. A delete rejected by a database
	// constraint is reported as a *ConstraintViolationError.
	DeleteByID(ctx context.Context, tenantID, testID uuid.UUID) error

	// CountByTenantID returns the number of tests owned by the tenant.
	CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// InfoRepository defines data access over the TestInfo projection.
type InfoRepository interface {
	// FindInfoByID retrieves the projection of a single test.
	FindInfoByID(ctx context.Context, tenantID, testID uuid.UUID) (*TestInfo, error)

	// FindInfoByIDAsync performs FindInfoByID on the store's asynchronous
	// execution path.
	FindInfoByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*TestInfo]

	// FindByTenantID returns one page of the tenant's tests, filtered by
	// case-insensitive name prefix when the link carries a text search.
	// Ordering is stable across calls (creation time, then id).
	FindByTenantID(ctx context.Context, tenantID uuid.UUID, link paging.PageLink) (paging.PageData[TestInfo], error)
}
