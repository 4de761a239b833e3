// Package postgres provides the PostgreSQL implementation of the test
// repositories using the pgx driver.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/crashlab/crashlab/internal/domain/crashtest"
	"github.com/crashlab/crashlab/pkg/common/async"
	"github.com/crashlab/crashlab/pkg/common/paging"
)

var (
	_ crashtest.Repository     = (*TestStore)(nil)
	_ crashtest.InfoRepository = (*TestStore)(nil)
)

// TestStore persists test records in PostgreSQL.
type TestStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewTestStore creates a test store backed by the given pool.
func NewTestStore(pool *pgxpool.Pool, tracer trace.Tracer) *TestStore {
	return &TestStore{pool: pool, tracer: tracer}
}

const testColumns = "id, tenant_id, name, road, accident_type, nr_of_vehicles, description, created_at"

// FindByID retrieves a test by tenant and identifier.
// Returns crashtest.ErrTestNotFound if the test doesn't exist.
func (s *TestStore) FindByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.Test, error) {
	ctx, span := s.tracer.Start(ctx, "testStore.FindByID")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		"SELECT "+testColumns+" FROM test WHERE tenant_id = $1 AND id = $2",
		tenantID, testID,
	)
	return scanTest(row)
}

// FindByIDAsync runs FindByID on its own goroutine and delivers the result
// through the returned future.
func (s *TestStore) FindByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.Test] {
	return async.Run(func() (*crashtest.Test, error) {
		return s.FindByID(ctx, tenantID, testID)
	})
}

// Save inserts a new test or updates an existing one. Referential
// violations are reported as *crashtest.ConstraintViolationError.
func (s *TestStore) Save(ctx context.Context, tenantID uuid.UUID, t *crashtest.Test) (*crashtest.Test, error) {
	ctx, span := s.tracer.Start(ctx, "testStore.Save")
	defer span.End()

	if t.ID == uuid.Nil {
		row := s.pool.QueryRow(ctx,
			`INSERT INTO test (id, tenant_id, name, road, accident_type, nr_of_vehicles, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+testColumns,
			uuid.New(), tenantID, t.Name, t.Road, t.AccidentType, t.NrOfVehicles, t.Description,
		)
		saved, err := scanTest(row)
		if err != nil {
			return nil, wrapConstraint(err)
		}
		return saved, nil
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE test
		 SET name = $3, road = $4, accident_type = $5, nr_of_vehicles = $6, description = $7
		 WHERE tenant_id = $1 AND id = $2
		 RETURNING `+testColumns,
		tenantID, t.ID, t.Name, t.Road, t.AccidentType, t.NrOfVehicles, t.Description,
	)
	saved, err := scanTest(row)
	if err != nil {
		return nil, wrapConstraint(err)
	}
	return saved, nil
}

// DeleteByID removes a test. Deleting an absent test is a no-op. A delete
// rejected by a foreign key is reported as *crashtest.ConstraintViolationError
// carrying the constraint name.
func (s *TestStore) DeleteByID(ctx context.Context, tenantID, testID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "testStore.DeleteByID")
	defer span.End()

	_, err := s.pool.Exec(ctx, "DELETE FROM test WHERE tenant_id = $1 AND id = $2", tenantID, testID)
	if err != nil {
		return wrapConstraint(err)
	}
	return nil
}

// CountByTenantID returns the number of tests owned by the tenant.
func (s *TestStore) CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "testStore.CountByTenantID")
	defer span.End()

	var count int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM test WHERE tenant_id = $1", tenantID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FindInfoByID retrieves the projection of a single test.
// Returns crashtest.ErrTestNotFound if the test doesn't exist.
func (s *TestStore) FindInfoByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.TestInfo, error) {
	t, err := s.FindByID(ctx, tenantID, testID)
	if err != nil {
		return nil, err
	}
	info := t.Info()
	return &info, nil
}

// FindInfoByIDAsync runs FindInfoByID on its own goroutine and delivers
// the result through the returned future.
func (s *TestStore) FindInfoByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.TestInfo] {
	return async.Run(func() (*crashtest.TestInfo, error) {
		return s.FindInfoByID(ctx, tenantID, testID)
	})
}

// FindByTenantID returns one page of the tenant's tests. The text search is
// a case-insensitive prefix match on name. Ordering is stable: creation
// time, then id, so repeated queries during a sweep see a consistent order.
func (s *TestStore) FindByTenantID(ctx context.Context, tenantID uuid.UUID, link paging.PageLink) (paging.PageData[crashtest.TestInfo], error) {
	ctx, span := s.tracer.Start(ctx, "testStore.FindByTenantID")
	defer span.End()

	var zero paging.PageData[crashtest.TestInfo]

	prefix := likePrefix(link.TextSearch)

	var total int64
	err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM test WHERE tenant_id = $1 AND name ILIKE $2",
		tenantID, prefix,
	).Scan(&total)
	if err != nil {
		return zero, err
	}

	order := "ASC"
	if link.SortOrder == paging.SortDesc {
		order = "DESC"
	}

	rows, err := s.pool.Query(ctx,
		"SELECT "+testColumns+" FROM test WHERE tenant_id = $1 AND name ILIKE $2"+
			fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT $3 OFFSET $4", order, order),
		tenantID, prefix, link.PageSize, link.Offset(),
	)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	var infos []crashtest.TestInfo
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return zero, err
		}
		infos = append(infos, t.Info())
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}

	return paging.NewPageData(infos, link, total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*crashtest.Test, error) {
	var t crashtest.Test
	var createdAt time.Time
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Road, &t.AccidentType, &t.NrOfVehicles, &t.Description, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crashtest.ErrTestNotFound
		}
		return nil, err
	}
	t.CreatedAt = createdAt
	return &t, nil
}

// likePrefix turns a raw prefix into an ILIKE pattern, escaping the LIKE
// metacharacters so user input cannot widen the match.
func likePrefix(prefix string) string {
	r := []rune(prefix)
	escaped := make([]rune, 0, len(r)+2)
	for _, c := range r {
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}

// wrapConstraint maps integrity-constraint failures onto the domain's
// constraint violation type, preserving the constraint name. Other errors
// pass through unchanged.
func wrapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return &crashtest.ConstraintViolationError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}
