// Package crashtest provides application services for the test entity:
// lookups, validated saves, deletes with referential protection, paginated
// listing and tenant-wide purge.
package crashtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crashlab/crashlab/internal/domain/crashtest"
	"github.com/crashlab/crashlab/internal/domain/relation"
	"github.com/crashlab/crashlab/internal/domain/tenant"
	"github.com/crashlab/crashlab/pkg/common/async"
	"github.com/crashlab/crashlab/pkg/common/logger"
	"github.com/crashlab/crashlab/pkg/common/paging"
)

// constraintDefaultTestDeviceProfile is the foreign key raised when a
// device profile still references the test being deleted.
const constraintDefaultTestDeviceProfile = "fk_default_test_device_profile"

// Service provides test-related application services. All writes run the
// validator before touching the store; reads delegate directly.
type Service struct {
	tests     crashtest.Repository
	infos     crashtest.InfoRepository
	relations relation.Repository
	validator *DataValidator

	metrics Metrics
	logger  *logger.Logger
	tracer  trace.Tracer
}

// NewService creates a test service with the required collaborators.
func NewService(
	tests crashtest.Repository,
	infos crashtest.InfoRepository,
	tenants tenant.Directory,
	relations relation.Repository,
	metrics Metrics,
	log *logger.Logger,
	tracer trace.Tracer,
) *Service {
	return &Service{
		tests:     tests,
		infos:     infos,
		relations: relations,
		validator: NewDataValidator(tenants, tests),
		metrics:   metrics,
		logger:    log.With("component", "crashtest_service"),
		tracer:    tracer,
	}
}

// FindTestByID retrieves a test by tenant and identifier.
func (s *Service) FindTestByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.Test, error) {
	if testID == uuid.Nil {
		return nil, crashtest.ErrInvalidTestID
	}

	ctx, span := s.tracer.Start(ctx, "crashtest.FindTestByID", trace.WithAttributes(
		attribute.String("test_id", testID.String()),
	))
	defer span.End()

	s.logger.Debug(ctx, "finding test by id", "test_id", testID)
	return s.tests.FindByID(ctx, tenantID, testID)
}

// FindTestByIDAsync retrieves a test on the store's asynchronous path.
// Validation failures are delivered through the future, never by blocking
// the caller.
func (s *Service) FindTestByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.Test] {
	if testID == uuid.Nil {
		return async.Resolved[*crashtest.Test](nil, crashtest.ErrInvalidTestID)
	}

	s.logger.Debug(ctx, "finding test by id async", "test_id", testID)
	return s.tests.FindByIDAsync(ctx, tenantID, testID)
}

// FindTestInfoByID retrieves the projection of a test.
func (s *Service) FindTestInfoByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.TestInfo, error) {
	if testID == uuid.Nil {
		return nil, crashtest.ErrInvalidTestID
	}

	ctx, span := s.tracer.Start(ctx, "crashtest.FindTestInfoByID", trace.WithAttributes(
		attribute.String("test_id", testID.String()),
	))
	defer span.End()

	s.logger.Debug(ctx, "finding test info by id", "test_id", testID)
	return s.infos.FindInfoByID(ctx, tenantID, testID)
}

// FindTestInfoByIDAsync retrieves the projection on the asynchronous path.
func (s *Service) FindTestInfoByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.TestInfo] {
	if testID == uuid.Nil {
		return async.Resolved[*crashtest.TestInfo](nil, crashtest.ErrInvalidTestID)
	}

	s.logger.Debug(ctx, "finding test info by id async", "test_id", testID)
	return s.infos.FindInfoByIDAsync(ctx, tenantID, testID)
}

// SaveTest validates and persists a test. A record without an id is a
// create and additionally passes the tenant quota check; validation
// failures leave the store untouched.
func (s *Service) SaveTest(ctx context.Context, t *crashtest.Test) (*crashtest.Test, error) {
	ctx, span := s.tracer.Start(ctx, "crashtest.SaveTest", trace.WithAttributes(
		attribute.String("tenant_id", t.TenantID.String()),
		attribute.String("test_name", t.Name),
	))
	defer span.End()

	if err := s.validator.ValidateSave(ctx, t); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "test validation failed")
		if errors.Is(err, crashtest.ErrQuotaExceeded) {
			s.metrics.IncQuotaRejected(ctx)
		}
		s.metrics.IncSave(ctx, false)
		s.logger.Warn(ctx, "test rejected by validation", "tenant_id", t.TenantID, "error", err)
		return nil, err
	}

	saved, err := s.tests.Save(ctx, t.TenantID, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error persisting test")
		s.metrics.IncSave(ctx, false)
		return nil, fmt.Errorf("saving test (%s): %w", t.Name, err)
	}

	span.SetAttributes(attribute.String("test_id", saved.ID.String()))
	s.metrics.IncSave(ctx, true)
	s.logger.Info(ctx, "test saved", "tenant_id", saved.TenantID, "test_id", saved.ID)
	return saved, nil
}

// DeleteTest removes a test after cleaning up its relations. A delete
// rejected by the device-profile foreign key is reported as a validation
// error naming the reference; any other storage failure propagates
// unchanged.
func (s *Service) DeleteTest(ctx context.Context, tenantID, testID uuid.UUID) error {
	if testID == uuid.Nil {
		return crashtest.ErrInvalidTestID
	}

	ctx, span := s.tracer.Start(ctx, "crashtest.DeleteTest", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("test_id", testID.String()),
	))
	defer span.End()

	if err := s.relations.DeleteEntityRelations(ctx, tenantID, testID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error deleting test relations")
		s.metrics.IncDelete(ctx, false)
		return fmt.Errorf("deleting relations of test (%s): %w", testID, err)
	}

	if err := s.tests.DeleteByID(ctx, tenantID, testID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error deleting test")
		s.metrics.IncDelete(ctx, false)

		var cv *crashtest.ConstraintViolationError
		if errors.As(err, &cv) && strings.EqualFold(cv.Constraint, constraintDefaultTestDeviceProfile) {
			return crashtest.NewValidationError("the test is referenced by device profiles and cannot be deleted")
		}
		return err
	}

	s.metrics.IncDelete(ctx, true)
	s.logger.Info(ctx, "test deleted", "tenant_id", tenantID, "test_id", testID)
	return nil
}

// FindTestsByTenantID returns one page of the tenant's tests, filtered by
// case-insensitive name prefix when the link carries a text search.
func (s *Service) FindTestsByTenantID(ctx context.Context, tenantID uuid.UUID, link paging.PageLink) (paging.PageData[crashtest.TestInfo], error) {
	var zero paging.PageData[crashtest.TestInfo]

	if tenantID == uuid.Nil {
		return zero, crashtest.ErrInvalidTenantID
	}
	if err := link.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %s", crashtest.ErrInvalidPageLink, err)
	}

	ctx, span := s.tracer.Start(ctx, "crashtest.FindTestsByTenantID", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.Int("page", link.Page),
	))
	defer span.End()

	s.logger.Debug(ctx, "finding tests by tenant", "tenant_id", tenantID, "page", link.Page)
	return s.infos.FindByTenantID(ctx, tenantID, link)
}

// DeleteTestsByTenantID removes every test owned by the tenant, page by
// page. The first failed delete aborts the purge and its error is
// returned.
func (s *Service) DeleteTestsByTenantID(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return crashtest.ErrInvalidTenantID
	}

	ctx, span := s.tracer.Start(ctx, "crashtest.DeleteTestsByTenantID", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
	))
	defer span.End()

	start := time.Now()
	err := paging.RemoveAll(ctx, tenantID,
		s.infos.FindByTenantID,
		func(ctx context.Context, tenantID uuid.UUID, info crashtest.TestInfo) error {
			return s.DeleteTest(ctx, tenantID, info.ID)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error purging tenant tests")
		return fmt.Errorf("purging tests of tenant (%s): %w", tenantID, err)
	}

	s.metrics.ObservePurgeDuration(ctx, time.Since(start))
	s.logger.Info(ctx, "tenant tests purged", "tenant_id", tenantID, "took", time.Since(start).String())
	return nil
}
