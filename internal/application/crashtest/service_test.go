package crashtest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/crashlab/crashlab/internal/domain/crashtest"
	"github.com/crashlab/crashlab/internal/domain/tenant"
	"github.com/crashlab/crashlab/pkg/common/async"
	"github.com/crashlab/crashlab/pkg/common/logger"
	"github.com/crashlab/crashlab/pkg/common/paging"
)

type mockTestRepository struct{ mock.Mock }

func (m *mockTestRepository) FindByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.Test, error) {
	args := m.Called(ctx, tenantID, testID)
	if t := args.Get(0); t != nil {
		return t.(*crashtest.Test), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTestRepository) FindByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.Test] {
	args := m.Called(ctx, tenantID, testID)
	return args.Get(0).(*async.Future[*crashtest.Test])
}

func (m *mockTestRepository) Save(ctx context.Context, tenantID uuid.UUID, test *crashtest.Test) (*crashtest.Test, error) {
	args := m.Called(ctx, tenantID, test)
	if t := args.Get(0); t != nil {
		return t.(*crashtest.Test), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTestRepository) DeleteByID(ctx context.Context, tenantID, testID uuid.UUID) error {
	args := m.Called(ctx, tenantID, testID)
	return args.Error(0)
}

func (m *mockTestRepository) CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

type mockInfoRepository struct{ mock.Mock }

func (m *mockInfoRepository) FindInfoByID(ctx context.Context, tenantID, testID uuid.UUID) (*crashtest.TestInfo, error) {
	args := m.Called(ctx, tenantID, testID)
	if i := args.Get(0); i != nil {
		return i.(*crashtest.TestInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockInfoRepository) FindInfoByIDAsync(ctx context.Context, tenantID, testID uuid.UUID) *async.Future[*crashtest.TestInfo] {
	args := m.Called(ctx, tenantID, testID)
	return args.Get(0).(*async.Future[*crashtest.TestInfo])
}

func (m *mockInfoRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID, link paging.PageLink) (paging.PageData[crashtest.TestInfo], error) {
	args := m.Called(ctx, tenantID, link)
	return args.Get(0).(paging.PageData[crashtest.TestInfo]), args.Error(1)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*tenant.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectory) ProfileConfiguration(ctx context.Context, id uuid.UUID) (*tenant.Profile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*tenant.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRelationRepository struct{ mock.Mock }

func (m *mockRelationRepository) DeleteEntityRelations(ctx context.Context, tenantID, entityID uuid.UUID) error {
	args := m.Called(ctx, tenantID, entityID)
	return args.Error(0)
}

type serviceMocks struct {
	tests     *mockTestRepository
	infos     *mockInfoRepository
	tenants   *mockDirectory
	relations *mockRelationRepository
}

func newTestService() (*Service, serviceMocks) {
	m := serviceMocks{
		tests:     new(mockTestRepository),
		infos:     new(mockInfoRepository),
		tenants:   new(mockDirectory),
		relations: new(mockRelationRepository),
	}
	svc := NewService(
		m.tests, m.infos, m.tenants, m.relations,
		NopMetrics{}, logger.Noop(), noop.NewTracerProvider().Tracer("test"),
	)
	return svc, m
}

func knownTenant(m serviceMocks, id uuid.UUID) {
	m.tenants.On("FindByID", mock.Anything, id).Return(&tenant.Tenant{ID: id, Name: "acme"}, nil)
}

func TestSaveTest_CreatesWithinQuota(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	knownTenant(m, tenantID)
	m.tenants.On("ProfileConfiguration", mock.Anything, tenantID).Return(&tenant.Profile{MaxTests: 10}, nil)
	m.tests.On("CountByTenantID", mock.Anything, tenantID).Return(int64(3), nil)

	input := &crashtest.Test{TenantID: tenantID, Name: "frontal collision", NrOfVehicles: 2}
	saved := *input
	saved.ID = uuid.New()
	m.tests.On("Save", mock.Anything, tenantID, input).Return(&saved, nil)

	got, err := svc.SaveTest(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.True(t, got.Equal(&saved))
	m.tests.AssertExpectations(t)
}

func TestSaveTest_RejectsEmptyName(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.SaveTest(context.Background(), &crashtest.Test{TenantID: uuid.New()})

	var ve *crashtest.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "test name should be specified", ve.Reason)
	m.tests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	m.tenants.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSaveTest_RejectsMissingTenant(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.SaveTest(context.Background(), &crashtest.Test{Name: "rollover"})

	var ve *crashtest.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "test should be assigned to tenant", ve.Reason)
	m.tests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveTest_RejectsUnknownTenant(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	m.tenants.On("FindByID", mock.Anything, tenantID).Return(nil, tenant.ErrTenantNotFound)

	_, err := svc.SaveTest(context.Background(), &crashtest.Test{TenantID: tenantID, Name: "side impact"})

	var ve *crashtest.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "test references a non-existent tenant", ve.Reason)
	m.tests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveTest_RejectsCreateAtQuotaCeiling(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	knownTenant(m, tenantID)
	m.tenants.On("ProfileConfiguration", mock.Anything, tenantID).Return(&tenant.Profile{MaxTests: 5}, nil)
	m.tests.On("CountByTenantID", mock.Anything, tenantID).Return(int64(5), nil)

	_, err := svc.SaveTest(context.Background(), &crashtest.Test{TenantID: tenantID, Name: "rear impact"})

	require.ErrorIs(t, err, crashtest.ErrQuotaExceeded)
	m.tests.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveTest_UpdateSkipsQuotaCheck(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	knownTenant(m, tenantID)

	existing := &crashtest.Test{ID: uuid.New(), TenantID: tenantID, Name: "pole test"}
	m.tests.On("Save", mock.Anything, tenantID, existing).Return(existing, nil)

	_, err := svc.SaveTest(context.Background(), existing)

	require.NoError(t, err)
	m.tenants.AssertNotCalled(t, "ProfileConfiguration", mock.Anything, mock.Anything)
	m.tests.AssertNotCalled(t, "CountByTenantID", mock.Anything, mock.Anything)
}

func TestSaveTest_StoreFailureWrapped(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	knownTenant(m, tenantID)
	m.tenants.On("ProfileConfiguration", mock.Anything, tenantID).Return(&tenant.Profile{MaxTests: 10}, nil)
	m.tests.On("CountByTenantID", mock.Anything, tenantID).Return(int64(0), nil)

	storeErr := errors.New("connection reset")
	m.tests.On("Save", mock.Anything, tenantID, mock.Anything).Return(nil, storeErr)

	_, err := svc.SaveTest(context.Background(), &crashtest.Test{TenantID: tenantID, Name: "overlap"})

	require.ErrorIs(t, err, storeErr)
}

func TestFindTestByID(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	want := &crashtest.Test{ID: testID, TenantID: tenantID, Name: "barrier"}
	m.tests.On("FindByID", mock.Anything, tenantID, testID).Return(want, nil)

	got, err := svc.FindTestByID(context.Background(), tenantID, testID)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestFindTestByID_InvalidID(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.FindTestByID(context.Background(), uuid.New(), uuid.Nil)

	require.ErrorIs(t, err, crashtest.ErrInvalidTestID)
	m.tests.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindTestByIDAsync_InvalidIDResolvesImmediately(t *testing.T) {
	svc, _ := newTestService()

	future := svc.FindTestByIDAsync(context.Background(), uuid.New(), uuid.Nil)

	select {
	case <-future.Done():
	default:
		t.Fatal("future for an invalid id should already be resolved")
	}
	_, err := future.Wait(context.Background())
	require.ErrorIs(t, err, crashtest.ErrInvalidTestID)
}

func TestFindTestByIDAsync_DelegatesToStore(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	want := &crashtest.Test{ID: testID, TenantID: tenantID, Name: "barrier"}
	m.tests.On("FindByIDAsync", mock.Anything, tenantID, testID).
		Return(async.Resolved(want, nil))

	got, err := svc.FindTestByIDAsync(context.Background(), tenantID, testID).Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestFindTestInfoByID(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	want := &crashtest.TestInfo{ID: testID, TenantID: tenantID, Name: "barrier"}
	m.infos.On("FindInfoByID", mock.Anything, tenantID, testID).Return(want, nil)

	got, err := svc.FindTestInfoByID(context.Background(), tenantID, testID)
	require.NoError(t, err)
	assert.True(t, got.Equal(*want))
}

func TestFindTestInfoByIDAsync_InvalidID(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.FindTestInfoByIDAsync(context.Background(), uuid.New(), uuid.Nil).Wait(context.Background())
	require.ErrorIs(t, err, crashtest.ErrInvalidTestID)
}

func TestDeleteTest_RemovesRelationsThenRecord(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, testID).Return(nil)
	m.tests.On("DeleteByID", mock.Anything, tenantID, testID).Return(nil)

	require.NoError(t, svc.DeleteTest(context.Background(), tenantID, testID))
	m.relations.AssertExpectations(t)
	m.tests.AssertExpectations(t)
}

func TestDeleteTest_InvalidID(t *testing.T) {
	svc, m := newTestService()

	err := svc.DeleteTest(context.Background(), uuid.New(), uuid.Nil)

	require.ErrorIs(t, err, crashtest.ErrInvalidTestID)
	m.relations.AssertNotCalled(t, "DeleteEntityRelations", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteTest_DeviceProfileReferenceTranslated(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, testID).Return(nil)
	m.tests.On("DeleteByID", mock.Anything, tenantID, testID).Return(&crashtest.ConstraintViolationError{
		Constraint: "fk_default_test_device_profile",
		Err:        errors.New("update or delete violates foreign key"),
	})

	err := svc.DeleteTest(context.Background(), tenantID, testID)

	var ve *crashtest.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "the test is referenced by device profiles and cannot be deleted", ve.Reason)
}

func TestDeleteTest_OtherConstraintPropagates(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	cause := &crashtest.ConstraintViolationError{Constraint: "fk_something_else", Err: errors.New("boom")}
	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, testID).Return(nil)
	m.tests.On("DeleteByID", mock.Anything, tenantID, testID).Return(cause)

	err := svc.DeleteTest(context.Background(), tenantID, testID)

	var cv *crashtest.ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "fk_something_else", cv.Constraint)
	var ve *crashtest.ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestDeleteTest_RelationFailureStopsDelete(t *testing.T) {
	svc, m := newTestService()
	tenantID, testID := uuid.New(), uuid.New()
	relErr := errors.New("relation store down")
	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, testID).Return(relErr)

	err := svc.DeleteTest(context.Background(), tenantID, testID)

	require.ErrorIs(t, err, relErr)
	m.tests.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindTestsByTenantID(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	link := paging.PageLink{Page: 0, PageSize: 10, SortOrder: paging.SortAsc}
	want := paging.NewPageData([]crashtest.TestInfo{{ID: uuid.New(), TenantID: tenantID, Name: "a"}}, link, 1)
	m.infos.On("FindByTenantID", mock.Anything, tenantID, link).Return(want, nil)

	got, err := svc.FindTestsByTenantID(context.Background(), tenantID, link)
	require.NoError(t, err)
	assert.Equal(t, want.TotalElements, got.TotalElements)
	assert.Len(t, got.Data, 1)
}

func TestFindTestsByTenantID_InvalidLink(t *testing.T) {
	svc, m := newTestService()

	_, err := svc.FindTestsByTenantID(context.Background(), uuid.New(), paging.PageLink{Page: 0, PageSize: 0})

	require.ErrorIs(t, err, crashtest.ErrInvalidPageLink)
	m.infos.AssertNotCalled(t, "FindByTenantID", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindTestsByTenantID_InvalidTenant(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.FindTestsByTenantID(context.Background(), uuid.Nil, paging.NewPageLink(0, 10))
	require.ErrorIs(t, err, crashtest.ErrInvalidTenantID)
}

func TestDeleteTestsByTenantID_PurgesAllPages(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()

	first := make([]crashtest.TestInfo, paging.DefaultPageSize)
	for i := range first {
		first[i] = crashtest.TestInfo{ID: uuid.New(), TenantID: tenantID}
	}
	second := []crashtest.TestInfo{
		{ID: uuid.New(), TenantID: tenantID},
		{ID: uuid.New(), TenantID: tenantID},
	}
	total := int64(len(first) + len(second))

	link0 := paging.NewPageLink(0, paging.DefaultPageSize)
	link1 := link0.Next()
	m.infos.On("FindByTenantID", mock.Anything, tenantID, link0).
		Return(paging.NewPageData(first, link0, total), nil).Once()
	m.infos.On("FindByTenantID", mock.Anything, tenantID, link1).
		Return(paging.NewPageData(second, link1, total), nil).Once()

	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, mock.Anything).Return(nil)
	m.tests.On("DeleteByID", mock.Anything, tenantID, mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteTestsByTenantID(context.Background(), tenantID))

	m.infos.AssertExpectations(t)
	m.tests.AssertNumberOfCalls(t, "DeleteByID", int(total))
}

func TestDeleteTestsByTenantID_FirstFailureAborts(t *testing.T) {
	svc, m := newTestService()
	tenantID := uuid.New()
	infos := []crashtest.TestInfo{
		{ID: uuid.New(), TenantID: tenantID},
		{ID: uuid.New(), TenantID: tenantID},
		{ID: uuid.New(), TenantID: tenantID},
	}
	link := paging.NewPageLink(0, paging.DefaultPageSize)
	m.infos.On("FindByTenantID", mock.Anything, tenantID, link).
		Return(paging.NewPageData(infos, link, int64(len(infos))), nil)

	m.relations.On("DeleteEntityRelations", mock.Anything, tenantID, mock.Anything).Return(nil)
	deleteErr := errors.New("disk on fire")
	m.tests.On("DeleteByID", mock.Anything, tenantID, infos[0].ID).Return(nil).Once()
	m.tests.On("DeleteByID", mock.Anything, tenantID, infos[1].ID).Return(deleteErr).Once()

	err := svc.DeleteTestsByTenantID(context.Background(), tenantID)

	require.ErrorIs(t, err, deleteErr)
	m.tests.AssertNotCalled(t, "DeleteByID", mock.Anything, tenantID, infos[2].ID)
}

func TestDeleteTestsByTenantID_InvalidTenant(t *testing.T) {
	svc, m := newTestService()

	err := svc.DeleteTestsByTenantID(context.Background(), uuid.Nil)

	require.ErrorIs(t, err, crashtest.ErrInvalidTenantID)
	m.infos.AssertNotCalled(t, "FindByTenantID", mock.Anything, mock.Anything, mock.Anything)
}
