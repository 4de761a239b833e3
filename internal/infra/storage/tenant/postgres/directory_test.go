package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashlab/crashlab/internal/domain/tenant"
	"github.com/crashlab/crashlab/internal/infra/storage/testutil"
)

func TestDirectoryStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := testutil.SetupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDirectoryStore(pool, testutil.NoOpTracer())

	id := uuid.New()
	_, err := pool.Exec(ctx,
		"INSERT INTO tenant (id, name, max_tests) VALUES ($1, $2, $3)",
		id, "acme", 42)
	require.NoError(t, err)

	t.Run("find by id", func(t *testing.T) {
		got, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "acme", got.Name)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("find absent tenant", func(t *testing.T) {
		_, err := store.FindByID(ctx, uuid.New())
		require.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})

	t.Run("profile configuration", func(t *testing.T) {
		profile, err := store.ProfileConfiguration(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(42), profile.MaxTests)
	})

	t.Run("profile of absent tenant", func(t *testing.T) {
		_, err := store.ProfileConfiguration(ctx, uuid.New())
		require.ErrorIs(t, err, tenant.ErrProfileNotFound)
	})
}
