package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

// Integration tests run when TOOLTIME_TEST_POSTGRES_DSN points at a migrated database.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TOOLTIME_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TOOLTIME_TEST_POSTGRES_DSN is not set; skipping Postgres integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestUserRepository_SessionSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool(t))

	user := &domain.User{
		Name:         "Pat Plumber",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusActive,
	}
	require.NoError(t, repo.CreateWithCompany(ctx, "Pat's Plumbing", user))
	require.NotEmpty(t, user.CompanyID)

	sid, err := repo.GetActiveSessionID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sid)

	first := "sid-1"
	require.NoError(t, repo.SetActiveSessionID(ctx, user.ID, &first))
	sid, err = repo.GetActiveSessionID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, sid)
	assert.Equal(t, first, *sid)

	require.NoError(t, repo.SetActiveSessionID(ctx, user.ID, nil))
	sid, err = repo.GetActiveSessionID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sid)

	version, err := repo.IncrementTokenVersion(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion+1, version)
}

func TestUserRepository_UnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool(t))

	_, err := repo.GetActiveSessionID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	sid := "sid"
	assert.ErrorIs(t, repo.SetActiveSessionID(ctx, uuid.NewString(), &sid), pgx.ErrNoRows)
}

func TestUserRepository_NotConfigured(t *testing.T) {
	repo := NewUserRepository(nil)
	_, err := repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, repo.SetActiveSessionID(context.Background(), "x", nil), ErrNotConfigured)
}
