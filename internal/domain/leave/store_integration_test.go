package leave

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavetrack/internal/domain/policy"
	"leavetrack/internal/platform/db"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Migrate(ctx, pool, migrationsDir(t)))

	ownerID := uuid.NewString()
	_, err = pool.Exec(ctx, `
    INSERT INTO users (id, name, email, password_hash, role, department)
    VALUES ($1, 'Store Test', $2, 'x', 'employee', 'eng')
  `, ownerID, ownerID+"@example.com")
	require.NoError(t, err)

	store := NewStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	req := LeaveRequest{
		ID: uuid.NewString(), OwnerID: ownerID, Type: policy.TypeAnnual,
		StartDate: day(0), EndDate: day(2), Days: 3, Reason: "integration",
		Status: policy.StatusApproved, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateRequest(ctx, req))
	require.NoError(t, store.AddComment(ctx, req.ID, Comment{ID: uuid.NewString(), UserID: ownerID, Text: "hi", CreatedAt: now}))

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Days, got.Days)
	assert.True(t, got.StartDate.Equal(req.StartDate))
	assert.Len(t, got.Comments, 1)

	got.Status = policy.StatusRejected
	got.ReviewNote = "no"
	require.NoError(t, store.UpdateRequest(ctx, got))

	list, err := store.ListRequests(ctx, ListFilter{OwnerIDs: []string{ownerID}, Status: policy.StatusRejected, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "no", list.Requests[0].ReviewNote)

	owned, err := store.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	require.NoError(t, store.DeleteRequest(ctx, req.ID))
	_, err = store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("TEST_MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "../../../migrations"
}
