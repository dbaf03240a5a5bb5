package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leavetrack/internal/domain/policy"
)

func newTestService() *Service {
	return NewService(NewMemoryStore(), "test-secret", time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "pa55word", Department: "Engineering"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, RoleEmployee, user.Role)
	assert.Equal(t, policy.DefaultAllocation(), user.Allocation)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	res, err := svc.Login(ctx, "ada@example.com", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	claims, err := ParseToken("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "Engineering", claims.Department)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "pa55word")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileAllocationAndRole(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, RegisterInput{Name: "Bo", Email: "bo@example.com", Password: "secret"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: "Bo B", Department: "Sales"})
	require.NoError(t, err)
	assert.Equal(t, "Bo B", updated.Name)
	assert.Equal(t, "Sales", updated.Department)

	alloc := policy.Allocation{Annual: 25, Sick: 12, Personal: 5}
	updated, err = svc.UpdateAllocation(ctx, user.ID, alloc)
	require.NoError(t, err)
	assert.Equal(t, alloc, updated.Allocation)

	updated, err = svc.UpdateRole(ctx, user.ID, RoleManager)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, updated.Role)

	_, err = svc.UpdateRole(ctx, user.ID, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.UpdateAllocation(ctx, "missing", alloc)
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := svc.UserIDsByDepartment(ctx, "Sales")
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, ids)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))

	list, err := svc.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, RoleAdmin, list.Users[0].Role)
}
