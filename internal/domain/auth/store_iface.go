package auth

import (
	"context"

	"leavetrack/internal/domain/policy"
)

type StoreAPI interface {
	CreateUser(ctx context.Context, user User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, limit, offset int) (UserListResult, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	UpdateAllocation(ctx context.Context, id string, allocation policy.Allocation) error
	UpdateRole(ctx context.Context, id, role string) error
	UserIDsByDepartment(ctx context.Context, department string) ([]string, error)
}
