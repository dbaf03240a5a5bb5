package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leavetrack/internal/domain/policy"
	"leavetrack/internal/platform/querier"
)

const uniqueViolation = "23505"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const userColumns = `id, name, email, password_hash, role, department, alloc_annual, alloc_sick, alloc_personal, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Department,
		&u.Allocation.Annual, &u.Allocation.Sick, &u.Allocation.Personal, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, user User) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO users (id, name, email, password_hash, role, department, alloc_annual, alloc_sick, alloc_personal, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Role, user.Department,
		user.Allocation.Annual, user.Allocation.Sick, user.Allocation.Personal, user.CreatedAt, user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", strings.ToLower(email)))
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) (UserListResult, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM users").Scan(&total); err != nil {
		return UserListResult{}, err
	}

	rows, err := s.DB.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, email LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return UserListResult{}, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return UserListResult{}, err
		}
		users = append(users, u)
	}
	return UserListResult{Users: users, Total: total}, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET name = $1, department = $2, updated_at = now() WHERE id = $3
  `, update.Name, update.Department, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAllocation(ctx context.Context, id string, allocation policy.Allocation) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET alloc_annual = $1, alloc_sick = $2, alloc_personal = $3, updated_at = now() WHERE id = $4
  `, allocation.Annual, allocation.Sick, allocation.Personal, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateRole(ctx context.Context, id, role string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE users SET role = $1, updated_at = now() WHERE id = $2", role, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UserIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM users WHERE department = $1 ORDER BY id", department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
