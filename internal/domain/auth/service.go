package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leavetrack/internal/domain/policy"
)

type Service struct {
	Store    StoreAPI
	secret   string
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewService(store StoreAPI, secret string, tokenTTL time.Duration, logger ...*zap.Logger) *Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &Service{Store: store, secret: secret, tokenTTL: tokenTTL, logger: l}
}

// Register creates an employee account with the standard allocation.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	return s.create(ctx, in, RoleEmployee)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role string) (User, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(in.Department),
		Allocation:   policy.DefaultAllocation(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, ErrEmailTaken) {
			s.logger.Error("create user failed", zap.String("email", user.Email), zap.Error(err))
		}
		return User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", role))
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", zap.String("user_id", user.ID))
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expires, err := GenerateToken(s.secret, Claims{
		UserID:     user.ID,
		Role:       user.Role,
		Department: user.Department,
	}, s.tokenTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	return s.Store.UserByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.Department = strings.TrimSpace(update.Department)
	if err := s.Store.UpdateProfile(ctx, userID, update); err != nil {
		return User{}, err
	}
	return s.Store.UserByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) (UserListResult, error) {
	return s.Store.ListUsers(ctx, limit, offset)
}

func (s *Service) UpdateAllocation(ctx context.Context, userID string, allocation policy.Allocation) (User, error) {
	if err := s.Store.UpdateAllocation(ctx, userID, allocation); err != nil {
		return User{}, err
	}
	s.logger.Info("allocation updated",
		zap.String("user_id", userID),
		zap.Int("annual", allocation.Annual),
		zap.Int("sick", allocation.Sick),
		zap.Int("personal", allocation.Personal),
	)
	return s.Store.UserByID(ctx, userID)
}

func (s *Service) UpdateRole(ctx context.Context, userID, role string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	if err := s.Store.UpdateRole(ctx, userID, role); err != nil {
		return User{}, err
	}
	s.logger.Info("role updated", zap.String("user_id", userID), zap.String("role", role))
	return s.Store.UserByID(ctx, userID)
}

// EnsureAdmin creates the seed administrator when it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	if _, err := s.Store.UserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := s.create(ctx, RegisterInput{Name: "Administrator", Email: email, Password: password}, RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

func (s *Service) UserByID(ctx context.Context, id string) (User, error) {
	return s.Store.UserByID(ctx, id)
}

func (s *Service) UserIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	return s.Store.UserIDsByDepartment(ctx, department)
}
