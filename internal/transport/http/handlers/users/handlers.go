package usershandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leavetrack/internal/domain/auth"
	"leavetrack/internal/domain/policy"
	"leavetrack/internal/transport/http/api"
	"leavetrack/internal/transport/http/middleware"
	"leavetrack/internal/transport/http/shared"
)

// BalanceInvalidator drops cached leave balances after an allocation change.
type BalanceInvalidator interface {
	InvalidateBalance(ctx context.Context, userID string)
}

type Handler struct {
	Service  *auth.Service
	Balances BalanceInvalidator
	logger   *zap.Logger
}

func NewHandler(service *auth.Service, balances BalanceInvalidator, logger ...*zap.Logger) *Handler {
	h := &Handler{Service: service, Balances: balances, logger: zap.L().Named("users.handler")}
	if len(logger) > 0 && logger[0] != nil {
		h.logger = logger[0].Named("users.handler")
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.With(middleware.RequireAuth).Get("/profile", h.handleProfile)
		r.With(middleware.RequireAuth).Put("/profile", h.handleUpdateProfile)
		r.With(middleware.RequirePermission(auth.PermUsersManage)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermUsersManage)).Put("/{userID}/allocation", h.handleUpdateAllocation)
		r.With(middleware.RequirePermission(auth.PermUsersManage)).Put("/{userID}/role", h.handleUpdateRole)
	})
}

type registerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Department string `json:"department" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Department string `json:"department" validate:"max=100"`
}

type allocationRequest struct {
	Annual   int `json:"annual" validate:"gte=0,max=366"`
	Sick     int `json:"sick" validate:"gte=0,max=366"`
	Personal int `json:"personal" validate:"gte=0,max=366"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=employee manager admin"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if payload.Password != "" {
		if err := validatePassword(payload.Password); err != nil {
			v.Add("password", err.Error())
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	user, err := h.Service.Register(r.Context(), auth.RegisterInput{
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Department: payload.Department,
	})
	if err != nil {
		h.fail(w, r, err, "register_failed", "failed to register user")
		return
	}
	api.Created(w, user, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	res, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.fail(w, r, err, "login_failed", "failed to log in")
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	profile, err := h.Service.Profile(r.Context(), user.UserID)
	if err != nil {
		h.fail(w, r, err, "profile_failed", "failed to load profile")
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload profileRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	profile, err := h.Service.UpdateProfile(r.Context(), user.UserID, auth.ProfileUpdate{Name: payload.Name, Department: payload.Department})
	if err != nil {
		h.fail(w, r, err, "profile_update_failed", "failed to update profile")
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	res, err := h.Service.ListUsers(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "users_list_failed", "failed to list users")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(res.Total))
	api.Success(w, res.Users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	var payload allocationRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	userID := chi.URLParam(r, "userID")
	user, err := h.Service.UpdateAllocation(r.Context(), userID, policy.Allocation{
		Annual:   payload.Annual,
		Sick:     payload.Sick,
		Personal: payload.Personal,
	})
	if err != nil {
		h.fail(w, r, err, "allocation_update_failed", "failed to update allocation")
		return
	}
	if h.Balances != nil {
		h.Balances.InvalidateBalance(r.Context(), userID)
	}
	api.Success(w, user, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var payload roleRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	user, err := h.Service.UpdateRole(r.Context(), chi.URLParam(r, "userID"), payload.Role)
	if err != nil {
		h.fail(w, r, err, "role_update_failed", "failed to update role")
		return
	}
	api.Success(w, user, middleware.GetRequestID(r.Context()))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case errors.Is(err, auth.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
	case errors.Is(err, auth.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
	case errors.Is(err, auth.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid role", requestID)
	default:
		h.logger.Error(message, zap.String("request_id", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("must contain upper-case, lower-case and numeric characters")
	}
	return nil
}
