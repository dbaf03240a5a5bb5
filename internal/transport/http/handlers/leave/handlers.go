package leavehandler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leavetrack/internal/domain/auth"
	"leavetrack/internal/domain/leave"
	"leavetrack/internal/domain/policy"
	"leavetrack/internal/transport/http/api"
	"leavetrack/internal/transport/http/middleware"
	"leavetrack/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	logger  *zap.Logger
}

func NewHandler(service *leave.Service, logger ...*zap.Logger) *Handler {
	h := &Handler{Service: service, logger: zap.L().Named("leave.handler")}
	if len(logger) > 0 && logger[0] != nil {
		h.logger = logger[0].Named("leave.handler")
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leaves", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveAll)).Get("/", h.handleListAll)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/mine", h.handleListMine)
		r.With(middleware.RequireRole(auth.RoleManager)).Get("/department", h.handleListDepartment)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/balance", h.handleBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/statement.pdf", h.handleStatement)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/{leaveID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Put("/{leaveID}", h.handleEdit)
		r.With(middleware.RequirePermission(auth.PermLeaveReview)).Put("/{leaveID}/status", h.handleReview)
		r.With(middleware.RequirePermission(auth.PermLeaveRead)).Post("/{leaveID}/comments", h.handleComment)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Delete("/{leaveID}", h.handleDelete)
	})
}

type leavePayload struct {
	Type      string `json:"type" validate:"required,oneof=annual sick personal"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

type reviewPayload struct {
	Status string `json:"status" validate:"required,oneof=approved rejected pending"`
	Note   string `json:"note" validate:"max=1000"`
}

type commentPayload struct {
	Text string `json:"text" validate:"required,max=1000"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	in, ok := h.decodeLeave(w, r)
	if !ok {
		return
	}
	created, err := h.Service.Submit(r.Context(), user, in)
	if err != nil {
		h.fail(w, r, err, "leave_create_failed", "failed to submit leave request")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	in, ok := h.decodeLeave(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.Edit(r.Context(), user, chi.URLParam(r, "leaveID"), in)
	if err != nil {
		h.fail(w, r, err, "leave_update_failed", "failed to update leave request")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) decodeLeave(w http.ResponseWriter, r *http.Request) (leave.SubmitInput, bool) {
	var payload leavePayload
	if !shared.DecodeJSON(w, r, &payload) {
		return leave.SubmitInput{}, false
	}
	payload.Reason = strings.TrimSpace(payload.Reason)
	v := shared.NewValidator()
	v.Struct(payload)
	var start, end time.Time
	if payload.StartDate != "" {
		start, _ = v.Date("startDate", payload.StartDate)
	}
	if payload.EndDate != "" {
		end, _ = v.Date("endDate", payload.EndDate)
	}
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return leave.SubmitInput{}, false
	}
	t, _ := policy.ParseType(payload.Type)
	return leave.SubmitInput{
		Type:      t,
		StartDate: start,
		EndDate:   end,
		Reason:    payload.Reason,
	}, true
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload reviewPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	status, _ := policy.ParseStatus(payload.Status)
	updated, err := h.Service.Review(r.Context(), user, chi.URLParam(r, "leaveID"), leave.ReviewInput{Status: status, Note: payload.Note})
	if err != nil {
		h.fail(w, r, err, "leave_review_failed", "failed to review leave request")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload commentPayload
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Text = strings.TrimSpace(payload.Text)
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	updated, err := h.Service.Comment(r.Context(), user, chi.URLParam(r, "leaveID"), payload.Text)
	if err != nil {
		h.fail(w, r, err, "leave_comment_failed", "failed to add comment")
		return
	}
	api.Created(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Delete(r.Context(), user, chi.URLParam(r, "leaveID")); err != nil {
		h.fail(w, r, err, "leave_delete_failed", "failed to delete leave request")
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "leaveID"))
	if err != nil {
		h.fail(w, r, err, "leave_get_failed", "failed to load leave request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, leave.ScopeMine)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, leave.ScopeAll)
}

func (h *Handler) handleListDepartment(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, leave.ScopeDepartment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, scope leave.Scope) {
	user, _ := middleware.GetUser(r.Context())
	q, ok := parseListQuery(w, r, scope)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	q.Limit, q.Offset = page.Limit, page.Offset

	res, err := h.Service.List(r.Context(), user, q)
	if err != nil {
		h.fail(w, r, err, "leave_list_failed", "failed to list leave requests")
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(res.Total))
	api.Success(w, res.Requests, middleware.GetRequestID(r.Context()))
}

func parseListQuery(w http.ResponseWriter, r *http.Request, scope leave.Scope) (leave.ListQuery, bool) {
	query := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", query.Get("status"), []string{string(policy.StatusPending), string(policy.StatusApproved), string(policy.StatusRejected)}, "must be pending, approved or rejected")
	v.Enum("type", query.Get("type"), []string{string(policy.TypeAnnual), string(policy.TypeSick), string(policy.TypePersonal)}, "must be annual, sick or personal")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return leave.ListQuery{}, false
	}
	status, _ := policy.ParseStatus(query.Get("status"))
	t, _ := policy.ParseType(query.Get("type"))
	return leave.ListQuery{Scope: scope, Status: status, Type: t}, true
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	summary, err := h.Service.Balance(r.Context(), user, r.URL.Query().Get("userId"))
	if err != nil {
		h.fail(w, r, err, "leave_balance_failed", "failed to load leave balance")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	scope := leave.Scope(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))))
	if scope == "" {
		scope = leave.ScopeMine
	}
	v := shared.NewValidator()
	v.Enum("format", format, []string{"csv", "xlsx"}, "must be csv or xlsx")
	v.Enum("scope", string(scope), []string{string(leave.ScopeMine), string(leave.ScopeAll), string(leave.ScopeDepartment)}, "must be mine, all or department")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	q, ok := parseListQuery(w, r, scope)
	if !ok {
		return
	}

	reqs, err := h.Service.ListAll(r.Context(), user, q)
	if err != nil {
		h.fail(w, r, err, "leave_export_failed", "failed to export leave requests")
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = leave.WriteXLSX(&buf, reqs)
	} else {
		err = leave.WriteCSV(&buf, reqs)
	}
	if err != nil {
		h.logger.Error("leave export failed", zap.String("format", format), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "leave_export_failed", "failed to export leave requests", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-requests.%s", format))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("leave export write failed", zap.Error(err))
	}
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	st, err := h.Service.Statement(r.Context(), user, r.URL.Query().Get("userId"))
	if err != nil {
		h.fail(w, r, err, "leave_statement_failed", "failed to build leave statement")
		return
	}
	var buf bytes.Buffer
	if err := leave.WriteStatementPDF(&buf, st); err != nil {
		h.logger.Error("leave statement render failed", zap.String("user_id", st.User.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "leave_statement_failed", "failed to build leave statement", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-statement-%s.pdf", st.User.ID))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("leave statement write failed", zap.Error(err))
	}
}

// fail maps domain errors to statuses. Anything unrecognised is a 500 with
// the given code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for this leave request", requestID)
	case errors.Is(err, leave.ErrBusy):
		api.Fail(w, http.StatusConflict, "leave_busy", "leave balance is being updated, retry shortly", requestID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "leave request cannot change in its current state", requestID)
	case errors.Is(err, leave.ErrInvalidRange), errors.Is(err, leave.ErrUnknownType), errors.Is(err, leave.ErrInvalidStatus),
		errors.Is(err, leave.ErrMissingReason), errors.Is(err, leave.ErrEmptyComment):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	default:
		h.logger.Error(message, zap.String("request_id", requestID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
