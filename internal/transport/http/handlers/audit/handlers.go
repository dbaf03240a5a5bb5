package audithandler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leavetrack/internal/domain/audit"
	"leavetrack/internal/domain/auth"
	"leavetrack/internal/transport/http/api"
	"leavetrack/internal/transport/http/middleware"
	"leavetrack/internal/transport/http/shared"
)

const exportPageSize = 500

type Handler struct {
	Service *audit.Service
	logger  *zap.Logger
}

func NewHandler(service *audit.Service, logger ...*zap.Logger) *Handler {
	h := &Handler{Service: service, logger: zap.L().Named("audit.handler")}
	if len(logger) > 0 && logger[0] != nil {
		h.logger = logger[0].Named("audit.handler")
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"
	filter := filterFrom(r)

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		h.logger.Warn("audit count failed", zap.Error(err))
	}
	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("audit list failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	filter := filterFrom(r)
	var events []audit.Event
	for offset := 0; ; offset += exportPageSize {
		page, err := h.Service.List(r.Context(), filter, false, exportPageSize, offset)
		if err != nil {
			h.logger.Error("audit export failed", zap.Error(err))
			api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
			return
		}
		events = append(events, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		h.logger.Warn("audit export header failed", zap.Error(err))
	}
	for _, evt := range events {
		row := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			h.logger.Warn("audit export row failed", zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Warn("audit export flush failed", zap.Error(err))
	}
}
