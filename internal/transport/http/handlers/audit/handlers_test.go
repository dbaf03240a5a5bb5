package audithandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavetrack/internal/domain/audit"
	"leavetrack/internal/domain/auth"
	"leavetrack/internal/transport/http/middleware"
)

func newRouter(t *testing.T, user *auth.UserContext) (http.Handler, *audit.Service) {
	t.Helper()
	svc := audit.New(audit.NewMemoryStore())
	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), *user)))
			})
		})
	}
	NewHandler(svc).RegisterRoutes(r)
	return r, svc
}

func TestListEventsAdminOnly(t *testing.T) {
	router, _ := newRouter(t, &auth.UserContext{UserID: "m1", Role: auth.RoleManager})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	router, _ = newRouter(t, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListAndExportEvents(t *testing.T) {
	router, svc := newRouter(t, &auth.UserContext{UserID: "a1", Role: auth.RoleAdmin})
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, "u1", audit.ActionLeaveCreate, "leave_request", "l1", nil, map[string]string{"status": "approved"}))
	require.NoError(t, svc.Record(ctx, "m1", audit.ActionLeaveReview, "leave_request", "l1", nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?action=leave.review", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Contains(t, rec.Body.String(), `"actorId":"m1"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)
}
