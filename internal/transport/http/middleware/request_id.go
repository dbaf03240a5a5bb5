package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"leavetrack/internal/requestctx"
	"leavetrack/internal/transport/http/shared"
)

// RequestID tags the request with an id (reusing X-Request-ID when the
// caller sent one) and remembers the client address for the audit trail.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithRequestID(r.Context(), reqID)
		ctx = requestctx.WithClientIP(ctx, shared.RemoteIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
