package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leavetrack/internal/requestctx"
)

func TestRecordCapturesRequestContext(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store, zap.NewNop())

	ctx := requestctx.WithRequestID(context.Background(), "req-1")
	ctx = requestctx.WithClientIP(ctx, "10.0.0.1")

	require.NoError(t, svc.Record(ctx, "u1", ActionLeaveCreate, "leave_request", "l1", nil, map[string]string{"status": "approved"}))
	require.NoError(t, svc.Record(context.Background(), "u2", ActionLeaveDelete, "leave_request", "l2", map[string]string{"status": "pending"}, nil))

	total, err := svc.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	events, err := svc.List(ctx, Filter{Action: ActionLeaveCreate}, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "10.0.0.1", events[0].IP)
	assert.JSONEq(t, `{"status":"approved"}`, string(events[0].After))
	assert.Empty(t, events[0].Before)

	events, err = svc.List(ctx, Filter{ActorUser: "u2"}, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Before)
}
