package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type summary struct {
	UserID string `json:"userId"`
	Days   int    `json:"days"`
}

func TestJSONCache(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	c := NewJSONCache(client)
	key := "leave:balance:u1"

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet(key).RedisNil()
		var out summary
		ok, err := c.GetJSON(ctx, key, &out)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set then hit", func(t *testing.T) {
		mock.ExpectSet(key, `{"userId":"u1","days":4}`, time.Minute).SetVal("OK")
		require.NoError(t, c.SetJSON(ctx, key, summary{UserID: "u1", Days: 4}, time.Minute))

		mock.ExpectGet(key).SetVal(`{"userId":"u1","days":4}`)
		var out summary
		ok, err := c.GetJSON(ctx, key, &out)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 4, out.Days)
	})

	t.Run("backend error", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))
		var out summary
		ok, err := c.GetJSON(ctx, key, &out)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectDel(key).SetVal(1)
		require.NoError(t, c.Delete(ctx, key))
		require.NoError(t, c.Delete(ctx))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, 10*time.Second, zap.NewNop())
	l.retry = time.Millisecond
	l.newToken = func() string { return "tok" }
	return l, mock
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	l, mock := newTestLocker(t)

	mock.ExpectSetNX("leave:lock:u1:annual", "tok", 10*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"leave:lock:u1:annual"}, "tok").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), "leave:lock:u1:annual")
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerRetriesWhileHeld(t *testing.T) {
	l, mock := newTestLocker(t)

	mock.ExpectSetNX("k", "tok", 10*time.Second).SetVal(false)
	mock.ExpectSetNX("k", "tok", 10*time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"k"}, "tok").SetVal(int64(1))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerGivesUpWithContext(t *testing.T) {
	l, mock := newTestLocker(t)
	l.retry = time.Second

	mock.ExpectSetNX("k", "tok", 10*time.Second).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPingWithoutClient(t *testing.T) {
	var r *Redis
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
