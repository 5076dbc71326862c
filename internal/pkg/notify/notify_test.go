package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacss32/dalitmurasu-sub000/internal/pkg/queue"
)

func TestQueueDispatcher(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	q := queue.NewQueue(client, "notifications")
	d := NewQueueDispatcher(q)

	expiry := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.SendSubscriptionConfirmation(ctx, "a@x.com", "Anbu", "Yearly", 99900, expiry))
	require.NoError(t, d.SendExpiryReminder(ctx, "b@x.com", "Bala", "Monthly", expiry))
	require.NoError(t, d.SendPostExpiryNotice(ctx, "c@x.com", "Chitra", "Monthly"))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)

	msg, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.KindSubscriptionConfirmation, msg.Kind)
	assert.Equal(t, int64(99900), msg.Amount)
	assert.False(t, msg.EnqueuedAt.IsZero())

	msg, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.KindExpiryReminder, msg.Kind)
	assert.True(t, expiry.Equal(msg.ExpiryDate))

	msg, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.KindPostExpiryNotice, msg.Kind)
	assert.Equal(t, "Chitra", msg.Name)
}

func TestQueueDispatcher_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	d := NewQueueDispatcher(queue.NewQueue(client, "notifications"))
	err = d.SendPostExpiryNotice(context.Background(), "c@x.com", "Chitra", "Monthly")
	assert.Error(t, err)
}
