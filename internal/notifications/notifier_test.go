package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "payload"))
	assert.NoError(t, n.Subscribe(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "showcase:notify:user:1", UserChannel(1))
	assert.Equal(t, "showcase:notify:user:100", UserChannel(100))

	id, ok := ParseUserChannel(UserChannel(42))
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{BroadcastChannel, "showcase:notify:user:", "showcase:notify:user:abc", "showcase:notify:user:0", "other:1"} {
		_, ok := ParseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_SubscribeReceivesAndStopsOnCancel(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type message struct{ channel, payload string }
	received := make(chan message, 4)
	require.NoError(t, n.Subscribe(ctx, func(channel, payload string) {
		received <- message{channel, payload}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 7, "hello"))
	select {
	case msg := <-received:
		assert.Equal(t, UserChannel(7), msg.channel)
		assert.Equal(t, "hello", msg.payload)
	case <-time.After(time.Second):
		t.Fatal("user message not delivered")
	}

	require.NoError(t, n.PublishBroadcast(context.Background(), "everyone"))
	select {
	case msg := <-received:
		assert.Equal(t, BroadcastChannel, msg.channel)
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	_ = n.PublishUser(context.Background(), 7, "after-cancel")
	assert.Never(t, func() bool { return len(received) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 2)
	require.NoError(t, n.Subscribe(ctx, func(_ string, payload string) {
		if payload == "boom" {
			panic("bad handler")
		}
		got <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "boom"))
	require.NoError(t, n.PublishUser(context.Background(), 1, "fine"))
	select {
	case payload := <-got:
		assert.Equal(t, "fine", payload)
	case <-time.After(time.Second):
		t.Fatal("subscriber stopped after panic")
	}
}
