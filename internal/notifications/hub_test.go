package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.send:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(10))
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.UnregisterClient(a)
	assert.True(t, hub.IsOnline(10))
	assert.True(t, a.closed(), "unregister closes the client")
	hub.UnregisterClient(b)
	hub.UnregisterClient(b)
	assert.False(t, hub.IsOnline(10))
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(4, nil)
	assert.NoError(t, err)
}

func TestHub_SendToUserAndBroadcast(t *testing.T) {
	hub := NewHub()
	owner, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.SendToUser(1, `{"type":"project_status"}`)
	hub.BroadcastAll(`{"type":"project_published"}`)

	assert.Equal(t, []string{`{"type":"project_status"}`, `{"type":"project_published"}`}, drain(owner))
	assert.Equal(t, []string{`{"type":"project_published"}`}, drain(other))
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+3; i++ {
		client.TrySend([]byte("x"))
	}
	assert.Len(t, client.send, sendBuffer)

	queued := drain(client)
	resyncs := 0
	for _, msg := range queued {
		if msg == string(resyncNotice) {
			resyncs++
		}
	}
	assert.Equal(t, 1, resyncs, "one resync notice per backlog")

	client.Close()
	client.Close()
	client.TrySend([]byte("late"))
	assert.Empty(t, client.send)
}

func TestHub_StartWiringForwardsMessages(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := hub.Register(9, nil)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishUser(ctx, 9, "for-nine"))
	require.NoError(t, n.PublishUser(ctx, 8, "for-eight"))
	require.NoError(t, n.PublishBroadcast(ctx, "for-all"))

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case msg := <-client.send:
			got = append(got, string(msg))
		case <-timeout:
			t.Fatalf("received %v before timeout", got)
		}
	}
	assert.Equal(t, []string{"for-nine", "for-all"}, got)
}

func TestHub_ShutdownRejectsNewConnections(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.ConnectionCount())
	assert.True(t, client.closed())

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}
