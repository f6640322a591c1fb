package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"showcase/internal/models"
	"showcase/internal/service"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketDeliversModerationEvents(t *testing.T) {
	env := newTestEnv(t)
	project := submitPending(env)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })

	resp := env.do(http.MethodPost, "/api/ws/ticket", env.owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, resp)["ticket"].(string)

	url := fmt.Sprintf("ws://%s/api/ws?ticket=%s", ln.Addr().String(), ticket)
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])
	assert.EqualValues(t, env.owner.ID, hello["user_id"])
	assert.True(t, env.srv.hub.IsOnline(env.owner.ID))

	// the ticket was consumed by the upgrade
	_, _, err = gorillaws.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/admin/projects/%d/approve", project.ID), env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	seen := map[string]service.ProjectEvent{}
	for len(seen) < 2 {
		var event service.ProjectEvent
		require.NoError(t, conn.ReadJSON(&event))
		seen[event.Type] = event
	}

	status := seen["project_status"]
	assert.Equal(t, project.ID, status.ProjectID)
	assert.Equal(t, models.ActionApprove, status.Action)
	assert.Equal(t, models.ProjectStatusLive, status.Status)

	published := seen["project_published"]
	assert.Equal(t, project.Slug, published.Slug)
}
