package inspector

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/vrhand/internal/core/events/bus"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(payload, &f))
	return f
}

func TestBroadcastsEvents(t *testing.T) {
	b := bus.New()
	s, err := New(b)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	payload := bus.HandPayload{Hand: "left", Attempts: 3}
	require.NoError(t, b.Publish(bus.NewEvent(bus.HandTrackingExhausted, "hand.left", payload, nil)))

	f := readFrame(t, conn)
	assert.Equal(t, bus.HandTrackingExhausted, f.Type)
	assert.Equal(t, "hand.left", f.Source)
	data, ok := f.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "left", data["hand"])
	assert.Equal(t, float64(3), data["attempts"])
}

func TestFiltersByPrefix(t *testing.T) {
	b := bus.New()
	s, err := New(b)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "?events=grab.,controller.")
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(bus.NewEvent(bus.HandSpawned, "hand.left", bus.HandPayload{Hand: "left"}, nil)))
	require.NoError(t, b.Publish(bus.NewEvent(bus.GrabStarted, "hand.left", bus.GrabPayload{Hand: "left", Actor: "cube"}, nil)))

	f := readFrame(t, conn)
	assert.Equal(t, bus.GrabStarted, f.Type)
}

func TestClientDisconnectIsForgotten(t *testing.T) {
	b := bus.New()
	s, err := New(b)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(bus.NewEvent(bus.HandSpawned, "hand.left", nil, nil)))
}

func TestStartAndStop(t *testing.T) {
	b := bus.New()
	s, err := New(b)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background(), "127.0.0.1:0"))
	require.NotEmpty(t, s.Addr())

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Zero(t, s.Clients())

	require.NoError(t, b.Publish(bus.NewEvent(bus.HandSpawned, "hand.left", nil, nil)))
	assert.Zero(t, s.Dropped())
}
