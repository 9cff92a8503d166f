package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Tick int `json:"tick"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(url, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesClients(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Close()

	a := dial(t, ts.URL)
	b := dial(t, ts.URL)
	require.Eventually(t, func() bool { return s.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Publish(frame{Tick: 6}))

	for _, conn := range []*websocket.Conn{a, b} {
		var got frame
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, 6, got.Tick)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Close()

	conn := dial(t, ts.URL)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSlowClientIsDropped(t *testing.T) {
	s := NewServer("")
	c := &client{send: make(chan []byte, 1)}
	require.True(t, s.add(c))

	require.NoError(t, s.Publish(frame{Tick: 1}))
	assert.Equal(t, 1, s.Clients())

	// Nothing drains the queue, so the second frame overflows it.
	require.NoError(t, s.Publish(frame{Tick: 2}))
	assert.Equal(t, 0, s.Clients())

	_, open := <-c.send
	assert.True(t, open, "queued frame is still delivered")
	_, open = <-c.send
	assert.False(t, open)
}

func TestPublishAfterClose(t *testing.T) {
	s := NewServer("")
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Publish(frame{}), ErrClosed)
	assert.False(t, s.add(&client{send: make(chan []byte, 1)}))
}

func TestPublishRejectsUnmarshalable(t *testing.T) {
	s := NewServer("")
	assert.Error(t, s.Publish(make(chan int)))
}

func TestStartStopsOnContext(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartStopsOnClose(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background()) }()

	require.NoError(t, s.Close())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after Close")
	}
}
