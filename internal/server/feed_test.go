package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-predictor/internal/storage"
)

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestFeed_BroadcastsPredictions(t *testing.T) {
	feed := NewFeed(nil)
	defer feed.Close()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)

	rec := storage.PredictionRecord{
		ID:            7,
		Name:          "alice",
		StudyHours:    9,
		Attendance:    90,
		PredictedPass: true,
		Confidence:    0.95,
	}

	// The hub registers the client asynchronously with the dial.
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 1
	}, time.Second, 10*time.Millisecond)

	feed.Publish(rec)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got storage.PredictionRecord
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.PredictedPass)
}

func TestFeed_MultipleClients(t *testing.T) {
	feed := NewFeed(nil)
	defer feed.Close()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conns := []*websocket.Conn{dialFeed(t, srv), dialFeed(t, srv), dialFeed(t, srv)}

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == len(conns)
	}, time.Second, 10*time.Millisecond)

	feed.Publish(storage.PredictionRecord{Name: "bob"})

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err, "client %d", i)
		assert.Contains(t, string(msg), "bob")
	}
}

func TestFeed_DropsDisconnectedClient(t *testing.T) {
	feed := NewFeed(nil)
	defer feed.Close()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 0
	}, time.Second, 10*time.Millisecond)

	// Publishing into an empty hub is a no-op, not a panic.
	feed.Publish(storage.PredictionRecord{Name: "carol"})
}

func TestFeed_CloseDisconnectsClients(t *testing.T) {
	feed := NewFeed(nil)
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 1
	}, time.Second, 10*time.Millisecond)

	feed.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "read must fail once the hub closes the connection")
}
