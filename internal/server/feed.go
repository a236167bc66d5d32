package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"student-predictor/internal/metrics"
	"student-predictor/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is a public dashboard stream; origins are not restricted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Feed broadcasts every accepted prediction to connected WebSocket clients.
// Slow clients are dropped rather than allowed to block the hub.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	metrics *metrics.Wrapper
}

func NewFeed(mw *metrics.Wrapper) *Feed {
	return &Feed{
		clients: make(map[*websocket.Conn]chan []byte),
		metrics: mw,
	}
}

// Publish fans a prediction record out to all connected clients.
func (f *Feed) Publish(rec storage.PredictionRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Msg("feed marshal failed")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, send := range f.clients {
		select {
		case send <- data:
		default:
			// Client is not keeping up; disconnect it.
			f.dropLocked(conn)
		}
	}
}

// ServeHTTP upgrades the connection and streams predictions until the
// client disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}

	send := make(chan []byte, 16)
	f.mu.Lock()
	f.clients[conn] = send
	f.mu.Unlock()
	if f.metrics != nil {
		f.metrics.FeedClientsAdd(1)
	}
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("feed client connected")

	// Reader goroutine: its only job is to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.mu.Lock()
				f.dropLocked(conn)
				f.mu.Unlock()
				return
			}
		}
	}()

	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			f.mu.Lock()
			f.dropLocked(conn)
			f.mu.Unlock()
			return
		}
	}
}

// Close disconnects all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		f.dropLocked(conn)
	}
}

// dropLocked removes a client. Callers must hold f.mu.
func (f *Feed) dropLocked(conn *websocket.Conn) {
	if send, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(send)
		conn.Close()
		if f.metrics != nil {
			f.metrics.FeedClientsAdd(-1)
		}
	}
}
