package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

const watchWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients are already gated by the CORS middleware; the
	// handshake does not repeat the origin check.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WatchTrip handles GET /trip/watch. The socket carries the whole trip as
// one JSON document per change, newest wins; clients replace their local
// state wholesale on every message. The current state is pushed right after
// the handshake so a fresh tab needs no separate GET.
func (s *Server) WatchTrip(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		respondUnavailable(w, "real-time sync is not configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer conn.Close()

	// Buffered, drop-oldest: a slow socket never blocks the change feed,
	// and the latest snapshot always gets through.
	changes := make(chan *domain.Trip, 1)
	push := func(t *domain.Trip) {
		// A nil trip means the document vanished or failed to decode;
		// clients keep their last state rather than receiving null.
		if t == nil {
			return
		}
		for {
			select {
			case changes <- t:
				return
			default:
				select {
				case <-changes:
				default:
				}
			}
		}
	}

	if trip, err := s.trips.Trip(); err == nil {
		push(trip)
	}

	unsubscribe, err := s.watcher.Subscribe(r.Context(), s.tripID, push)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(watchWriteTimeout))
		return
	}
	defer unsubscribe()

	// Read loop: the client never sends data, but reading is what surfaces
	// the close handshake and dead connections.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case trip := <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := conn.WriteJSON(trip); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
