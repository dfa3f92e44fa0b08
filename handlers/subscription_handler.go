package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GShadowBroker/library-server/services"
)

const pingInterval = 30 * time.Second

// SubscriptionHandler streams every successfully added book over a
// websocket. Subscriber registration lives exactly as long as the
// connection.
type SubscriptionHandler struct {
	feed     *services.BookFeed
	upgrader websocket.Upgrader
}

func NewSubscriptionHandler(feed *services.BookFeed) *SubscriptionHandler {
	return &SubscriptionHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *SubscriptionHandler) BookAdded(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id, books := h.feed.Subscribe()
	defer func() {
		h.feed.Unsubscribe(id)
		conn.Close()
	}()
	slog.Info("book feed subscriber connected", "subscriber", id)

	// Drain the read side so we notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case book, ok := <-books:
			if !ok {
				return
			}
			if err := conn.WriteJSON(book); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
