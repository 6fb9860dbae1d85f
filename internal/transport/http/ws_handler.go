package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"grandlucky-quiz-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots of one round to a browser.
type WSHandler struct {
	leaderboards *app.LeaderboardService
	timeout      time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(leaderboards *app.LeaderboardService, timeout time.Duration) *WSHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &WSHandler{
		leaderboards: leaderboards,
		timeout:      timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a leaderboard message on every change.
// Inbound frames are read only to notice when the viewer goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")
	if roundID == "" {
		http.Error(w, "missing roundID", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	updates, unsubscribe, err := h.leaderboards.Subscribe(ctx, roundID)
	cancel()
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}})
		return
	}
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "leaderboard", Payload: update}); err != nil {
				slog.Debug("ws write error", "round_id", roundID, "error", err)
				return
			}
		case <-gone:
			return
		}
	}
}
