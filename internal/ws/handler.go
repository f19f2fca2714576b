package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gensou-revival/lobby-backend/internal/watch"
)

// Handler upgrades GET /watch connections and streams room-list snapshots to
// the spectator until it disconnects or falls behind.
func Handler(h *watch.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan watch.Snapshot, 8)
		clientID := uuid.NewString()

		h.Inbox() <- watch.Join{ClientID: clientID, Outbox: out}
		defer func() { h.Inbox() <- watch.Leave{ClientID: clientID} }()

		log.Debug("spectator connected", zap.String("client", clientID))

		// Writer goroutine: the hub closes out when it drops us.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				payload, err := json.Marshal(snap)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: spectators send nothing meaningful; reading just
		// detects the close.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				log.Debug("spectator disconnected", zap.String("client", clientID))
				return
			}
		}
	}
}
