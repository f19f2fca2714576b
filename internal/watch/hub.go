// Package watch fans the current room list out to websocket spectators.
// One goroutine owns all spectator channels; everything reaches it through
// the typed message inbox, so no locks are needed here.
package watch

import (
	"context"

	"github.com/gensou-revival/lobby-backend/internal/lobby"
)

type Msg interface{ isWatchMsg() }

// Join registers a spectator and immediately sends it the current snapshot.
type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Join) isWatchMsg() {}

type Leave struct{ ClientID string }

func (Leave) isWatchMsg() {}

// Publish replaces the current room list and broadcasts it.
type Publish struct{ Rooms []lobby.RoomSummary }

func (Publish) isWatchMsg() {}

type Shutdown struct{}

func (Shutdown) isWatchMsg() {}

// GetState reflects internal state without data races; used by tests.
type GetState struct {
	Reply chan View
}

func (GetState) isWatchMsg() {}

// Snapshot is one broadcast room list. Version increments on every publish.
type Snapshot struct {
	Version int                 `json:"version"`
	Rooms   []lobby.RoomSummary `json:"rooms"`
}

type View struct {
	Version    int
	NumClients int
}

type Hub struct {
	inbox   chan Msg
	rooms   []lobby.RoomSummary
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)

	h := &Hub{
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go h.loop()
	return h
}

// Inbox exposes the message queue to the ws layer, the API layer and tests.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: h.version, Rooms: h.rooms}

			case Leave:
				delete(h.clients, msg.ClientID)

			case Publish:
				h.rooms = msg.Rooms
				h.version++
				h.broadcast(Snapshot{Version: h.version, Rooms: h.rooms})

			case GetState:
				msg.Reply <- View{Version: h.version, NumClients: len(h.clients)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) broadcast(snap Snapshot) {
	for id, ch := range h.clients {
		select {
		case ch <- snap:
			// ok
		default:
			// Spectator is slow/full - drop it.
			close(ch)
			delete(h.clients, id)
		}
	}
}
