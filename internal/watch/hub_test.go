package watch

import (
	"context"
	"testing"
	"time"

	"github.com/gensou-revival/lobby-backend/internal/lobby"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("spectator outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func TestHub_Publish_BroadcastsAndVersionIncrements(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx)

	out := make(chan Snapshot, 2)
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}

	first := recvSnapshot(t, out, 100*time.Millisecond)
	if first.Version != 0 {
		t.Fatalf("after join: want version=0, got %d", first.Version)
	}
	if len(first.Rooms) != 0 {
		t.Fatalf("after join: expected no rooms yet, got %+v", first.Rooms)
	}

	h.Inbox() <- Publish{Rooms: []lobby.RoomSummary{{RoomNum: 1697043915, RoomName: "koko"}}}

	next := recvSnapshot(t, out, 100*time.Millisecond)
	if next.Version != 1 {
		t.Fatalf("after publish: want version=1, got %d", next.Version)
	}
	if len(next.Rooms) != 1 || next.Rooms[0].RoomName != "koko" {
		t.Fatalf("after publish: unexpected rooms %+v", next.Rooms)
	}

	h.Inbox() <- Shutdown{}
}

func TestHub_DropSlowSpectator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx)

	out := make(chan Snapshot, 1)
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}

	// The join snapshot fills the buffer; the publish finds it full.
	h.Inbox() <- Publish{Rooms: nil}

	reply := make(chan View, 1)
	h.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected slow spectator to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestHub_Leave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(ctx)

	out := make(chan Snapshot, 4)
	h.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	h.Inbox() <- Leave{ClientID: "c1"}

	reply := make(chan View, 1)
	h.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)

	if view.NumClients != 0 {
		t.Fatalf("expected no spectators after leave; NumClients=%d", view.NumClients)
	}
}
