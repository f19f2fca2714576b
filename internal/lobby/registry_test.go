package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(clock *testClock) *Registry {
	return NewRegistry(WithClock(clock.now))
}

func TestCreateRoomCollisionBumpsID(t *testing.T) {
	clock := newTestClock()
	reg := newTestRegistry(clock)

	// Two creations inside the same second must still get distinct numbers.
	a := reg.CreateRoom(Settings{RoomName: "first"})
	b := reg.CreateRoom(Settings{RoomName: "second"})

	assert.NotEqual(t, a.RoomNum, b.RoomNum)
	assert.Equal(t, a.RoomNum+1, b.RoomNum)
	assert.Equal(t, 2, reg.Len())
}

func TestCreateRoomDefaults(t *testing.T) {
	clock := newTestClock()
	reg := newTestRegistry(clock)

	room := reg.CreateRoom(Settings{RoomName: "koko", Time: 15})
	assert.Equal(t, "waiting", room.Status)
	assert.Equal(t, int64(15), room.Settings.Time)
	assert.Equal(t, clock.now().Unix(), room.RoomNum)

	// No match-length time supplied: fall back to the creation timestamp.
	bare := reg.CreateRoom(Settings{RoomName: "plain"})
	assert.Equal(t, bare.RoomNum, bare.Settings.Time)
}

func TestRoomLookup(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})

	got, err := reg.Room(room.RoomNum)
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = reg.Room(42)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestListRoomsSweepsStaleRooms(t *testing.T) {
	clock := newTestClock()
	reg := newTestRegistry(clock)

	// Room A: one disconnected human + one CPU -> removable.
	a := reg.CreateRoom(Settings{RoomName: "stale"})
	_, err := a.Join(human("h1", "a"), "")
	require.NoError(t, err)
	_, err = a.Join(cpu("c1"), "")
	require.NoError(t, err)
	_, err = reg.Disconnect(a, "h1")
	require.NoError(t, err)

	// Disconnect already dropped it: the CPU doesn't keep it alive.
	assert.Equal(t, 0, reg.Len())

	// Room B: one disconnected human + one connected human -> stays.
	b := reg.CreateRoom(Settings{RoomName: "alive"})
	_, err = b.Join(human("h1", "a"), "")
	require.NoError(t, err)
	_, err = b.Join(human("h2", "b"), "")
	require.NoError(t, err)
	require.NoError(t, b.RefreshActivity("h2"))

	b.mu.Lock()
	p, _ := b.players.Get("h1")
	p.Disconnected = true
	b.mu.Unlock()

	summaries := reg.ListRooms()
	require.Len(t, summaries, 1)
	assert.Equal(t, "alive", summaries[0].RoomName)
	assert.Equal(t, 2, summaries[0].PlayerCount)
}

func TestListRoomsSweepsTimedOut(t *testing.T) {
	clock := newTestClock()
	reg := newTestRegistry(clock)

	room := reg.CreateRoom(Settings{RoomName: "idle"})
	_, err := room.Join(human("h1", "a"), "")
	require.NoError(t, err)
	require.NoError(t, room.RefreshActivity("h1"))

	assert.Len(t, reg.ListRooms(), 1)

	clock.advance(Timeout + time.Second)
	assert.Empty(t, reg.ListRooms())
	assert.Equal(t, 0, reg.Len())
}

func TestListRoomsOrder(t *testing.T) {
	clock := newTestClock()
	reg := newTestRegistry(clock)

	for _, name := range []string{"one", "two", "three"} {
		room := reg.CreateRoom(Settings{RoomName: name})
		_, err := room.Join(human("h-"+name, name), "")
		require.NoError(t, err)
	}

	summaries := reg.ListRooms()
	require.Len(t, summaries, 3)
	assert.Equal(t, "one", summaries[0].RoomName)
	assert.Equal(t, "two", summaries[1].RoomName)
	assert.Equal(t, "three", summaries[2].RoomName)
}

func TestLeaveRemovesEmptyRoom(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})
	_, err := room.Join(human("h1", "a"), "")
	require.NoError(t, err)

	removed, err := reg.Leave(room, "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", removed.Hash)
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Leave(room, "h1")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLeaveStripsCPUPlayers(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})

	for _, p := range []Profile{human("h1", "a"), cpu("c1"), human("h2", "b"), cpu("c2")} {
		_, err := room.Join(p, "")
		require.NoError(t, err)
	}

	_, err := reg.Leave(room, "h1")
	require.NoError(t, err)

	players := room.Players()
	require.Len(t, players, 1)
	assert.Equal(t, "h2", players[0].Hash)
	assert.Equal(t, 1, reg.Len())
}

func TestOwnershipTransfersOnLeave(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})

	_, err := room.Join(human("hA", "a"), "")
	require.NoError(t, err)
	_, err = room.Join(human("hB", "b"), "")
	require.NoError(t, err)

	owner, err := room.SetReady("hB", true)
	require.NoError(t, err)
	assert.False(t, owner)

	_, err = reg.Leave(room, "hA")
	require.NoError(t, err)

	owner, err = room.SetReady("hB", true)
	require.NoError(t, err)
	assert.True(t, owner)
}

func TestDisconnectKeepsSeatVisible(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})

	_, err := room.Join(human("h1", "a"), "")
	require.NoError(t, err)
	_, err = room.Join(human("h2", "b"), "")
	require.NoError(t, err)
	require.NoError(t, room.RefreshActivity("h2"))

	flagged, err := reg.Disconnect(room, "h1")
	require.NoError(t, err)
	assert.True(t, flagged.Disconnected)

	// The seat is still there for h2's disconnect polls.
	gone, err := room.Disconnected("h2")
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, "h1", gone[0].Hash)
	assert.Equal(t, 1, reg.Len())
}

func TestFinishAndRemoveRoomIdempotent(t *testing.T) {
	reg := newTestRegistry(newTestClock())
	room := reg.CreateRoom(Settings{})

	reg.Finish(room.RoomNum)
	assert.Equal(t, 0, reg.Len())

	// Absent numbers are a no-op, not an error.
	reg.RemoveRoom(room.RoomNum)
	reg.Finish(room.RoomNum)
}
