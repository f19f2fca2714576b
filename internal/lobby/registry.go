package lobby

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// Registry is the process-wide table of active rooms, keyed by room number in
// creation order. It is the only owner of rooms; rooms are the only owners of
// their players and event logs.
//
// Locking: the registry mutex guards the table, each room guards its own
// state. Where both are needed the registry lock is taken first, never the
// reverse. Staleness is evaluated lazily on reads and enumerations; there is
// no background sweeper.
type Registry struct {
	mu    sync.Mutex
	rooms *orderedmap.OrderedMap[int64, *Room]
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry clock. Rooms created afterwards inherit
// it, which is how timeout tests stay deterministic.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the lifecycle logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry builds an empty registry. There is exactly one per process,
// created at startup; all state is volatile and starts empty.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms: orderedmap.New[int64, *Room](),
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom allocates a room numbered with the current Unix timestamp and
// inserts it in the "waiting" state with no members. Two creations in the
// same second get distinct numbers: the candidate is bumped until unused.
func (g *Registry) CreateRoom(s Settings) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	num := g.now().Unix()
	for {
		if _, taken := g.rooms.Get(num); !taken {
			break
		}
		num++
	}
	if s.Time == 0 {
		s.Time = num
	}

	room := NewRoom(num, s, g.now)
	g.rooms.Set(num, room)
	g.log.Info("created room", zap.String("roomname", s.RoomName), zap.Int64("roomnum", num))
	return room
}

// Room looks a room up without side effects.
func (g *Registry) Room(roomNum int64) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms.Get(roomNum)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListRooms sweeps out every removable room, then returns summaries of the
// survivors in creation order.
func (g *Registry) ListRooms() []RoomSummary {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, room := range g.tableLocked() {
		room.mu.Lock()
		removable := room.removableLocked()
		room.mu.Unlock()
		if removable {
			g.log.Info("removing room due to inactivity",
				zap.String("roomname", room.Settings.RoomName),
				zap.Int64("roomnum", room.RoomNum))
			g.rooms.Delete(room.RoomNum)
		}
	}

	summaries := make([]RoomSummary, 0, g.rooms.Len())
	for pair := g.rooms.Oldest(); pair != nil; pair = pair.Next() {
		room := pair.Value
		room.mu.Lock()
		summaries = append(summaries, room.summaryLocked())
		room.mu.Unlock()
	}
	return summaries
}

// Leave removes the player from the room, strips any remaining CPU members,
// and drops the room itself once no live human is left. Returns the removed
// player record.
func (g *Registry) Leave(room *Room, hash string) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room.mu.Lock()
	p, ok := room.players.Get(hash)
	if !ok {
		room.mu.Unlock()
		return Player{}, ErrPlayerNotFound
	}
	removed := *p
	room.players.Delete(hash)
	for _, member := range room.membersLocked() {
		if member.IsCPU() {
			room.players.Delete(member.Hash)
		}
	}
	removable := room.removableLocked()
	room.mu.Unlock()

	if removable {
		g.removeLocked(room)
	}
	return removed, nil
}

// Disconnect flags the player as gone without removing it, then drops the
// room if nobody live remains. This is the in-match leave path: the seat
// stays visible to the remaining players' disconnect polls.
func (g *Registry) Disconnect(room *Room, hash string) (Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room.mu.Lock()
	p, ok := room.players.Get(hash)
	if !ok {
		room.mu.Unlock()
		return Player{}, ErrPlayerNotFound
	}
	p.Disconnected = true
	flagged := *p
	removable := room.removableLocked()
	room.mu.Unlock()

	if removable {
		g.removeLocked(room)
	}
	return flagged, nil
}

// Finish unconditionally removes the room; a match signaled completion.
func (g *Registry) Finish(roomNum int64) {
	g.RemoveRoom(roomNum)
}

// RemoveRoom deletes the room entry. Removing an absent number is a no-op.
func (g *Registry) RemoveRoom(roomNum int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rooms.Delete(roomNum)
}

// Len reports the number of active rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rooms.Len()
}

func (g *Registry) removeLocked(room *Room) {
	if _, ok := g.rooms.Get(room.RoomNum); !ok {
		return
	}
	g.log.Info("removing room",
		zap.String("roomname", room.Settings.RoomName),
		zap.Int64("roomnum", room.RoomNum))
	g.rooms.Delete(room.RoomNum)
}

// tableLocked copies the current room list so the sweep can delete while
// iterating.
func (g *Registry) tableLocked() []*Room {
	rooms := make([]*Room, 0, g.rooms.Len())
	for pair := g.rooms.Oldest(); pair != nil; pair = pair.Next() {
		rooms = append(rooms, pair.Value)
	}
	return rooms
}
