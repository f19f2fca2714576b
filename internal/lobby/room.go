package lobby

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Settings is the room metadata supplied at creation time. Time is a
// client-chosen match-length setting echoed back in listings; the registry
// falls back to the creation timestamp when it is absent.
type Settings struct {
	RoomName    string
	Time        int64
	Length      int
	TakuName    string
	UseMagic    bool
	RoomComment string
	Password    bool
	Pass        string
}

// RoomSummary is the public listing row for a room, without membership or
// event detail.
type RoomSummary struct {
	RoomNum     int64  `json:"roomnum"`
	Time        int64  `json:"time"`
	RoomName    string `json:"roomname"`
	Length      int    `json:"length"`
	TakuName    string `json:"takuname"`
	UseMagic    bool   `json:"usemagic"`
	RoomComment string `json:"roomcomment"`
	Password    bool   `json:"password"`
	Status      string `json:"status"`
	PlayerCount int    `json:"playercount"`
}

// Room is one joinable match-staging unit: metadata, an insertion-ordered
// member table, and a write-once event log keyed by caller-chosen sequence
// numbers. The earliest-inserted surviving member is the owner; ownership is
// derived on every use, never stored, so it transfers implicitly when the
// owner leaves.
type Room struct {
	RoomNum   int64
	Settings  Settings
	Status    string
	GameStart bool

	mu      sync.Mutex
	players *orderedmap.OrderedMap[string, *Player]
	events  map[int]string
	now     func() time.Time
}

// NewRoom builds an empty room in the "waiting" state. The clock is
// injectable so timeout behavior is testable.
func NewRoom(roomNum int64, s Settings, now func() time.Time) *Room {
	if now == nil {
		now = time.Now
	}
	return &Room{
		RoomNum:  roomNum,
		Settings: s,
		Status:   "waiting",
		players:  orderedmap.New[string, *Player](),
		events:   make(map[int]string),
		now:      now,
	}
}

// Capacity is 3 seats for length code 3 (sanma), otherwise 4.
func (r *Room) Capacity() int {
	if r.Settings.Length == 3 {
		return 3
	}
	return 4
}

// Join admits a player, enforcing the password and the seat limit. A join
// with an already-present hash replaces that record in place, keeping its
// position in the ownership order.
func (r *Room) Join(profile Profile, pass string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Settings.Password && r.Settings.Pass != pass {
		return nil, ErrInvalidPassword
	}
	if r.players.Len() >= r.Capacity() {
		return nil, ErrRoomFull
	}

	p := &Player{Profile: profile}
	r.players.Set(profile.Hash, p)
	return p, nil
}

// Player returns a snapshot of the member with the given hash.
func (r *Room) Player(hash string) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players.Get(hash)
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return *p, nil
}

// Players returns snapshots of all members in insertion order.
func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(func(*Player) bool { return true })
}

// RefreshActivity records a heartbeat for the player. This is the only way a
// timed-out player becomes live again.
func (r *Room) RefreshActivity(hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players.Get(hash)
	if !ok {
		return ErrPlayerNotFound
	}
	p.LastActivity = r.now()
	return nil
}

// SetReady sets the standby flag. When called by the current owner the flag
// is broadcast to every member including the owner, which is how the owner
// starts the match; anyone else only toggles themselves. Returns whether the
// caller was the owner.
func (r *Room) SetReady(hash string, standby bool) (owner bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players.Get(hash)
	if !ok {
		return false, ErrPlayerNotFound
	}

	if o := r.ownerLocked(); o != nil && o.Hash == p.Hash {
		for pair := r.players.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value.Standby = standby
		}
		return true, nil
	}
	p.Standby = standby
	return false, nil
}

// SetLoading records match-load progress. Loading only happens once a match
// has begun, so the room status flips to "playing", and a loading poll counts
// as liveness.
func (r *Room) SetLoading(hash string, percent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players.Get(hash)
	if !ok {
		return ErrPlayerNotFound
	}
	r.Status = "playing"
	p.Loading = percent
	p.LastActivity = r.now()
	return nil
}

// Disconnected reports every member currently disconnected or timed out,
// refreshing the querying player's own activity. Nothing is removed here;
// in-game clients poll this to learn who dropped.
func (r *Room) Disconnected(callerHash string) ([]Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	caller, ok := r.players.Get(callerHash)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	caller.LastActivity = r.now()

	now := r.now()
	return r.snapshotLocked(func(p *Player) bool { return p.gone(now) }), nil
}

// EvictStale permanently removes every disconnected or timed-out member and
// returns the survivors. This is the aggressive variant used when rendering
// the membership listing; Disconnected is the report-only one.
func (r *Room) EvictStale() (remaining []Player, evicted []Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, p := range r.membersLocked() {
		if p.gone(now) {
			evicted = append(evicted, *p)
			r.players.Delete(p.Hash)
		}
	}
	return r.snapshotLocked(func(*Player) bool { return true }), evicted
}

// SubmitEvent records a game event under the caller-chosen sequence number.
// The log is write-once: resubmission under a used number reports false and
// leaves the stored payload untouched.
func (r *Room) SubmitEvent(seq int, payload string) (accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[seq]; exists {
		return false
	}
	r.events[seq] = payload
	return true
}

// LatestSequence is the highest sequence number submitted so far, 0 when the
// log is empty. Sequence numbers need not be contiguous.
func (r *Room) LatestSequence() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := 0
	for seq := range r.events {
		if seq > latest {
			latest = seq
		}
	}
	return latest
}

// Event fetches a stored payload. Payloads are opaque; the relay never
// interprets them.
func (r *Room) Event(seq int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, ok := r.events[seq]
	return payload, ok
}

// Summary renders the public listing row.
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Room) summaryLocked() RoomSummary {
	return RoomSummary{
		RoomNum:     r.RoomNum,
		Time:        r.Settings.Time,
		RoomName:    r.Settings.RoomName,
		Length:      r.Settings.Length,
		TakuName:    r.Settings.TakuName,
		UseMagic:    r.Settings.UseMagic,
		RoomComment: r.Settings.RoomComment,
		Password:    r.Settings.Password,
		Status:      r.Status,
		PlayerCount: r.players.Len(),
	}
}

// ownerLocked is the earliest-inserted member still present, or nil for an
// empty room.
func (r *Room) ownerLocked() *Player {
	pair := r.players.Oldest()
	if pair == nil {
		return nil
	}
	return pair.Value
}

// removableLocked: a room is eligible for removal when every human member is
// disconnected or timed out. CPU members don't count, so a room holding only
// CPUs (or nobody) is removable.
func (r *Room) removableLocked() bool {
	now := r.now()
	for pair := r.players.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.IsCPU() {
			continue
		}
		if !pair.Value.gone(now) {
			return false
		}
	}
	return true
}

func (r *Room) membersLocked() []*Player {
	members := make([]*Player, 0, r.players.Len())
	for pair := r.players.Oldest(); pair != nil; pair = pair.Next() {
		members = append(members, pair.Value)
	}
	return members
}

func (r *Room) snapshotLocked(keep func(*Player) bool) []Player {
	out := make([]Player, 0, r.players.Len())
	for pair := r.players.Oldest(); pair != nil; pair = pair.Next() {
		if keep(pair.Value) {
			out = append(out, *pair.Value)
		}
	}
	return out
}
