package lobby

import "time"

// Timeout is how long a player may stay silent before it counts as gone.
// Activity is only observed on heartbeat/poll requests, never pushed.
const Timeout = 45 * time.Second

// CPUTrip marks an artificial player. CPU players never time out and never
// keep a room alive on their own.
const CPUTrip = "CPU"

// Profile is the immutable part of a player as supplied at join time. The
// presentation fields are opaque pass-through data for other clients.
type Profile struct {
	Hash      string
	Name      string
	NameQuote string
	Pin       string
	Trip      string
	CharaID   string
	CharaSkin int
	ChrHash   string
	GameVer   string
	TitleText string
	TitleType int
	Places    string
	Mode      string
}

// Player is one room member: a join-time profile plus mutable session state.
// Players are owned by exactly one Room and guarded by that room's lock.
type Player struct {
	Profile

	Standby      bool
	Disconnected bool
	Loading      int
	LastActivity time.Time
}

// IsCPU reports whether the player is an artificial member.
func (p *Player) IsCPU() bool { return p.Trip == CPUTrip }

// TimedOut reports whether the player has been silent longer than Timeout.
// A zero LastActivity means the player never polled; that is not a timeout.
// CPU players never time out.
func (p *Player) TimedOut(now time.Time) bool {
	if p.IsCPU() || p.LastActivity.IsZero() {
		return false
	}
	return now.Sub(p.LastActivity) > Timeout
}

// gone is the staleness predicate shared by the report-only and the evicting
// query paths.
func (p *Player) gone(now time.Time) bool {
	return p.Disconnected || p.TimedOut(now)
}
