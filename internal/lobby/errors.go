package lobby

// Kind categorizes a rejection so the transport layer can pick a status code
// without string-matching reasons.
type Kind int

const (
	KindNotFound Kind = iota
	KindForbidden
	KindBadRequest
)

// Error is a rejection the caller is expected to handle: the reason string is
// machine-stable and rendered verbatim on the wire.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var (
	ErrRoomNotFound    = &Error{Kind: KindNotFound, Reason: "room not found"}
	ErrPlayerNotFound  = &Error{Kind: KindNotFound, Reason: "player not found"}
	ErrInvalidPassword = &Error{Kind: KindForbidden, Reason: "invalid password"}
	ErrRoomFull        = &Error{Kind: KindForbidden, Reason: "room is full"}
)
