package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gensou-revival/lobby-backend/internal/lobby"
	"github.com/gensou-revival/lobby-backend/internal/watch"
)

var roomListColumns = []string{
	"roomnum", "time", "roomname", "length", "takuname",
	"usemagic", "roomcomment", "password", "status", "playercount",
}

var playerListColumns = []string{
	"name", "hash", "titletext", "titletype", "chara_id",
	"chara_skin", "places", "trip", "standby",
}

// Server renders the lobby protocol over the core registry. It owns no game
// state itself.
type Server struct {
	reg   *lobby.Registry
	hub   *watch.Hub
	log   *zap.Logger
	title string

	// Seen room/player disconnects, so repeated polls log each drop once.
	droppedSeen sync.Map
}

// NewServer wires the transport around a registry. The hub is optional; with
// a nil hub no spectator snapshots are published.
func NewServer(reg *lobby.Registry, hub *watch.Hub, log *zap.Logger, title string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{reg: reg, hub: hub, log: log, title: title}
}

// handleTitle serves the main-menu banner. The client displays the body
// verbatim, so it can be anything.
func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	if s.title != "" {
		writeText(w, http.StatusOK, s.title+"\n")
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Connected to a test server at %s\n", r.Host))
}

// handleIndex is the single POST endpoint the client funnels every stateful
// request through, dispatched on the "func" form field.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "malformed form")
		return
	}
	form := r.PostForm

	switch form.Get("func") {
	case "net_lobby":
		s.listRooms(w)
	case "net_quick":
		s.quickJoin(w, form)
	case "room_refresh":
		s.refreshRoom(w, form)
	case "room_create":
		s.createRoom(w, form)
	case "room_join":
		s.joinRoom(w, form)
	case "room_leave":
		s.leaveRoom(w, form)
	case "room_standby":
		s.roomStandby(w, form)
	case "game_loading":
		s.playerLoadingState(w, form)
	case "game_taskrecv":
		s.recordGameEvent(w, form)
	case "game_taskcheck":
		s.listDisconnectedPlayers(w, form)
	case "game_leave":
		s.leaveGame(w, form)
	case "game_finish":
		s.finishGame(w, form)
	default:
		s.log.Warn("unhandled request", zap.String("func", form.Get("func")))
		writeText(w, http.StatusNotFound, "invalid function")
	}
}

func (s *Server) listRooms(w http.ResponseWriter) {
	summaries := s.reg.ListRooms()
	rows := make([][]any, 0, len(summaries))
	for _, r := range summaries {
		rows = append(rows, []any{
			r.RoomNum, r.Time, r.RoomName, r.Length, r.TakuName,
			r.UseMagic, r.RoomComment, r.Password, r.Status, r.PlayerCount,
		})
	}
	writeText(w, http.StatusOK, renderCSV(roomListColumns, rows))
}

// quickJoin is not implemented: matchmaking never was part of this server.
// The client treats an empty body as "no quick match available".
func (s *Server) quickJoin(w http.ResponseWriter, form url.Values) {
	s.log.Warn("called unimplemented function quick_join", zap.String("name", form.Get("name")))
	writeText(w, http.StatusOK, "")
}

func (s *Server) createRoom(w http.ResponseWriter, form url.Values) {
	room := s.reg.CreateRoom(parseSettings(form))
	s.notifyWatchers()
	writeText(w, http.StatusOK, fmt.Sprintf("ok.\n%d", room.RoomNum))
}

func (s *Server) joinRoom(w http.ResponseWriter, form url.Values) {
	room, ok := s.resolveRoom(w, form)
	if !ok {
		return
	}

	profile := parseProfile(form)
	player, err := room.Join(profile, form.Get("pass"))
	if err != nil {
		s.log.Warn("failed to join the room",
			zap.String("name", profile.Name),
			zap.Int64("roomnum", room.RoomNum),
			zap.Error(err))
		s.writeError(w, err)
		return
	}

	s.log.Info("player joined the room",
		zap.String("name", player.Name),
		zap.String("roomname", room.Settings.RoomName))
	s.notifyWatchers()
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) leaveRoom(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}

	player, err := s.reg.Leave(room, hash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("player left the room",
		zap.String("name", player.Name),
		zap.String("roomname", room.Settings.RoomName))
	s.notifyWatchers()
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) leaveGame(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}

	player, err := s.reg.Disconnect(room, hash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.log.Info("player left the game",
		zap.String("name", player.Name),
		zap.String("roomname", room.Settings.RoomName))
	s.notifyWatchers()
	writeText(w, http.StatusOK, "ok.")
}

// refreshRoom is the pre-game keepalive; the client ignores the body.
func (s *Server) refreshRoom(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}

	if err := room.RefreshActivity(hash); err != nil {
		s.writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, "ok.")
}

func (s *Server) roomStandby(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}

	standby := formBool(form, "standby")
	owner, err := room.SetReady(hash, standby)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if owner {
		s.log.Info("owner started the room",
			zap.String("hash", hash),
			zap.String("roomname", room.Settings.RoomName),
			zap.Bool("standby", standby))
	} else {
		s.log.Info("player changed standby",
			zap.String("hash", hash),
			zap.String("roomname", room.Settings.RoomName),
			zap.Bool("standby", standby))
	}
	writeText(w, http.StatusOK, "ok.")
}

func (s *Server) playerLoadingState(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}
	if _, err := room.Player(hash); err != nil {
		s.writeError(w, err)
		return
	}

	loading, ok := formInt(form, "loading")
	if !ok {
		writeText(w, http.StatusForbidden, "missing loading state")
		return
	}

	if err := room.SetLoading(hash, loading); err != nil {
		s.writeError(w, err)
		return
	}
	s.notifyWatchers()
	writeText(w, http.StatusOK, "ok.")
}

func (s *Server) recordGameEvent(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}
	if _, err := room.Player(hash); err != nil {
		s.writeError(w, err)
		return
	}

	seq, seqOK := formInt(form, "snum")
	if !form.Has("seat") || !seqOK || !form.Has("q") {
		writeText(w, http.StatusForbidden, "missing required parameters")
		return
	}

	if !room.SubmitEvent(seq, form.Get("q")) {
		writeText(w, http.StatusOK, "TASK_REGISTED")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) listDisconnectedPlayers(w http.ResponseWriter, form url.Values) {
	room, hash, ok := s.resolveRoomAndHash(w, form)
	if !ok {
		return
	}

	gone, err := room.Disconnected(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}

	hashes := make([]string, 0, len(gone))
	for _, p := range gone {
		s.logDroppedOnce(room, p)
		hashes = append(hashes, p.Hash)
	}
	writeText(w, http.StatusOK, strings.Join(hashes, "\n"))
}

func (s *Server) finishGame(w http.ResponseWriter, form url.Values) {
	room, ok := s.resolveRoom(w, form)
	if !ok {
		return
	}

	s.log.Debug("game ended", zap.String("roomname", room.Settings.RoomName))
	s.reg.Finish(room.RoomNum)
	s.notifyWatchers()
	writeText(w, http.StatusOK, "ok.")
}

// handleRoomInfo serves GET /rooms/{version}/{roomnum}/info.
func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	room, ok := s.resolveRoomParam(w, r)
	if !ok {
		return
	}
	writeText(w, http.StatusOK, renderCSV([]string{"gamestart"}, [][]any{{room.GameStart}}))
}

// handleRoomUsers serves the membership listing, kicking stale members first.
// This is deliberately more aggressive than game_taskcheck, which only
// reports; the in-room listing is where drops become permanent.
func (s *Server) handleRoomUsers(w http.ResponseWriter, r *http.Request) {
	room, ok := s.resolveRoomParam(w, r)
	if !ok {
		return
	}

	remaining, evicted := room.EvictStale()
	for _, p := range evicted {
		s.log.Info("removing player from room due to inactivity",
			zap.String("name", p.Name),
			zap.String("roomname", room.Settings.RoomName))
	}

	rows := make([][]any, 0, len(remaining))
	for _, p := range remaining {
		rows = append(rows, []any{
			p.Name, p.Hash, p.TitleText, p.TitleType, p.CharaID,
			p.CharaSkin, p.Places, p.Trip, p.Standby,
		})
	}
	writeText(w, http.StatusOK, renderCSV(playerListColumns, rows))
}

// handleLoadingState serves GET .../loading_{hash}: the bare percentage.
func (s *Server) handleLoadingState(w http.ResponseWriter, r *http.Request) {
	room, ok := s.resolveRoomParam(w, r)
	if !ok {
		return
	}

	player, err := room.Player(chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeText(w, http.StatusOK, strconv.Itoa(player.Loading))
}

// handleTaskNum serves GET .../tasknum: the latest event sequence number.
func (s *Server) handleTaskNum(w http.ResponseWriter, r *http.Request) {
	room, ok := s.resolveRoomParam(w, r)
	if !ok {
		return
	}
	writeText(w, http.StatusOK, strconv.Itoa(room.LatestSequence()))
}

// handleTask serves GET .../task_{seq}: one relayed event payload.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	room, ok := s.resolveRoomParam(w, r)
	if !ok {
		return
	}

	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil {
		writeText(w, http.StatusNotFound, "event not found")
		return
	}

	payload, found := room.Event(seq)
	if !found {
		writeText(w, http.StatusNotFound, "event not found")
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("task:%d:%s", seq, payload))
}

func (s *Server) resolveRoom(w http.ResponseWriter, form url.Values) (*lobby.Room, bool) {
	roomNum, ok := formInt64(form, "roomnum")
	if !ok {
		s.log.Error("room ID not provided")
		writeText(w, http.StatusForbidden, "room ID not provided")
		return nil, false
	}

	room, err := s.reg.Room(roomNum)
	if err != nil {
		s.log.Error("room not found", zap.Int64("roomnum", roomNum))
		s.writeError(w, err)
		return nil, false
	}
	return room, true
}

func (s *Server) resolveRoomAndHash(w http.ResponseWriter, form url.Values) (*lobby.Room, string, bool) {
	room, ok := s.resolveRoom(w, form)
	if !ok {
		return nil, "", false
	}

	hash := form.Get("hash")
	if hash == "" {
		writeText(w, http.StatusForbidden, "player hash not provided")
		return nil, "", false
	}
	return room, hash, true
}

func (s *Server) resolveRoomParam(w http.ResponseWriter, r *http.Request) (*lobby.Room, bool) {
	roomNum, err := strconv.ParseInt(chi.URLParam(r, "roomnum"), 10, 64)
	if err != nil {
		writeText(w, http.StatusForbidden, "room ID not provided")
		return nil, false
	}

	room, lookupErr := s.reg.Room(roomNum)
	if lookupErr != nil {
		s.writeError(w, lookupErr)
		return nil, false
	}
	return room, true
}

// writeError maps a core rejection onto its status category, rendering the
// stable reason string as the body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var lerr *lobby.Error
	if !errors.As(err, &lerr) {
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch lerr.Kind {
	case lobby.KindNotFound:
		status = http.StatusNotFound
	case lobby.KindForbidden:
		status = http.StatusForbidden
	case lobby.KindBadRequest:
		status = http.StatusBadRequest
	}
	writeText(w, status, lerr.Reason)
}

// notifyWatchers pushes a fresh room list to the spectator hub.
func (s *Server) notifyWatchers() {
	if s.hub == nil {
		return
	}
	s.hub.Inbox() <- watch.Publish{Rooms: s.reg.ListRooms()}
}

// logDroppedOnce logs a mid-game drop the first time it is observed. The
// remaining players poll every few seconds, so without the guard each drop
// would be logged forever.
func (s *Server) logDroppedOnce(room *lobby.Room, p lobby.Player) {
	key := fmt.Sprintf("%d/%s", room.RoomNum, p.Hash)
	if _, seen := s.droppedSeen.LoadOrStore(key, struct{}{}); seen {
		return
	}
	s.log.Info("player disconnected during a game",
		zap.String("name", p.Name),
		zap.String("roomname", room.Settings.RoomName))
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
