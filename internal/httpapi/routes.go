package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gensou-revival/lobby-backend/internal/ws"
)

// Routes builds the router: the game client's form-POST funnel plus the
// in-match polling endpoints, and the spectator websocket when a hub is set.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/thmj4n/title.txt", s.handleTitle)
	r.Post("/index.php", s.handleIndex)

	r.Route("/rooms/{version:[0-9]+}/{roomnum:[0-9]+}", func(r chi.Router) {
		r.Get("/info", s.handleRoomInfo)
		r.Get("/users", s.handleRoomUsers)
		r.Get("/loading_{hash}", s.handleLoadingState)
		r.Get("/tasknum", s.handleTaskNum)
		r.Get("/task_{seq:[0-9]+}", s.handleTask)
	})

	if s.hub != nil {
		r.Get("/watch", ws.Handler(s.hub, s.log))
	}
	return r
}
