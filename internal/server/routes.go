package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.postChat)
		r.Post("/chat/{id}", s.postChatContinue)
		r.Get("/stream/{id}", s.streamSession)
		r.Post("/stop/{id}", s.postStop)

		r.Get("/session/{id}", s.getSession)
		r.Get("/session/{id}/messages", s.getSessionMessages)
		r.Patch("/session/{id}", s.patchSession)
		r.Patch("/session/{id}/cwd", s.patchSessionCWD)
		r.Delete("/session/{id}", s.deleteSession)
		r.Get("/sessions", s.listSessions)

		r.Get("/tools", s.getTools)
		r.Get("/models", s.getModels)
		r.Get("/commands", s.getCommands)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
	})

	s.router.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func sessionIDParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
