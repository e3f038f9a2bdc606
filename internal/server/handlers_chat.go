package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/driftcode/agentserver/internal/session"
	"github.com/driftcode/agentserver/internal/storage"
)

type chatRequest struct {
	Message    string `json:"message"`
	WorkingDir string `json:"workingDir"`
	Model      string `json:"model"`
	Command    string `json:"command"`
}

type chatResponse struct {
	SessionID  string `json:"sessionId"`
	WorkingDir string `json:"workingDir"`
}

// postChat handles POST /chat: creates a session, launches a turn, and
// returns immediately without waiting for it to finish.
func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = s.cfg.ProjectRoot
	}

	sess, err := s.manager.CreateSession(r.Context(), workingDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	if !s.launchTurn(w, sess.ID, req.Message, req.Model) {
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: sess.ID, WorkingDir: sess.WorkingDir})
}

// postChatContinue handles POST /chat/:id: appends a new user message to
// an existing session and launches the next turn.
func (s *Server) postChatContinue(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	sess, err := s.manager.GetSession(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	if !s.launchTurn(w, id, req.Message, req.Model) {
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: id, WorkingDir: sess.WorkingDir})
}

// launchTurn starts a turn and reports whether the caller should still
// write its success response. On ErrSessionRunning it writes the 409
// itself and returns false. Any other start error is not reported:
// nothing is pushed to the session's stream and launchTurn returns
// true, so the caller still writes its success response.
func (s *Server) launchTurn(w http.ResponseWriter, sessionID, message, model string) bool {
	if model == "" {
		model = s.cfg.OpenRouterModel
	}
	err := s.manager.StartTurn(sessionID, message, model, s.cfg.MaxRounds)
	if errors.Is(err, session.ErrSessionRunning) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "a turn is already running for this session")
		return false
	}
	return true
}

// postStop handles POST /stop/:id.
func (s *Server) postStop(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	s.manager.Cancel(id)
	writeSuccess(w)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
}
