package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/driftcode/agentserver/pkg/types"
)

// getSession handles GET /session/:id.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	sess, err := s.manager.GetSession(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// getSessionMessages handles GET /session/:id/messages.
func (s *Server) getSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	if _, err := s.manager.GetSession(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	msgs, err := s.manager.ListMessages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type patchSessionRequest struct {
	Title string `json:"title"`
}

// patchSession handles PATCH /session/:id.
func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	var req patchSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := s.manager.UpdateTitle(r.Context(), id, req.Title); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

type patchSessionCWDRequest struct {
	WorkingDir string `json:"workingDir"`
}

// patchSessionCWD handles PATCH /session/:id/cwd.
func (s *Server) patchSessionCWD(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	var req patchSessionCWDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.WorkingDir == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "workingDir is required")
		return
	}
	if err := s.manager.UpdateWorkingDir(r.Context(), id, req.WorkingDir); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeSuccess(w)
}

// deleteSession handles DELETE /session/:id.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	ok, err := s.manager.DeleteSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	writeSuccess(w)
}

type listSessionsResponse struct {
	Sessions []types.SessionSummary `json:"sessions"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	HasMore  bool                   `json:"hasMore"`
}

const defaultSessionsPageSize = 20

// listSessions handles GET /sessions?limit&offset.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultSessionsPageSize)
	offset := queryInt(r, "offset", 0)

	sessions, total, err := s.manager.ListSessions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  offset+len(sessions) < total,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
