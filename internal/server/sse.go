package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driftcode/agentserver/pkg/types"
)

// sseHeartbeatInterval keeps idle connections alive through
// intermediary proxies that time out on silence.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE, flushing after every
// write so a turn's events reach the client as they happen.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, rc: http.NewResponseController(w)}, nil
}

// writeEvent writes one SSE frame: "event: <type>\ndata: <json>\n\n".
func (s *sseWriter) writeEvent(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) writeComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}

// streamSession handles GET /stream/:id. It subscribes to the
// session's event bus and relays every event to the client verbatim
// until the first "done" event, then closes the connection — per the
// no-mid-turn-reconnection contract, a client that reconnects after
// this point only sees events from that later point forward.
func (srv *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	id := sessionIDParam(r)
	if _, err := srv.manager.GetSession(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := sse.rc.Flush(); err != nil {
		return
	}

	bus := srv.manager.Bus(id)
	if bus == nil {
		return
	}
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := sse.writeEvent(string(e.Type), e); err != nil {
				return
			}
			if e.Type == types.EventDone {
				return
			}
		case <-ticker.C:
			if err := sse.writeComment("heartbeat"); err != nil {
				return
			}
		}
	}
}
