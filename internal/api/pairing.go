package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/emberhome/ember-core/internal/manager"
)

// pairingRequest optionally overrides the configured session timeout.
type pairingRequest struct {
	// TimeoutSeconds bounds the session; 0 falls back to the configured
	// default, -1 disables the timeout entirely.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// sessionTimeout resolves the effective timeout for a session request.
// An empty body is fine; only malformed JSON is rejected.
func (s *Server) sessionTimeout(r *http.Request) (time.Duration, bool) {
	var req pairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return 0, false
	}

	switch {
	case req.TimeoutSeconds < 0:
		return 0, true
	case req.TimeoutSeconds > 0:
		return time.Duration(req.TimeoutSeconds) * time.Second, true
	default:
		return time.Duration(s.pairing.Timeout) * time.Second, true
	}
}

// handleStartPairing opens a pairing session and long-polls its result.
//
// The response is the session outcome: the newly added thing, a timeout
// or a cancellation. A session already in progress yields 409.
func (s *Server) handleStartPairing(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.sessionTimeout(r)
	if !ok {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.manager.AddNewThing(timeout)
	if err != nil {
		if errors.Is(err, manager.ErrOperationInProgress) {
			writeConflict(w, "a pairing or unpairing session is already in progress")
			return
		}
		writeInternalError(w, "starting pairing failed")
		return
	}

	s.waitForSession(w, r, result)
}

// handleCancelPairing cancels an active pairing session. Idempotent.
func (s *Server) handleCancelPairing(w http.ResponseWriter, _ *http.Request) {
	s.manager.CancelAddNewThing()
	w.WriteHeader(http.StatusNoContent)
}

// handleStartUnpairing opens an unpairing session and long-polls its
// result: the removed thing, a timeout or a cancellation.
func (s *Server) handleStartUnpairing(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.sessionTimeout(r)
	if !ok {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.manager.RemoveSomeThing(timeout)
	if err != nil {
		if errors.Is(err, manager.ErrOperationInProgress) {
			writeConflict(w, "a pairing or unpairing session is already in progress")
			return
		}
		writeInternalError(w, "starting unpairing failed")
		return
	}

	s.waitForSession(w, r, result)
}

// handleCancelUnpairing cancels an active unpairing session. Idempotent.
func (s *Server) handleCancelUnpairing(w http.ResponseWriter, _ *http.Request) {
	s.manager.CancelRemoveSomeThing()
	w.WriteHeader(http.StatusNoContent)
}

// waitForSession blocks until the session resolves and writes the
// outcome. If the client goes away the session keeps running; it will
// resolve by device, timeout or an explicit DELETE.
func (s *Server) waitForSession(w http.ResponseWriter, r *http.Request, result <-chan manager.PairingResult) {
	select {
	case res := <-result:
		switch {
		case res.Err == nil:
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "resolved",
				"thing":  res.Thing,
			})
		case errors.Is(res.Err, manager.ErrPairingTimeout):
			writeError(w, http.StatusRequestTimeout, "session_timeout", "no device arrived before the session expired")
		case errors.Is(res.Err, manager.ErrPairingCancelled):
			writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
		default:
			writeInternalError(w, "session failed")
		}
	case <-r.Context().Done():
		// Client disconnected; nothing left to write.
	}
}
