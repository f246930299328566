package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/session"
)

// TurnRequest represents the request body for running a turn.
type TurnRequest struct {
	Query string `json:"query"`
}

// runTurn handles POST /session/{sessionID}/turn.
// This is a streaming endpoint: reply fragments are flushed to the client
// as SSE data events the moment they are produced. End of stream marks the
// end of the turn; failures arrive in-band as a final fragment.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "query is required")
		return
	}

	// Ownership is checked before the response switches to streaming so a
	// foreign session still gets a plain 404.
	if _, err := s.sessions.GetOwned(r.Context(), identity(r).UserID, sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	sse.prepare()

	// The request context cancels the completion on client disconnect.
	err = s.orchestrator.Run(r.Context(), sessionID, req.Query, func(fragment string) error {
		return sse.writeData(fragment)
	})
	if err != nil {
		// The response is already streaming; the caller saw everything it
		// is going to see in-band.
		logging.Debug().
			Str("sessionID", sessionID).
			Err(err).
			Msg("turn finished with error")
	}
}
