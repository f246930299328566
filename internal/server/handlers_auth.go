package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parley-ai/parley/internal/auth"
	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/user"
	"github.com/parley-ai/parley/pkg/types"
)

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	User  *types.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

// login handles POST /login. It upserts the user record keyed by email and
// returns a bearer token when a signing secret is configured.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	u, err := s.users.Upsert(r.Context(), req.Email, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, user.ErrValidation) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	resp := LoginResponse{User: u}
	if secret := s.authSecret(); secret != "" {
		token, err := auth.CreateToken(auth.Identity{
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		}, secret)
		if err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		resp.Token = token
	}

	s.bus.Publish(event.Event{Type: event.UserLoggedIn, Data: event.UserLoggedInData{Info: u}})

	writeJSON(w, http.StatusOK, resp)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
