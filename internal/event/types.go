package event

import "github.com/parley-ai/parley/pkg/types"

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	Info *types.Session `json:"info"`
}

// SessionRenamedData is the data for session.renamed events.
type SessionRenamedData struct {
	Info *types.Session `json:"info"`
}

// SessionDeletedData is the data for session.deleted events.
type SessionDeletedData struct {
	SessionID string `json:"sessionID"`
}

// TurnStartedData is the data for turn.started events.
type TurnStartedData struct {
	SessionID string `json:"sessionID"`
}

// TurnCompletedData is the data for turn.completed events.
type TurnCompletedData struct {
	SessionID string `json:"sessionID"`
	// Fragments is the number of fragments streamed for the turn.
	Fragments int `json:"fragments"`
}

// TurnErroredData is the data for turn.errored events. Persistence
// failures after a fully streamed reply surface here and nowhere else;
// the response to the caller is already closed by then.
type TurnErroredData struct {
	SessionID string `json:"sessionID"`
	Stage     string `json:"stage"` // "loading" | "streaming" | "persisting"
	Error     string `json:"error"`
}

// UserLoggedInData is the data for user.loggedin events.
type UserLoggedInData struct {
	Info *types.User `json:"info"`
}
