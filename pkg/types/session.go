// Package types provides the core data types for the Parley server.
package types

// Session is a named, owned, append-only conversation record.
type Session struct {
	ID       string      `json:"id"`
	Owner    string      `json:"owner"`
	Title    string      `json:"title"`
	Intent   string      `json:"intent"`
	Time     SessionTime `json:"time"`
	Messages []Message   `json:"messages"`
}

// SessionTime contains timestamps for a session, in Unix milliseconds.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
