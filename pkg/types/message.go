package types

// Role identifies the author of a message. The set is closed.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry in a session's conversation history.
// Messages are immutable once stored.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
