package types

// User is an authenticated account record. Users are created or refreshed
// on login and referenced by sessions through their ID.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	LastLogin int64  `json:"lastLogin"`
}
