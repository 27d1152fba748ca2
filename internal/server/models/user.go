package models

// SessionID identifies one live transport connection. The hub owns the
// session itself; everything else refers to it only by ID.
type SessionID string

func (id SessionID) String() string { return string(id) }

// User is one registration: a username bound to a public key and the session
// that claimed it. Records are immutable; re-registration replaces them.
type User struct {
	Username  string
	PublicKey string
	Session   SessionID
}
