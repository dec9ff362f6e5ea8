package domain

import "time"

// IdentifierKind names the user attribute used as the unique login key.
type IdentifierKind string

const (
	IdentifierEmail    IdentifierKind = "email"
	IdentifierUsername IdentifierKind = "username"
)

// Valid reports whether k is a supported identifier kind.
func (k IdentifierKind) Valid() bool {
	return k == IdentifierEmail || k == IdentifierUsername
}

// Token represents an issued session token and its metadata.
type Token struct {
	Value     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
