package domain

import "time"

// User is the domain model for registered accounts. Exactly one of Email or
// Username acts as the login identifier, depending on the configured IdentifierKind.
type User struct {
	ID             string
	Username       string
	Email          string
	Name           string
	Phone          string
	NIC            string
	PaymentAccount string
	PasswordHash   string
	CreatedAt      time.Time
}

// Identifier returns the value of the login key for the given kind.
func (u *User) Identifier(kind IdentifierKind) string {
	if kind == IdentifierUsername {
		return u.Username
	}
	return u.Email
}
