package domain

import (
	"io"

	"github.com/google/uuid"
)

// User represents the authenticated account as reported by the authority.
type User struct {
	ID        int64     `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
}

// Credentials is the login payload. The identifier may be a username or an
// email address; the authority decides which it accepts.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Profile carries the fields submitted when registering a new account.
type Profile struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// Attachment is a file uploaded alongside a multipart registration,
// typically an avatar image.
type Attachment struct {
	Field    string
	Filename string
	Reader   io.Reader
}

// Clone returns a copy of the user so callers cannot mutate cached state
// through a shared pointer.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
