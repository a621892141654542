package domain

import (
	"errors"
	"time"
)

const MaxUserLen = 36

var (
	ErrUserTooLong = errors.New("user name too long")
	ErrUserEmpty   = errors.New("user name empty")
)

// Session is a bearer identity scoped to one room. The user label is the
// only mutable field.
type Session struct {
	User string    `json:"user"`
	TS   time.Time `json:"ts"`
}

// Message is immutable after creation. The author label is not stored here;
// it is resolved from the session at read time.
type Message struct {
	Body    string    `json:"body"`
	Session SessionID `json:"session"`
	TS      time.Time `json:"ts"`
}

// OutgoingMessage is a message joined with its author label and live vote
// count, as delivered to clients in history reads and live events.
type OutgoingMessage struct {
	ID    MessageID `json:"id"`
	Body  string    `json:"body"`
	User  string    `json:"user"`
	Votes int       `json:"votes"`
	TS    time.Time `json:"ts"`
}

// ValidUser rejects labels the UI cannot render.
func ValidUser(user string) error {
	if len(user) == 0 {
		return ErrUserEmpty
	}
	if len(user) > MaxUserLen {
		return ErrUserTooLong
	}
	return nil
}
