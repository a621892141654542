package app

import (
	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/store"
)

// Votes is the idempotent per-(message, session) endorsement ledger.
// Setting a set vote and resetting an unset one are no-ops; the count only
// ever reflects distinct sessions currently voting.
type Votes struct {
	Store *store.Store
}

// Set records the vote and reports whether the presence actually changed.
func (v *Votes) Set(room domain.RoomID, msg domain.MessageID, sess domain.SessionID) (bool, error) {
	return v.Store.PutVote(room, msg, sess)
}

// Reset removes the vote and reports whether the presence actually changed.
func (v *Votes) Reset(room domain.RoomID, msg domain.MessageID, sess domain.SessionID) (bool, error) {
	return v.Store.DeleteVote(room, msg, sess)
}

func (v *Votes) Count(room domain.RoomID, msg domain.MessageID) (int, error) {
	return v.Store.CountVotes(room, msg)
}

func (v *Votes) BySession(room domain.RoomID, sess domain.SessionID) ([]domain.MessageID, error) {
	return v.Store.VotesBySession(room, sess)
}
