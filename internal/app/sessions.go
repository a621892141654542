package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/store"
)

// Sessions enforces the bearer rule: a session id is only good for the room
// it was created in. Every write path that attributes authorship goes
// through Require.
type Sessions struct {
	Store *store.Store
}

// Require resolves the presented session id within the room. A session that
// was never created, or was created in a different room, fails identically
// with ErrInvalidSession so ids leak nothing across rooms.
func (s *Sessions) Require(room domain.RoomID, presented domain.SessionID) (domain.Session, error) {
	sess, err := s.Store.GetSession(room, presented)
	if errors.Is(err, domain.ErrNotFound) {
		log.Debug().Str("module", "app.sessions").Uint64("room", uint64(room)).Msg("rejected unknown session")
		return domain.Session{}, domain.ErrInvalidSession
	}
	if err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Create registers a new session in the room after validating the label.
func (s *Sessions) Create(room domain.RoomID, user string) (domain.SessionID, error) {
	if err := domain.ValidUser(user); err != nil {
		return 0, err
	}
	return s.Store.CreateSession(room, user)
}

// Rename updates the session's user label in place. Historical messages by
// this session re-render under the new label on the next history read.
func (s *Sessions) Rename(room domain.RoomID, id domain.SessionID, user string) error {
	if err := domain.ValidUser(user); err != nil {
		return err
	}
	return s.Store.UpdateSessionUser(room, id, user)
}
