// Package app composes the store and the hub into the room event engine:
// validate, persist, then publish, in that order.
package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/domain"
	"github.com/sampsyo/band/internal/hub"
	"github.com/sampsyo/band/internal/store"
)

// Dispatcher orchestrates every room operation. It is stateless; all
// authoritative state lives in the store, all fan-out state in the hub.
type Dispatcher struct {
	Store    *store.Store
	Sessions *Sessions
	Votes    *Votes
	Hub      *hub.Hub
}

func NewDispatcher(st *store.Store, h *hub.Hub) *Dispatcher {
	return &Dispatcher{
		Store:    st,
		Sessions: &Sessions{Store: st},
		Votes:    &Votes{Store: st},
		Hub:      h,
	}
}

// CreateRoom creates the room and eagerly materializes its broadcast
// channel, so the first subscriber never races the first publisher over
// channel creation.
func (d *Dispatcher) CreateRoom() (domain.RoomID, error) {
	id, err := d.Store.CreateRoom()
	if err != nil {
		return 0, err
	}
	d.Hub.Room(id)
	log.Info().Str("module", "app").Uint64("room", uint64(id)).Msg("room created")
	return id, nil
}

func (d *Dispatcher) RoomExists(room domain.RoomID) (bool, error) {
	return d.Store.RoomExists(room)
}

func (d *Dispatcher) requireRoom(room domain.RoomID) error {
	ok, err := d.Store.RoomExists(room)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRoomNotFound
	}
	return nil
}

// PostMessage validates the room and session, durably appends the message,
// and publishes it to the room's live channel. The append and the publish
// run under the room's ordering lock, so subscribers see events in exactly
// persistence order and never before the data is durable.
func (d *Dispatcher) PostMessage(room domain.RoomID, session domain.SessionID, body string) (domain.OutgoingMessage, error) {
	if err := d.requireRoom(room); err != nil {
		return domain.OutgoingMessage{}, err
	}
	sess, err := d.Sessions.Require(room, session)
	if err != nil {
		return domain.OutgoingMessage{}, err
	}

	rc := d.Hub.Room(room)
	rc.Order.Lock()
	defer rc.Order.Unlock()

	rec, err := d.Store.AppendMessage(room, session, body)
	if err != nil {
		return domain.OutgoingMessage{}, err
	}
	out := domain.OutgoingMessage{
		ID:    rec.ID,
		Body:  rec.Message.Body,
		User:  sess.User,
		Votes: 0,
		TS:    rec.Message.TS,
	}
	rc.Publish(domain.MessageEvent{Message: out})
	log.Info().Str("module", "app").Uint64("room", uint64(room)).Uint64("msg", uint64(rec.ID)).Msg("message posted")
	return out, nil
}

// GetHistory returns the room's messages in ascending id order, each joined
// with its author's current label and live vote count. A message whose
// author session cannot be resolved is logged and skipped rather than
// failing the whole read.
func (d *Dispatcher) GetHistory(room domain.RoomID) ([]domain.OutgoingMessage, error) {
	if err := d.requireRoom(room); err != nil {
		return nil, err
	}
	sessions, err := d.Store.ReadAllSessions(room)
	if err != nil {
		return nil, err
	}
	records, err := d.Store.ReadAllMessages(room)
	if err != nil {
		return nil, err
	}

	out := make([]domain.OutgoingMessage, 0, len(records))
	for _, rec := range records {
		author, ok := sessions[rec.Message.Session]
		if !ok {
			log.Warn().Str("module", "app").
				Uint64("room", uint64(room)).
				Uint64("msg", uint64(rec.ID)).
				Msg("message author missing, record skipped")
			continue
		}
		votes, err := d.Votes.Count(room, rec.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OutgoingMessage{
			ID:    rec.ID,
			Body:  rec.Message.Body,
			User:  author.User,
			Votes: votes,
			TS:    rec.Message.TS,
		})
	}
	return out, nil
}

// CastVote sets or resets the session's vote on the message. Only a real
// presence transition publishes a VoteEvent; an idempotent repeat has no
// delta to announce. The transition and its publication share the room's
// ordering lock.
func (d *Dispatcher) CastVote(room domain.RoomID, session domain.SessionID, msg domain.MessageID, want bool) error {
	if err := d.requireRoom(room); err != nil {
		return err
	}
	if _, err := d.Sessions.Require(room, session); err != nil {
		return err
	}

	rc := d.Hub.Room(room)
	rc.Order.Lock()
	defer rc.Order.Unlock()

	var (
		changed bool
		err     error
		delta   int
	)
	if want {
		changed, err = d.Votes.Set(room, msg, session)
		delta = 1
	} else {
		changed, err = d.Votes.Reset(room, msg, session)
		delta = -1
	}
	if err != nil {
		return err
	}
	if changed {
		rc.Publish(domain.VoteEvent{Message: msg, Delta: delta})
	}
	return nil
}

func (d *Dispatcher) VoteCount(room domain.RoomID, msg domain.MessageID) (int, error) {
	return d.Votes.Count(room, msg)
}

// VotedMessages lists the messages the session currently endorses, so a
// reconnecting client can restore its own vote markers.
func (d *Dispatcher) VotedMessages(room domain.RoomID, session domain.SessionID) ([]domain.MessageID, error) {
	if err := d.requireRoom(room); err != nil {
		return nil, err
	}
	if _, err := d.Sessions.Require(room, session); err != nil {
		return nil, err
	}
	return d.Votes.BySession(room, session)
}

// Subscribe attaches a live receiver to the room. Events published before
// the call are not replayed; callers reconcile by reading history first,
// then subscribing.
func (d *Dispatcher) Subscribe(room domain.RoomID) (<-chan domain.Event, func(), error) {
	if err := d.requireRoom(room); err != nil {
		return nil, nil, err
	}
	ch, cancel := d.Hub.Room(room).Subscribe()
	return ch, cancel, nil
}

// CreateSession opens a new session in the room.
func (d *Dispatcher) CreateSession(room domain.RoomID, user string) (domain.SessionID, error) {
	if err := d.requireRoom(room); err != nil {
		return 0, err
	}
	return d.Sessions.Create(room, user)
}

// GetSession resolves a presented session id, ErrInvalidSession on a miss.
func (d *Dispatcher) GetSession(room domain.RoomID, session domain.SessionID) (domain.Session, error) {
	if err := d.requireRoom(room); err != nil {
		return domain.Session{}, err
	}
	return d.Sessions.Require(room, session)
}

// RenameSession changes the session's user label. No event is published;
// labels re-resolve on the next history read.
func (d *Dispatcher) RenameSession(room domain.RoomID, session domain.SessionID, user string) error {
	if err := d.requireRoom(room); err != nil {
		return err
	}
	if _, err := d.Sessions.Require(room, session); err != nil {
		return err
	}
	err := d.Sessions.Rename(room, session, user)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidSession
	}
	return err
}
