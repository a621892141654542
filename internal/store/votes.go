package store

import (
	"bytes"
	"encoding/binary"

	bolt "go.etcd.io/bbolt"

	"github.com/sampsyo/band/internal/domain"
)

// Votes are rows in a per-room membership set keyed by message id then
// session id. Presence means "this session currently endorses this
// message"; there is no value worth storing.

func voteKey(msg domain.MessageID, sess domain.SessionID) []byte {
	var k [16]byte
	binary.BigEndian.PutUint64(k[:8], uint64(msg))
	binary.BigEndian.PutUint64(k[8:], uint64(sess))
	return k[:]
}

// PutVote inserts the vote row, reporting whether it was newly inserted.
// Re-inserting an existing row is a no-op. The presence check and the
// insert share one write transaction.
func (s *Store) PutVote(room domain.RoomID, msg domain.MessageID, sess domain.SessionID) (bool, error) {
	var changed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketVotes, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		k := voteKey(msg, sess)
		if b.Get(k) != nil {
			return nil
		}
		changed = true
		return b.Put(k, []byte{1})
	})
	if err == domain.ErrRoomNotFound {
		return false, err
	}
	if err != nil {
		return false, &domain.StorageError{Op: "put vote", Err: err}
	}
	return changed, nil
}

// DeleteVote removes the vote row, reporting whether it was present.
// Deleting an absent row is a no-op.
func (s *Store) DeleteVote(room domain.RoomID, msg domain.MessageID, sess domain.SessionID) (bool, error) {
	var changed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketVotes, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		k := voteKey(msg, sess)
		if b.Get(k) == nil {
			return nil
		}
		changed = true
		return b.Delete(k)
	})
	if err == domain.ErrRoomNotFound {
		return false, err
	}
	if err != nil {
		return false, &domain.StorageError{Op: "delete vote", Err: err}
	}
	return changed, nil
}

// CountVotes counts the rows sharing the message prefix: one per distinct
// session currently voting. Always a live range scan within a single view
// transaction, never a cached counter.
func (s *Store) CountVotes(room domain.RoomID, msg domain.MessageID) (int, error) {
	var n int
	prefix := key64(uint64(msg))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketVotes, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	if err == domain.ErrRoomNotFound {
		return 0, err
	}
	if err != nil {
		return 0, &domain.StorageError{Op: "count votes", Err: err}
	}
	return n, nil
}

// VotesBySession lists the ids of every message the session has voted for,
// in ascending message order.
func (s *Store) VotesBySession(room domain.RoomID, sess domain.SessionID) ([]domain.MessageID, error) {
	var out []domain.MessageID
	err := s.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketVotes, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		return b.ForEach(func(k, _ []byte) error {
			if binary.BigEndian.Uint64(k[8:]) == uint64(sess) {
				out = append(out, domain.MessageID(binary.BigEndian.Uint64(k[:8])))
			}
			return nil
		})
	})
	if err == domain.ErrRoomNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "votes by session", Err: err}
	}
	return out, nil
}
