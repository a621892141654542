package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sampsyo/band/internal/domain"
)

// MessageRecord pairs a message with its per-room id for history scans.
type MessageRecord struct {
	ID      domain.MessageID
	Message domain.Message
}

// AppendMessage allocates the next sequential message id for the room and
// inserts the message under it. Both happen in one write transaction, so
// concurrent appends get distinct, ordered, gapless ids. The stored record
// is returned for publication.
func (s *Store) AppendMessage(room domain.RoomID, author domain.SessionID, body string) (MessageRecord, error) {
	var rec MessageRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketMessages, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec = MessageRecord{
			ID: domain.MessageID(seq),
			Message: domain.Message{
				Body:    body,
				Session: author,
				TS:      time.Now().UTC(),
			},
		}
		val, err := json.Marshal(rec.Message)
		if err != nil {
			return err
		}
		return b.Put(key64(seq), val)
	})
	if err == domain.ErrRoomNotFound {
		return MessageRecord{}, err
	}
	if err != nil {
		return MessageRecord{}, &domain.StorageError{Op: "append message", Err: err}
	}
	return rec, nil
}

// ReadAllMessages scans the room's messages in ascending id order. Keys are
// big-endian, so bucket order is numeric order. Each call is a fresh scan.
func (s *Store) ReadAllMessages(room domain.RoomID) ([]MessageRecord, error) {
	var out []MessageRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketMessages, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			var msg domain.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			out = append(out, MessageRecord{
				ID:      domain.MessageID(binary.BigEndian.Uint64(k)),
				Message: msg,
			})
			return nil
		})
	})
	if err == domain.ErrRoomNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read messages", Err: err}
	}
	return out, nil
}
