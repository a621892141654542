// Package store is the single source of truth for rooms, sessions,
// messages, and votes. It keeps four ordered collections in a bbolt file:
// a global room-existence bucket, and per-room sub-buckets for sessions,
// messages, and votes, so operations on one room never scan another's data.
package store

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/sampsyo/band/internal/domain"
)

var (
	bucketRooms    = []byte("rooms")
	bucketSessions = []byte("sessions")
	bucketMessages = []byte("messages")
	bucketVotes    = []byte("votes")
)

type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database file and ensures the
// top-level buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRooms, bucketSessions, bucketMessages, bucketVotes} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	log.Info().Str("module", "store").Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key64(v uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], v)
	return k[:]
}

// randID draws an unpredictable non-zero 64-bit id. Room and session ids
// double as capabilities, so they must not be guessable or enumerable.
func randID() (uint64, error) {
	for {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		if v := binary.BigEndian.Uint64(b[:]); v != 0 {
			return v, nil
		}
	}
}

// roomBucket returns the per-room sub-bucket of parent, or nil if the room
// was never created.
func roomBucket(tx *bolt.Tx, parent []byte, room domain.RoomID) *bolt.Bucket {
	return tx.Bucket(parent).Bucket(key64(uint64(room)))
}

// CreateRoom generates an unpredictable room id and records its existence.
// Collisions are treated as effectively impossible but are detected and
// retried rather than overwriting an existing room.
func (s *Store) CreateRoom() (domain.RoomID, error) {
	var id domain.RoomID
	err := s.db.Update(func(tx *bolt.Tx) error {
		rooms := tx.Bucket(bucketRooms)
		for {
			raw, err := randID()
			if err != nil {
				return err
			}
			if rooms.Get(key64(raw)) != nil {
				continue
			}
			id = domain.RoomID(raw)
			break
		}
		meta, err := json.Marshal(struct {
			TS time.Time `json:"ts"`
		}{time.Now().UTC()})
		if err != nil {
			return err
		}
		if err := rooms.Put(key64(uint64(id)), meta); err != nil {
			return err
		}
		// Materialize the room's collections up front so every later
		// operation can treat a missing sub-bucket as "room not found".
		for _, parent := range [][]byte{bucketSessions, bucketMessages, bucketVotes} {
			if _, err := tx.Bucket(parent).CreateBucketIfNotExists(key64(uint64(id))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, &domain.StorageError{Op: "create room", Err: err}
	}
	return id, nil
}

func (s *Store) RoomExists(room domain.RoomID) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketRooms).Get(key64(uint64(room))) != nil
		return nil
	})
	if err != nil {
		return false, &domain.StorageError{Op: "room exists", Err: err}
	}
	return exists, nil
}

// CreateSession inserts a new session into the room with an unpredictable
// id, retrying on the (negligible) chance of collision.
func (s *Store) CreateSession(room domain.RoomID, user string) (domain.SessionID, error) {
	var id domain.SessionID
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketSessions, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		for {
			raw, err := randID()
			if err != nil {
				return err
			}
			if b.Get(key64(raw)) != nil {
				continue
			}
			id = domain.SessionID(raw)
			break
		}
		val, err := json.Marshal(domain.Session{User: user, TS: time.Now().UTC()})
		if err != nil {
			return err
		}
		return b.Put(key64(uint64(id)), val)
	})
	if err == domain.ErrRoomNotFound {
		return 0, err
	}
	if err != nil {
		return 0, &domain.StorageError{Op: "create session", Err: err}
	}
	return id, nil
}

func (s *Store) GetSession(room domain.RoomID, id domain.SessionID) (domain.Session, error) {
	var sess domain.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketSessions, room)
		if b == nil {
			return domain.ErrNotFound
		}
		raw := b.Get(key64(uint64(id)))
		if raw == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(raw, &sess)
	})
	if err == domain.ErrNotFound {
		return domain.Session{}, err
	}
	if err != nil {
		return domain.Session{}, &domain.StorageError{Op: "get session", Err: err}
	}
	return sess, nil
}

// UpdateSessionUser rewrites the session's user label in place, preserving
// its creation time. The read and write share one transaction, so a
// concurrent update cannot be lost.
func (s *Store) UpdateSessionUser(room domain.RoomID, id domain.SessionID, user string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketSessions, room)
		if b == nil {
			return domain.ErrNotFound
		}
		raw := b.Get(key64(uint64(id)))
		if raw == nil {
			return domain.ErrNotFound
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return err
		}
		sess.User = user
		val, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return b.Put(key64(uint64(id)), val)
	})
	if err == domain.ErrNotFound || err == nil {
		return err
	}
	return &domain.StorageError{Op: "update session", Err: err}
}

// ReadAllSessions loads the room's full session table, used to resolve
// author labels in bulk during a history read.
func (s *Store) ReadAllSessions(room domain.RoomID) (map[domain.SessionID]domain.Session, error) {
	out := make(map[domain.SessionID]domain.Session)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, bucketSessions, room)
		if b == nil {
			return domain.ErrRoomNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			var sess domain.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return err
			}
			out[domain.SessionID(binary.BigEndian.Uint64(k))] = sess
			return nil
		})
	})
	if err == domain.ErrRoomNotFound {
		return nil, err
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "read sessions", Err: err}
	}
	return out, nil
}
