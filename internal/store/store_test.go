package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sampsyo/band/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "band.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomLifecycle(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateRoom()
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if id == 0 {
		t.Fatal("room id is zero")
	}

	ok, err := s.RoomExists(id)
	if err != nil || !ok {
		t.Fatalf("RoomExists(%d) = %v, %v; want true", id, ok, err)
	}

	ok, err = s.RoomExists(id + 1)
	if err != nil || ok {
		t.Fatalf("RoomExists of uncreated room = %v, %v; want false", ok, err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()

	id, err := s.CreateSession(room, "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := s.GetSession(room, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.User != "alice" {
		t.Errorf("user = %q, want alice", sess.User)
	}
	if sess.TS.IsZero() {
		t.Error("creation time not recorded")
	}

	if err := s.UpdateSessionUser(room, id, "bob"); err != nil {
		t.Fatalf("update session: %v", err)
	}
	updated, err := s.GetSession(room, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.User != "bob" {
		t.Errorf("user after update = %q, want bob", updated.User)
	}
	if !updated.TS.Equal(sess.TS) {
		t.Error("update changed creation time")
	}

	// Updating an absent session is a clean miss, not corruption.
	err = s.UpdateSessionUser(room, id+1, "eve")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update of absent session: %v, want ErrNotFound", err)
	}
}

func TestSessionScopedToRoom(t *testing.T) {
	s := newTestStore(t)
	room1, _ := s.CreateRoom()
	room2, _ := s.CreateRoom()

	id, err := s.CreateSession(room1, "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := s.GetSession(room2, id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("session visible in wrong room: %v", err)
	}
}

func TestAppendMessageOrdering(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()
	author, _ := s.CreateSession(room, "alice")

	bodies := []string{"one", "two", "three"}
	for i, body := range bodies {
		rec, err := s.AppendMessage(room, author, body)
		if err != nil {
			t.Fatalf("append %q: %v", body, err)
		}
		if rec.ID != domain.MessageID(i+1) {
			t.Errorf("message %d got id %d", i+1, rec.ID)
		}
	}

	records, err := s.ReadAllMessages(room)
	if err != nil {
		t.Fatalf("read messages: %v", err)
	}
	if len(records) != len(bodies) {
		t.Fatalf("got %d messages, want %d", len(records), len(bodies))
	}
	for i, rec := range records {
		if rec.Message.Body != bodies[i] {
			t.Errorf("message %d body = %q, want %q", i, rec.Message.Body, bodies[i])
		}
		if rec.ID != domain.MessageID(i+1) {
			t.Errorf("message %d id = %d", i, rec.ID)
		}
		if rec.Message.Session != author {
			t.Errorf("message %d author = %d, want %d", i, rec.Message.Session, author)
		}
	}
}

func TestAppendMessageConcurrent(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()
	author, _ := s.CreateSession(room, "alice")

	const n = 32
	var wg sync.WaitGroup
	ids := make(chan domain.MessageID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.AppendMessage(room, author, "concurrent")
			if err != nil {
				t.Errorf("append: %v", err)
				return
			}
			ids <- rec.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[domain.MessageID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate message id %d", id)
		}
		seen[id] = true
	}
	// Gapless: exactly ids 1..n.
	for i := 1; i <= n; i++ {
		if !seen[domain.MessageID(i)] {
			t.Errorf("missing message id %d", i)
		}
	}
}

func TestVotes(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()
	s1, _ := s.CreateSession(room, "alice")
	s2, _ := s.CreateSession(room, "bob")
	rec, _ := s.AppendMessage(room, s1, "vote on me")
	msg := rec.ID

	changed, err := s.PutVote(room, msg, s1)
	if err != nil || !changed {
		t.Fatalf("first put: changed=%v err=%v", changed, err)
	}
	changed, err = s.PutVote(room, msg, s1)
	if err != nil || changed {
		t.Fatalf("repeat put must be a no-op: changed=%v err=%v", changed, err)
	}
	if _, err := s.PutVote(room, msg, s2); err != nil {
		t.Fatalf("second session put: %v", err)
	}

	n, err := s.CountVotes(room, msg)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v; want 2", n, err)
	}

	changed, err = s.DeleteVote(room, msg, s1)
	if err != nil || !changed {
		t.Fatalf("delete: changed=%v err=%v", changed, err)
	}
	changed, err = s.DeleteVote(room, msg, s1)
	if err != nil || changed {
		t.Fatalf("repeat delete must be a no-op: changed=%v err=%v", changed, err)
	}

	n, err = s.CountVotes(room, msg)
	if err != nil || n != 1 {
		t.Fatalf("count after delete = %d, %v; want 1", n, err)
	}
}

func TestVotesBySession(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()
	s1, _ := s.CreateSession(room, "alice")
	s2, _ := s.CreateSession(room, "bob")
	m1, _ := s.AppendMessage(room, s1, "a")
	m2, _ := s.AppendMessage(room, s1, "b")
	m3, _ := s.AppendMessage(room, s1, "c")

	s.PutVote(room, m1.ID, s1)
	s.PutVote(room, m3.ID, s1)
	s.PutVote(room, m2.ID, s2)

	voted, err := s.VotesBySession(room, s1)
	if err != nil {
		t.Fatalf("votes by session: %v", err)
	}
	if len(voted) != 2 || voted[0] != m1.ID || voted[1] != m3.ID {
		t.Errorf("voted = %v, want [%d %d]", voted, m1.ID, m3.ID)
	}
}

func TestVoteCountIsolatedPerMessage(t *testing.T) {
	s := newTestStore(t)
	room, _ := s.CreateRoom()
	s1, _ := s.CreateSession(room, "alice")
	m1, _ := s.AppendMessage(room, s1, "a")
	m2, _ := s.AppendMessage(room, s1, "b")

	s.PutVote(room, m1.ID, s1)

	if n, _ := s.CountVotes(room, m2.ID); n != 0 {
		t.Errorf("vote leaked across messages: count = %d", n)
	}
}

func TestOperationsOnMissingRoom(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateSession(42, "ghost"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("create session in missing room: %v", err)
	}
	if _, err := s.AppendMessage(42, 1, "ghost"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("append in missing room: %v", err)
	}
	if _, err := s.ReadAllMessages(42); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("read messages in missing room: %v", err)
	}
}
