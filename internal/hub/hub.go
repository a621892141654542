// Package hub is the in-process fan-out layer: one broadcast channel per
// room, created lazily and shared by every publisher and subscriber for the
// life of the process. It holds no authoritative state; after a crash the
// map rebuilds itself on first access.
package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sampsyo/band/internal/domain"
)

// subscriber buffer size. A receiver that falls this far behind gets events
// dropped rather than stalling the publisher; it reconciles via history.
const sendBuffer = 32

type Hub struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*RoomChannel
}

func New() *Hub {
	return &Hub{rooms: make(map[domain.RoomID]*RoomChannel)}
}

// Room returns the room's broadcast channel, creating it on first access.
// Concurrent first-accesses for the same room resolve to a single channel.
func (h *Hub) Room(id domain.RoomID) *RoomChannel {
	h.mu.RLock()
	rc, ok := h.rooms[id]
	h.mu.RUnlock()
	if ok {
		return rc
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if rc, ok = h.rooms[id]; ok {
		return rc
	}
	rc = &RoomChannel{room: id, subs: make(map[uint64]chan domain.Event)}
	h.rooms[id] = rc
	return rc
}

// RoomChannel fans events out to every currently attached subscriber. It
// also carries the per-room ordering lock the dispatcher holds across a
// persist+publish pair, so publication order matches persistence order.
type RoomChannel struct {
	room domain.RoomID

	// Order serializes persist-then-publish sequences for the room.
	Order sync.Mutex

	mu   sync.RWMutex
	subs map[uint64]chan domain.Event
	next uint64
}

// Subscribe attaches a new receiver and returns it with its detach
// function. Detaching is idempotent and closes the channel. Events
// published before the subscription are not replayed.
func (rc *RoomChannel) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, sendBuffer)
	rc.mu.Lock()
	id := rc.next
	rc.next++
	rc.subs[id] = ch
	rc.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Close under the write lock: Publish sends under the read
			// lock, so a send can never hit a closed channel.
			rc.mu.Lock()
			delete(rc.subs, id)
			close(ch)
			rc.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber attached right now. Delivery is
// best-effort: a full subscriber is skipped, never waited on.
func (rc *RoomChannel) Publish(ev domain.Event) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	for _, ch := range rc.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("module", "hub").Uint64("room", uint64(rc.room)).Msg("slow subscriber, event dropped")
		}
	}
}

// Subscribers reports how many receivers are currently attached.
func (rc *RoomChannel) Subscribers() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.subs)
}
