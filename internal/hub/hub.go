package hub

import (
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

// Peer is one registered connection. Send must not block: it reports false when the
// peer's outbound queue cannot take the payload. Close must be idempotent.
type Peer interface {
	ID() string
	Send(payload []byte) bool
	Close()
}

// Registry tracks which peers are connected to which room key.
type Registry interface {
	Connect(peer Peer, key domain.RoomKey)
	Disconnect(peer Peer, key domain.RoomKey)
	Broadcast(payload []byte, key domain.RoomKey, exclude Peer) int
}

// Hub is the in-process Registry. Peers under a key are kept in registration order.
type Hub struct {
	rooms   map[domain.RoomKey][]Peer
	roomsMu sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[domain.RoomKey][]Peer)}
}

// Connect registers peer under key. Connecting the same peer twice is a no-op.
func (h *Hub) Connect(peer Peer, key domain.RoomKey) {
	if peer == nil {
		logrus.Error("Hub: attempted to connect a nil peer")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":    key.RoomID,
		"file_id":    key.FileID,
		"session_id": peer.ID(),
	})

	h.roomsMu.Lock()
	peers := h.rooms[key]
	// a second Connect for the same peer changes nothing
	if lo.Contains(peers, peer) {
		h.roomsMu.Unlock()
		logCtx.Debug("Peer already connected")
		return
	}
	// appended last, so broadcast order follows registration order
	h.rooms[key] = append(peers, peer)
	count := len(h.rooms[key])
	h.roomsMu.Unlock()

	logCtx.WithField("connections", count).Info("Peer connected")
}

// Disconnect removes peer from key and closes it. The key is dropped once empty.
// Disconnecting a peer that is not registered does nothing.
func (h *Hub) Disconnect(peer Peer, key domain.RoomKey) {
	if peer == nil {
		return
	}
	h.roomsMu.Lock()
	peers, ok := h.rooms[key]
	if !ok || !lo.Contains(peers, peer) {
		h.roomsMu.Unlock()
		return
	}
	remaining := lo.Without(peers, peer)
	// drop empty keys so RoomCount only counts live rooms
	if len(remaining) == 0 {
		delete(h.rooms, key)
	} else {
		h.rooms[key] = remaining
	}
	h.roomsMu.Unlock()

	// close outside the lock; Close may wait on the session's send mutex
	peer.Close()
	logrus.WithFields(logrus.Fields{
		"room_id":     key.RoomID,
		"file_id":     key.FileID,
		"session_id":  peer.ID(),
		"connections": len(remaining),
	}).Info("Peer disconnected")
}

// Broadcast hands payload to every peer under key except exclude and returns how many
// accepted it. A peer whose queue is full is evicted.
func (h *Hub) Broadcast(payload []byte, key domain.RoomKey, exclude Peer) int {
	// snapshot the targets, then send without holding the lock
	h.roomsMu.RLock()
	targets := make([]Peer, 0, len(h.rooms[key]))
	for _, p := range h.rooms[key] {
		if p != exclude {
			targets = append(targets, p)
		}
	}
	h.roomsMu.RUnlock()

	delivered := 0
	for _, p := range targets {
		if p.Send(payload) {
			delivered++
			continue
		}
		// a full queue means the peer stopped reading
		logrus.WithFields(logrus.Fields{
			"room_id":    key.RoomID,
			"file_id":    key.FileID,
			"session_id": p.ID(),
		}).Warn("Peer queue full during broadcast, evicting")
		h.Disconnect(p, key)
	}
	return delivered
}

// RoomCount returns the number of keys with at least one peer.
func (h *Hub) RoomCount() int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms)
}

// ConnectionCount returns the number of peers under key.
func (h *Hub) ConnectionCount(key domain.RoomKey) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[key])
}

// ActiveKeys lists every key with at least one peer, in no particular order.
func (h *Hub) ActiveKeys() []domain.RoomKey {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return lo.Keys(h.rooms)
}

// CloseAll disconnects every peer. Used on shutdown.
func (h *Hub) CloseAll() {
	h.roomsMu.Lock()
	rooms := h.rooms
	h.rooms = make(map[domain.RoomKey][]Peer)
	h.roomsMu.Unlock()

	total := 0
	for _, peers := range rooms {
		for _, p := range peers {
			p.Close()
			total++
		}
	}
	logrus.WithField("connections", total).Info("Hub closed all peers")
}
