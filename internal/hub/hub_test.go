package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffy-dev/The-Loom/internal/domain"
)

type fakePeer struct {
	id     string
	queue  chan []byte
	mu     sync.Mutex
	closed bool
	order  *[]string
	orderM *sync.Mutex
}

func newFakePeer(id string, capacity int) *fakePeer {
	return &fakePeer{id: id, queue: make(chan []byte, capacity)}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(payload []byte) bool {
	select {
	case p.queue <- payload:
		if p.order != nil {
			p.orderM.Lock()
			*p.order = append(*p.order, p.id)
			p.orderM.Unlock()
		}
		return true
	default:
		return false
	}
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var testKey = domain.RoomKey{RoomID: "abc123", FileID: "doc1"}

func TestHub_ConnectDisconnect(t *testing.T) {
	h := NewHub()
	a, b := newFakePeer("a", 1), newFakePeer("b", 1)

	h.Connect(a, testKey)
	h.Connect(a, testKey)
	h.Connect(b, testKey)
	assert.Equal(t, 2, h.ConnectionCount(testKey))
	assert.Equal(t, 1, h.RoomCount())
	assert.Equal(t, []domain.RoomKey{testKey}, h.ActiveKeys())

	h.Disconnect(a, testKey)
	assert.True(t, a.isClosed())
	assert.Equal(t, 1, h.ConnectionCount(testKey))

	h.Disconnect(b, testKey)
	assert.Equal(t, 0, h.ConnectionCount(testKey))
	assert.Equal(t, 0, h.RoomCount(), "empty key must be dropped")
}

func TestHub_DisconnectAbsentIsNoop(t *testing.T) {
	h := NewHub()
	a, stranger := newFakePeer("a", 1), newFakePeer("x", 1)
	h.Connect(a, testKey)

	h.Disconnect(stranger, testKey)
	h.Disconnect(a, domain.RoomKey{RoomID: "other", FileID: "1"})

	assert.Equal(t, 1, h.ConnectionCount(testKey))
	assert.False(t, stranger.isClosed())
	assert.False(t, a.isClosed())
}

func TestHub_BroadcastExcludesSenderInOrder(t *testing.T) {
	h := NewHub()
	var order []string
	var orderMu sync.Mutex
	peers := make([]*fakePeer, 5)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("p%d", i), 4)
		peers[i].order, peers[i].orderM = &order, &orderMu
		h.Connect(peers[i], testKey)
	}
	other := newFakePeer("elsewhere", 4)
	h.Connect(other, domain.RoomKey{RoomID: "abc123", FileID: "doc2"})

	n := h.Broadcast([]byte{0x03}, testKey, peers[2])

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"p0", "p1", "p3", "p4"}, order)
	assert.Len(t, peers[2].queue, 0)
	assert.Len(t, other.queue, 0)
	for _, i := range []int{0, 1, 3, 4} {
		require.Len(t, peers[i].queue, 1)
		assert.Equal(t, []byte{0x03}, <-peers[i].queue)
	}
}

func TestHub_BroadcastEvictsFullPeer(t *testing.T) {
	h := NewHub()
	slow := newFakePeer("slow", 0)
	fast := newFakePeer("fast", 1)
	h.Connect(slow, testKey)
	h.Connect(fast, testKey)

	n := h.Broadcast([]byte("x"), testKey, nil)

	assert.Equal(t, 1, n)
	assert.True(t, slow.isClosed())
	assert.Equal(t, 1, h.ConnectionCount(testKey))
	assert.Len(t, fast.queue, 1)
}

func TestHub_BroadcastUnknownKey(t *testing.T) {
	assert.Equal(t, 0, NewHub().Broadcast([]byte("x"), testKey, nil))
}

func TestHub_ConcurrentConnectDisconnect(t *testing.T) {
	h := NewHub()
	const workers = 50
	peers := make([]*fakePeer, workers)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("p%d", i), 64)
	}

	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Add(1)
		go func(i int, p *fakePeer) {
			defer wg.Done()
			h.Connect(p, testKey)
			h.Broadcast([]byte("hi"), testKey, p)
			if i%2 == 0 {
				h.Disconnect(p, testKey)
				h.Disconnect(p, testKey)
			}
		}(i, p)
	}
	wg.Wait()

	assert.Equal(t, workers/2, h.ConnectionCount(testKey))
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	a, b := newFakePeer("a", 1), newFakePeer("b", 1)
	h.Connect(a, testKey)
	h.Connect(b, domain.RoomKey{RoomID: "r", FileID: "f"})

	h.CloseAll()

	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
	assert.Equal(t, 0, h.RoomCount())
}
