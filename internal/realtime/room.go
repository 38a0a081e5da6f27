package realtime

import (
	"sync"
	"time"
)

type peer struct {
	id       uint64
	viewer   *Viewer
	joinedAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(id uint64, viewer *Viewer, joinedAt time.Time, buffer int) *peer {
	return &peer{
		id:       id,
		viewer:   viewer,
		joinedAt: joinedAt,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

// enqueue hands msg to the peer's writer without blocking. It reports false
// when the peer is closed or its buffer is full.
func (p *peer) enqueue(msg []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// room is the set of peers watching one post, in join order.
type room struct {
	mu     sync.Mutex
	postID string
	peers  []*peer
}

func newRoom(postID string) *room {
	return &room{postID: postID}
}

func (r *room) join(p *peer) {
	r.mu.Lock()
	r.peers = append(r.peers, p)
	r.mu.Unlock()
}

// leave removes p and reports whether the room is now empty.
func (r *room) leave(p *peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.peers {
		if existing == p {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			break
		}
	}
	return len(r.peers) == 0
}

func (r *room) snapshot() []*peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*peer(nil), r.peers...)
}

// presence lists each signed-in user once, ordered by their earliest
// connection. Anonymous peers are not listed.
func (r *room) presence() []PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := []PresenceEntry{}
	seen := make(map[string]struct{}, len(r.peers))
	for _, p := range r.peers {
		if p.viewer == nil {
			continue
		}
		if _, ok := seen[p.viewer.ID]; ok {
			continue
		}
		seen[p.viewer.ID] = struct{}{}
		entries = append(entries, PresenceEntry{
			UserID:   p.viewer.ID,
			Name:     p.viewer.Name,
			JoinedAt: p.joinedAt,
		})
	}
	return entries
}
