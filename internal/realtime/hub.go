// Package realtime tracks who is viewing each post and pushes presence
// changes and new comments to them over websockets.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
)

const (
	defaultPingPeriod = 30 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultWriteWait  = 10 * time.Second
	maxMessageSize    = 4096
	sendBuffer        = 32
)

// Hub owns the rooms of all posts with at least one viewer. It implements
// domain.CommentPublisher.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*room
	nextID atomic.Uint64

	logger *slog.Logger
	now    func() time.Time

	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]*room),
		logger:     logger,
		now:        time.Now,
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		writeWait:  defaultWriteWait,
	}
}

// Snapshot returns the distinct signed-in users currently viewing postID.
func (h *Hub) Snapshot(postID string) []PresenceEntry {
	h.mu.Lock()
	r, ok := h.rooms[postID]
	h.mu.Unlock()
	if !ok {
		return []PresenceEntry{}
	}
	return r.presence()
}

// Rooms returns the number of posts with at least one viewer.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// PublishComment pushes a new comment to everyone viewing its post.
func (h *Hub) PublishComment(_ context.Context, comment domain.Comment) {
	h.broadcast(comment.PostID, FrameComment, NewCommentPayload(comment))
}

// Close disconnects every viewer. Websocket connections are hijacked, so
// http.Server.Shutdown does not close them on its own.
func (h *Hub) Close() {
	h.mu.Lock()
	var peers []*peer
	for _, r := range h.rooms {
		peers = append(peers, r.snapshot()...)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

func (h *Hub) join(postID string, viewer *Viewer) *peer {
	p := newPeer(h.nextID.Add(1), viewer, h.now().UTC(), sendBuffer)

	h.mu.Lock()
	r, ok := h.rooms[postID]
	if !ok {
		r = newRoom(postID)
		h.rooms[postID] = r
	}
	r.join(p)
	h.mu.Unlock()

	h.logger.Debug("viewer joined", "post_id", postID, "peer", p.id, "anonymous", viewer == nil)
	h.broadcastPresence(postID)
	return p
}

func (h *Hub) leave(postID string, p *peer) {
	p.close()

	h.mu.Lock()
	r, ok := h.rooms[postID]
	if ok && r.leave(p) {
		delete(h.rooms, postID)
	}
	h.mu.Unlock()

	h.logger.Debug("viewer left", "post_id", postID, "peer", p.id)
	if ok {
		h.broadcastPresence(postID)
	}
}

func (h *Hub) broadcastPresence(postID string) {
	h.broadcast(postID, FramePresence, h.Snapshot(postID))
}

func (h *Hub) broadcast(postID, frameType string, payload any) {
	h.mu.Lock()
	r, ok := h.rooms[postID]
	h.mu.Unlock()
	if !ok {
		return
	}

	msg, err := encodeFrame(frameType, payload)
	if err != nil {
		h.logger.Error("failed to encode frame", "type", frameType, "error", err)
		return
	}

	for _, p := range r.snapshot() {
		if !p.enqueue(msg) {
			// A viewer that cannot keep up is dropped; its reader cleans up.
			h.logger.Warn("dropping slow viewer", "post_id", postID, "peer", p.id)
			p.close()
		}
	}
}
