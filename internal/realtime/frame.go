package realtime

import (
	"encoding/json"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
)

// Frame types sent to viewers.
const (
	FramePresence = "presence"
	FrameComment  = "comment"
	FrameError    = "error"
)

// Frame is the envelope of every message written to a viewer.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Viewer identifies a signed-in user watching a post.
type Viewer struct {
	ID   string
	Name string
}

// PresenceEntry is one distinct user currently watching a post.
type PresenceEntry struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// CommentPayload is the wire form of a comment pushed to viewers.
type CommentPayload struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentPayload converts a domain comment for the wire.
func NewCommentPayload(c domain.Comment) CommentPayload {
	return CommentPayload{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}

// ErrorPayload carries a human-readable problem description.
type ErrorPayload struct {
	Message string `json:"message"`
}

func encodeFrame(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Payload: raw})
}
