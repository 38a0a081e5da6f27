package domain

import (
	"context"
	"time"
)

// PostRepository defines persistence operations for posts, including the
// two full-text indices used by search.
type PostRepository interface {
	// CreatePost inserts a new post.
	CreatePost(ctx context.Context, post *Post) error

	// GetPost returns the post with the given ID or ErrNotFound.
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns all posts, newest first.
	ListPosts(ctx context.Context) ([]Post, error)

	// SearchTitle returns up to limit posts whose title matches term, best
	// match first.
	SearchTitle(ctx context.Context, term string, limit int) ([]Post, error)

	// SearchBody returns up to limit posts whose body matches term, best
	// match first.
	SearchBody(ctx context.Context, term string, limit int) ([]Post, error)
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *Comment) error

	// ListComments returns the comments of a post, oldest first.
	ListComments(ctx context.Context, postID string) ([]Comment, error)
}

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	// CreateUser inserts a user. Returns ErrEmailTaken when the email is
	// already registered.
	CreateUser(ctx context.Context, user *User) error

	// GetUser returns the user with the given ID or ErrNotFound.
	GetUser(ctx context.Context, id string) (*User, error)

	// GetUserByEmail returns the user with the given email or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// SessionRepository defines persistence operations for sign-in sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error

	// GetSession returns the session for a token hash or ErrNotFound.
	GetSession(ctx context.Context, tokenHash string) (*Session, error)

	DeleteSession(ctx context.Context, tokenHash string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ImageStore holds uploaded image bytes. Images start out pending and become
// attached once a post references them; pending images are garbage after a
// grace period.
type ImageStore interface {
	// PutPending stores a new unattached image and returns its ID.
	PutPending(ctx context.Context, ownerID string, upload Upload) (string, error)

	// Attach marks an image uploaded by ownerID as referenced. Returns
	// ErrImageNotFound for unknown IDs and for images owned by someone else.
	Attach(ctx context.Context, ownerID, id string) error

	// Detach returns an attached image to pending so cleanup can reclaim it.
	Detach(ctx context.Context, id string) error

	// Get returns the image bytes and metadata or ErrImageNotFound.
	Get(ctx context.Context, id string) ([]byte, *ImageMeta, error)

	// DeleteOrphans removes pending images created before cutoff and returns
	// how many were removed.
	DeleteOrphans(ctx context.Context, cutoff time.Time) (int, error)
}

// UploadSigner issues and verifies the short-lived tokens embedded in image
// upload URLs.
type UploadSigner interface {
	Sign(userID string, ttl time.Duration) (string, error)

	// Verify returns the user ID the token was issued to.
	Verify(token string) (string, error)
}

// CommentPublisher pushes newly created comments to live viewers of a post.
type CommentPublisher interface {
	PublishComment(ctx context.Context, comment Comment)
}
