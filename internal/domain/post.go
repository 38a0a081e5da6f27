package domain

import "time"

// Post is a blog article stored in the repository.
type Post struct {
	// ID is a time-ordered UUID assigned at creation.
	ID string

	Title string
	Body  string

	// AuthorID references the User who created the post.
	AuthorID string

	// ImageID references an image in the ImageStore. Empty when the post
	// has no image.
	ImageID string

	CreatedAt time.Time
}

// HasImage reports whether the post references an uploaded image.
func (p Post) HasImage() bool {
	return p.ImageID != ""
}

// Comment is a reply attached to a post.
type Comment struct {
	ID       string
	PostID   string
	AuthorID string

	// AuthorName is copied from the author at creation so the thread can be
	// rendered without a user lookup.
	AuthorName string

	Body      string
	CreatedAt time.Time
}

// User is an account that can sign in, write posts and comment.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName returns the name to greet the user with, falling back to the
// email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session binds a bearer token to a user. Only the SHA-256 hash of the token
// is persisted.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SearchResult is a single entry returned by SearchPosts.
type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}
