package domain

import "time"

// PostView is a post enriched for presentation: the image reference is
// resolved to a URL and the author to a display name.
type PostView struct {
	Post

	// ImageURL is empty when the post has no image.
	ImageURL string

	AuthorName string
}

// PostDetail is everything the post page needs in one read.
type PostDetail struct {
	PostView
	Comments []Comment
}

// ImageMeta describes an uploaded image.
type ImageMeta struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	OwnerID     string    `json:"owner_id"`
	Attached    bool      `json:"attached"`
	CreatedAt   time.Time `json:"created_at"`
}

// Upload is an image payload received from a client.
type Upload struct {
	ContentType string
	Data        []byte
}
