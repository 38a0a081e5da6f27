package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blackmichael/blogdemo/internal/domain"

// BlogOptions tunes BlogService behavior.
type BlogOptions struct {
	// UploadURL is the endpoint signed upload URLs point at.
	UploadURL string

	// ImageURLPrefix is prepended to an image ID to build its public URL.
	ImageURLPrefix string

	// UploadURLTTL is how long a generated upload URL stays valid.
	UploadURLTTL time.Duration

	// MaxUploadBytes caps the size of a single image.
	MaxUploadBytes int

	// OrphanTTL is how long an uploaded image may stay unattached before the
	// cleanup job removes it.
	OrphanTTL time.Duration
}

// DefaultBlogOptions returns the options used when a field is left zero.
func DefaultBlogOptions() BlogOptions {
	return BlogOptions{
		UploadURL:      "/api/uploads",
		ImageURLPrefix: "/images/",
		UploadURLTTL:   15 * time.Minute,
		MaxUploadBytes: 5 << 20,
		OrphanTTL:      time.Hour,
	}
}

func (o BlogOptions) withDefaults() BlogOptions {
	d := DefaultBlogOptions()
	if o.UploadURL == "" {
		o.UploadURL = d.UploadURL
	}
	if o.ImageURLPrefix == "" {
		o.ImageURLPrefix = d.ImageURLPrefix
	}
	if o.UploadURLTTL <= 0 {
		o.UploadURLTTL = d.UploadURLTTL
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = d.MaxUploadBytes
	}
	if o.OrphanTTL <= 0 {
		o.OrphanTTL = d.OrphanTTL
	}
	return o
}

// BlogDeps are the collaborators of BlogService. Publisher is optional.
type BlogDeps struct {
	Posts     PostRepository
	Comments  CommentRepository
	Users     UserRepository
	Sessions  SessionRepository
	Images    ImageStore
	Signer    UploadSigner
	Publisher CommentPublisher
}

// BlogService is the core domain service. It owns post and comment
// creation, search, image uploads and the background cleanup of stale data.
type BlogService struct {
	posts     PostRepository
	comments  CommentRepository
	users     UserRepository
	sessions  SessionRepository
	images    ImageStore
	signer    UploadSigner
	publisher CommentPublisher
	opts      BlogOptions
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewBlogService creates a BlogService.
func NewBlogService(deps BlogDeps, opts BlogOptions, logger *slog.Logger) (*BlogService, error) {
	switch {
	case deps.Posts == nil:
		return nil, errors.New("post repository is required")
	case deps.Comments == nil:
		return nil, errors.New("comment repository is required")
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Sessions == nil:
		return nil, errors.New("session repository is required")
	case deps.Images == nil:
		return nil, errors.New("image store is required")
	case deps.Signer == nil:
		return nil, errors.New("upload signer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BlogService{
		posts:     deps.Posts,
		comments:  deps.Comments,
		users:     deps.Users,
		sessions:  deps.Sessions,
		images:    deps.Images,
		signer:    deps.Signer,
		publisher: deps.Publisher,
		opts:      opts.withDefaults(),
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}, nil
}

// Options returns the effective options after defaults were applied.
func (s *BlogService) Options() BlogOptions {
	return s.opts
}

// GetPosts returns every post, newest first, with image URLs resolved.
func (s *BlogService) GetPosts(ctx context.Context) ([]PostView, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	names := make(map[string]string)
	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = s.toView(ctx, p, names)
	}
	return views, nil
}

// GetPostByID returns a single post or ErrNotFound.
func (s *BlogService) GetPostByID(ctx context.Context, id string) (*PostView, error) {
	post, err := s.posts.GetPost(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	view := s.toView(ctx, *post, make(map[string]string))
	return &view, nil
}

// GetPostDetail returns a post together with its comment thread.
func (s *BlogService) GetPostDetail(ctx context.Context, id string) (*PostDetail, error) {
	view, err := s.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListComments(ctx, view.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return &PostDetail{PostView: *view, Comments: comments}, nil
}

// CreatePost validates the input and stores a new post authored by user.
// A referenced image must exist and is attached to the post.
func (s *BlogService) CreatePost(ctx context.Context, user *User, in PostInput) (post *Post, err error) {
	ctx, span := s.tracer.Start(ctx, "BlogService.CreatePost")
	defer func() { endSpan(span, err) }()

	if user == nil {
		return nil, ErrUnauthenticated
	}
	in.normalize()
	if err := Validate(in); err != nil {
		return nil, err
	}

	if in.ImageID != "" {
		if err := s.images.Attach(ctx, user.ID, in.ImageID); err != nil {
			return nil, fmt.Errorf("attach image: %w", err)
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}
	post = &Post{
		ID:        id.String(),
		Title:     in.Title,
		Body:      in.Content,
		AuthorID:  user.ID,
		ImageID:   in.ImageID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		if in.ImageID != "" {
			s.detachImage(ctx, in.ImageID)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created", "post_id", post.ID, "author_id", user.ID, "has_image", post.HasImage())
	return post, nil
}

// detachImage hands an image back to cleanup after the post that claimed it
// failed to save.
func (s *BlogService) detachImage(ctx context.Context, id string) {
	if err := s.images.Detach(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("failed to detach image", "image_id", id, "error", err)
	}
}

// GenerateImageUploadURL returns a short-lived URL the user can POST image
// bytes to.
func (s *BlogService) GenerateImageUploadURL(ctx context.Context, user *User) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	token, err := s.signer.Sign(user.ID, s.opts.UploadURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign upload token: %w", err)
	}
	return s.opts.UploadURL + "?token=" + url.QueryEscape(token), nil
}

// UploadImage stores an image posted to a signed upload URL and returns the
// new image ID.
func (s *BlogService) UploadImage(ctx context.Context, token string, upload Upload) (string, error) {
	userID, err := s.signer.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUploadToken, err)
	}
	return s.storeImage(ctx, userID, upload)
}

// StoreImage stores an image uploaded directly by a signed-in user, as the
// HTML create form does.
func (s *BlogService) StoreImage(ctx context.Context, user *User, upload Upload) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	return s.storeImage(ctx, user.ID, upload)
}

func (s *BlogService) storeImage(ctx context.Context, ownerID string, upload Upload) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "BlogService.StoreImage",
		trace.WithAttributes(attribute.Int("upload.size", len(upload.Data))))
	defer func() { endSpan(span, err) }()

	if len(upload.Data) == 0 {
		return "", ErrInvalidUpload
	}
	if len(upload.Data) > s.opts.MaxUploadBytes {
		return "", ErrUploadTooLarge
	}

	// Trust the bytes rather than the client's header.
	sniffed := http.DetectContentType(upload.Data)
	if !strings.HasPrefix(sniffed, "image/") {
		return "", ErrInvalidUpload
	}
	upload.ContentType = sniffed

	id, err = s.images.PutPending(ctx, ownerID, upload)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	s.logger.Info("image uploaded", "image_id", id, "owner_id", ownerID, "content_type", sniffed, "size", len(upload.Data))
	return id, nil
}

// GetImage returns an image's bytes and metadata.
func (s *BlogService) GetImage(ctx context.Context, id string) ([]byte, *ImageMeta, error) {
	return s.images.Get(ctx, strings.TrimSpace(id))
}

// SearchPosts looks term up in the title index and, if that did not fill
// limit, in the body index. Results are unique by post ID, title matches
// first, and never more than limit.
func (s *BlogService) SearchPosts(ctx context.Context, term string, limit int) (results []SearchResult, err error) {
	term, limit, ok := normalizeSearch(term, limit)
	if !ok {
		return []SearchResult{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "BlogService.SearchPosts",
		trace.WithAttributes(attribute.String("search.term", term), attribute.Int("search.limit", limit)))
	defer func() { endSpan(span, err) }()

	titleMatches, err := s.posts.SearchTitle(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("search titles: %w", err)
	}
	results = MergeSearchResults(limit, titleMatches)

	// The body index is only consulted when titles left room.
	if len(results) < limit {
		bodyMatches, err := s.posts.SearchBody(ctx, term, limit)
		if err != nil {
			return nil, fmt.Errorf("search bodies: %w", err)
		}
		results = MergeSearchResults(limit, titleMatches, bodyMatches)
	}

	s.logger.Debug("search complete", "term", term, "limit", limit, "results", len(results))
	return results, nil
}

// CreateComment validates the input and adds a comment by user to an
// existing post. The comment is pushed to live viewers of the post.
func (s *BlogService) CreateComment(ctx context.Context, user *User, in CommentInput) (comment *Comment, err error) {
	ctx, span := s.tracer.Start(ctx, "BlogService.CreateComment")
	defer func() { endSpan(span, err) }()

	if user == nil {
		return nil, ErrUnauthenticated
	}
	in.normalize()
	if err := Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.posts.GetPost(ctx, in.PostID); err != nil {
		return nil, fmt.Errorf("get post %s: %w", in.PostID, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate comment id: %w", err)
	}
	comment = &Comment{
		ID:         id.String(),
		PostID:     in.PostID,
		AuthorID:   user.ID,
		AuthorName: user.DisplayName(),
		Body:       in.Body,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishComment(ctx, *comment)
	}
	s.logger.Info("comment created", "comment_id", comment.ID, "post_id", comment.PostID, "author_id", user.ID)
	return comment, nil
}

// ListComments returns the comments of a post, oldest first.
func (s *BlogService) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	postID = strings.TrimSpace(postID)
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	comments, err := s.comments.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// StartCleanupJob runs a background loop that removes expired sessions and
// images that were uploaded but never attached to a post. It runs
// immediately on start and then repeats at the given interval. It blocks
// until ctx is cancelled.
func (s *BlogService) StartCleanupJob(ctx context.Context, interval time.Duration) {
	s.runCleanup(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *BlogService) runCleanup(ctx context.Context) {
	now := s.now().UTC()

	sessions, err := s.sessions.DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.logger.Error("session cleanup failed", "error", err)
	} else if sessions > 0 {
		s.logger.Info("session cleanup complete", "deleted", sessions)
	}

	images, err := s.images.DeleteOrphans(ctx, now.Add(-s.opts.OrphanTTL))
	if err != nil {
		s.logger.Error("image cleanup failed", "error", err)
	} else if images > 0 {
		s.logger.Info("image cleanup complete", "deleted", images)
	}
}

// toView resolves the image URL and author name of a post. names caches
// author lookups across a batch.
func (s *BlogService) toView(ctx context.Context, p Post, names map[string]string) PostView {
	view := PostView{Post: p}
	if p.HasImage() {
		view.ImageURL = s.opts.ImageURLPrefix + p.ImageID
	}

	name, ok := names[p.AuthorID]
	if !ok {
		author, err := s.users.GetUser(ctx, p.AuthorID)
		if err != nil {
			s.logger.Warn("failed to resolve post author", "post_id", p.ID, "author_id", p.AuthorID, "error", err)
		} else {
			name = author.DisplayName()
		}
		names[p.AuthorID] = name
	}
	view.AuthorName = name
	return view
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
