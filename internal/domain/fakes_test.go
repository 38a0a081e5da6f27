package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory implementation of every repository port.
type memStore struct {
	mu       sync.Mutex
	posts    map[string]Post
	comments []Comment
	users    map[string]User
	sessions map[string]Session

	createPostErr error

	titleCalls int
	bodyCalls  int
	titleHits  []Post
	bodyHits   []Post
}

func newMemStore() *memStore {
	return &memStore{
		posts:    make(map[string]Post),
		users:    make(map[string]User),
		sessions: make(map[string]Session),
	}
}

func (m *memStore) CreatePost(_ context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPostErr != nil {
		return m.createPostErr
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *memStore) GetPost(_ context.Context, id string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ListPosts(_ context.Context) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	posts := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (m *memStore) SearchTitle(_ context.Context, term string, limit int) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titleCalls++
	return take(m.titleHits, limit), nil
}

func (m *memStore) SearchBody(_ context.Context, term string, limit int) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodyCalls++
	return take(m.bodyHits, limit), nil
}

func take(posts []Post, limit int) []Post {
	if len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

func (m *memStore) CreateComment(_ context.Context, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memStore) ListComments(_ context.Context, postID string) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = *s
	return nil
}

func (m *memStore) GetSession(_ context.Context, hash string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) DeleteSession(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func (m *memStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

type memImages struct {
	mu     sync.Mutex
	nextID int
	data   map[string][]byte
	meta   map[string]ImageMeta
	now    func() time.Time
}

func newMemImages() *memImages {
	return &memImages{data: make(map[string][]byte), meta: make(map[string]ImageMeta), now: time.Now}
}

func (m *memImages) PutPending(_ context.Context, ownerID string, upload Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := "0190f1e2-0000-7000-8000-00000000000" + string(rune('0'+m.nextID))
	m.data[id] = upload.Data
	m.meta[id] = ImageMeta{ID: id, ContentType: upload.ContentType, Size: len(upload.Data), OwnerID: ownerID, CreatedAt: m.now()}
	return id, nil
}

func (m *memImages) Attach(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[id]
	if !ok || meta.OwnerID != ownerID {
		return ErrImageNotFound
	}
	meta.Attached = true
	m.meta[id] = meta
	return nil
}

func (m *memImages) Detach(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[id]
	if !ok {
		return ErrImageNotFound
	}
	meta.Attached = false
	m.meta[id] = meta
	return nil
}

func (m *memImages) Get(_ context.Context, id string) ([]byte, *ImageMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.meta[id]
	if !ok {
		return nil, nil, ErrImageNotFound
	}
	return m.data[id], &meta, nil
}

func (m *memImages) DeleteOrphans(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, meta := range m.meta {
		if !meta.Attached && meta.CreatedAt.Before(cutoff) {
			delete(m.meta, id)
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}

// fakeSigner issues tokens of the form "token:<user>" and rejects anything
// else.
type fakeSigner struct{}

func (fakeSigner) Sign(userID string, _ time.Duration) (string, error) {
	return "token:" + userID, nil
}

func (fakeSigner) Verify(token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "token:")
	if !ok || userID == "" {
		return "", errors.New("bad token")
	}
	return userID, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	comments []Comment
}

func (p *recordingPublisher) PublishComment(_ context.Context, c Comment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments = append(p.comments, c)
}

type serviceFixture struct {
	store     *memStore
	images    *memImages
	publisher *recordingPublisher
	blog      *BlogService
	auth      *AuthService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := newMemStore()
	images := newMemImages()
	publisher := &recordingPublisher{}

	blog, err := NewBlogService(BlogDeps{
		Posts:     store,
		Comments:  store,
		Users:     store,
		Sessions:  store,
		Images:    images,
		Signer:    fakeSigner{},
		Publisher: publisher,
	}, BlogOptions{MaxUploadBytes: 1024}, discardLogger())
	require.NoError(t, err)

	auth := NewAuthService(store, store, time.Hour, discardLogger())
	auth.bcryptCost = bcrypt.MinCost

	return &serviceFixture{
		store:     store,
		images:    images,
		publisher: publisher,
		blog:      blog,
		auth:      auth,
	}
}

func (f *serviceFixture) signUp(t *testing.T, name, email string) (*User, string) {
	t.Helper()
	user, token, err := f.auth.SignUp(context.Background(), SignUpInput{
		Name:     name,
		Email:    email,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return user, token
}
