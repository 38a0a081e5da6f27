package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/realtime"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type sessionResponse struct {
	User      *userResponse `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type postResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	ImageID    string    `json:"image_id,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func newPostResponse(p domain.PostView) postResponse {
	return postResponse{
		ID:         p.ID,
		Title:      p.Title,
		Body:       p.Body,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		ImageID:    p.ImageID,
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
	}
}

type commentResponse struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func newCommentResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in domain.SignUpInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	user, token, err := s.auth.SignUp(r.Context(), in)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, s.sessionResponse(user, token))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in domain.SignInInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	user, token, err := s.auth.SignIn(r.Context(), in)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, s.sessionResponse(user, token))
}

func (s *Server) sessionResponse(user *domain.User, token string) sessionResponse {
	return sessionResponse{
		User:      newUserResponse(user),
		Token:     token,
		ExpiresAt: time.Now().Add(s.auth.SessionTTL()).UTC(),
	}
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if user == nil {
		writeServiceError(w, s.logger, domain.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.blog.GetPosts(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	resp := make([]postResponse, len(posts))
	for i, p := range posts {
		resp[i] = newPostResponse(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": resp})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in domain.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	post, err := s.blog.CreatePost(r.Context(), userFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	view, err := s.blog.GetPostByID(r.Context(), post.ID)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPostResponse(*view))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.blog.GetPostByID(r.Context(), r.PathValue("postID"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostResponse(*post))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := domain.MaxSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be an integer")
			return
		}
		limit = n
	}

	results, err := s.blog.SearchPosts(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.blog.ListComments(r.Context(), r.PathValue("postID"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	resp := make([]commentResponse, len(comments))
	for i, c := range comments {
		resp[i] = newCommentResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": resp})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	comment, err := s.blog.CreateComment(r.Context(), userFrom(r.Context()), domain.CommentInput{
		PostID: r.PathValue("postID"),
		Body:   req.Body,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCommentResponse(*comment))
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postID")
	if _, err := s.blog.GetPostByID(r.Context(), postID); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	viewers := s.hub.Snapshot(postID)
	if viewers == nil {
		viewers = []realtime.PresenceEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewers": viewers})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postID")
	if _, err := s.blog.GetPostByID(r.Context(), postID); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	var viewer *realtime.Viewer
	if user := userFrom(r.Context()); user != nil {
		viewer = &realtime.Viewer{ID: user.ID, Name: user.DisplayName()}
	}
	s.hub.ServeWS(w, r, postID, viewer)
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	uploadURL, err := s.blog.GenerateImageUploadURL(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"upload_url": uploadURL})
}

// handleUpload receives raw image bytes posted to a signed upload URL.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeServiceError(w, s.logger, domain.ErrInvalidUploadToken)
		return
	}

	data, err := readLimited(r.Body, s.blog.Options().MaxUploadBytes)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	id, err := s.blog.UploadImage(r.Context(), token, domain.Upload{
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"image_id": id})
}

// readLimited reads at most max bytes and reports ErrUploadTooLarge when
// the body is longer.
func readLimited(body io.Reader, max int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, int64(max)+1))
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidUpload, err)
	}
	if len(data) > max {
		return nil, domain.ErrUploadTooLarge
	}
	return data, nil
}
