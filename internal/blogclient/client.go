// Package blogclient is a small client for the blog's JSON API.
package blogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:3000"

// ErrNotAuthenticated is returned by calls that need a session before
// SignIn or SignUp succeeded.
var ErrNotAuthenticated = errors.New("not authenticated: call SignIn first")

// Client talks to a running blog server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// populated after SignIn or SignUp
	token string
	user  *User
}

// NewClient creates a new API client. If baseURL is empty it defaults to
// http://localhost:3000.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the session token. Only valid after SignIn or SignUp.
func (c *Client) Token() string {
	return c.token
}

// SetToken reuses a session token obtained earlier.
func (c *Client) SetToken(token string) {
	c.token = token
}

// User returns the signed-in user. Only valid after SignIn or SignUp.
func (c *Client) User() *User {
	return c.user
}

// SignUp registers an account and keeps its session.
func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/sign-up", body, &resp); err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	c.token, c.user = resp.Token, resp.User
	return nil
}

// SignIn authenticates and keeps the session token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/sign-in", body, &resp); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	c.token, c.user = resp.Token, resp.User
	return nil
}

// SignOut ends the session.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/sign-out", nil, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	c.token, c.user = "", nil
	return nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// ListPosts returns every post, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &resp); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return resp.Posts, nil
}

// GetPost returns a single post.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// CreatePost publishes a post. ImageID may be empty.
func (c *Client) CreatePost(ctx context.Context, in NewPost) (*Post, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}
	var post Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", in, &post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// Search looks term up in post titles and bodies.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]SearchResult, error) {
	q := url.Values{"q": {term}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return resp.Results, nil
}

// ListComments returns a post's comments, oldest first.
func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var resp struct {
		Comments []Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID)+"/comments", nil, &resp); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return resp.Comments, nil
}

// CreateComment adds a comment to a post.
func (c *Client) CreateComment(ctx context.Context, postID, body string) (*Comment, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}
	var comment Comment
	path := "/api/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// UploadImage requests a signed upload URL and posts the image bytes to
// it. It returns the image ID to reference from a post.
func (c *Client) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if c.token == "" {
		return "", ErrNotAuthenticated
	}

	var urlResp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/uploads/url", nil, &urlResp); err != nil {
		return "", fmt.Errorf("generate upload url: %w", err)
	}

	target := urlResp.UploadURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var result struct {
		ImageID string `json:"image_id"`
	}
	if err := c.send(req, &result); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return result.ImageID, nil
}

// LiveURL returns the websocket address of a post's live room.
func (c *Client) LiveURL(postID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/posts/" + url.PathEscape(postID) + "/live"
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req, result)
}

func (c *Client) send(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
