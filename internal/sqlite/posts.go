package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackmichael/blogdemo/internal/domain"
)

const postColumns = `p.id, p.title, p.body, p.author_id, p.image_id, p.created_at`

// CreatePost inserts a new post. The triggers keep both search indices in
// sync.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, body, author_id, image_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Body,
		post.AuthorID,
		sql.NullString{String: post.ImageID, Valid: post.ImageID != ""},
		toMillis(post.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", post.ID, err)
	}
	return nil
}

// GetPost returns a post by ID.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		ORDER BY p.created_at DESC, p.seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return collectPosts(rows)
}

// SearchTitle runs term against the title index.
func (s *Store) SearchTitle(ctx context.Context, term string, limit int) ([]domain.Post, error) {
	return s.search(ctx, "posts_title_fts", term, limit)
}

// SearchBody runs term against the body index.
func (s *Store) SearchBody(ctx context.Context, term string, limit int) ([]domain.Post, error) {
	return s.search(ctx, "posts_body_fts", term, limit)
}

func (s *Store) search(ctx context.Context, table, term string, limit int) ([]domain.Post, error) {
	match := matchExpr(term)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM `+table+` f
		JOIN posts p ON p.seq = f.rowid
		WHERE `+table+` MATCH ?
		ORDER BY bm25(`+table+`), p.seq DESC
		LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s (term=%q, limit=%d): %w", table, term, limit, err)
	}
	return collectPosts(rows)
}

// matchExpr turns a free-text term into an FTS5 expression in which every
// word must appear, the last one as a prefix so partially typed words
// still match.
func matchExpr(term string) string {
	tokens := domain.SearchTokens(term)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = strconv.Quote(tok)
	}
	parts[len(parts)-1] += "*"
	return strings.Join(parts, " ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p         domain.Post
		imageID   sql.NullString
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &imageID, &createdAt); err != nil {
		return nil, err
	}
	p.ImageID = imageID.String
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
