// Package postgres implements the domain repositories on PostgreSQL, with
// GIN-indexed tsvector expressions for title and body search.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/migrate"
	"github.com/blackmichael/blogdemo/internal/postgres/migrations"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Repository implements domain.PostRepository, domain.CommentRepository,
// domain.UserRepository and domain.SessionRepository using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository connects to PostgreSQL at the given URL, verifies the
// connection, applies pending migrations and returns a new Repository. The
// caller should call Close when the repository is no longer needed.
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &Repository{db: db}
	if _, err := r.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Migrate applies pending migrations and returns their file names.
func (r *Repository) Migrate(ctx context.Context) ([]string, error) {
	applied, err := migrate.Apply(ctx, r.db, migrations.FS, ".", migrate.Postgres)
	if err != nil {
		return applied, fmt.Errorf("run migrations: %w", err)
	}
	return applied, nil
}

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, title, body, author_id, image_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Body,
		post.AuthorID,
		sql.NullString{String: post.ImageID, Valid: post.ImageID != ""},
		post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", post.ID, err)
	}
	return nil
}

// GetPost retrieves a post by ID.
func (r *Repository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, body, author_id, image_id, created_at
		FROM posts WHERE id = $1`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return post, nil
}

// ListPosts retrieves every post, newest first.
func (r *Repository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, author_id, image_id, created_at
		FROM posts
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return collectPosts(rows)
}

// SearchTitle runs term against the title index.
func (r *Repository) SearchTitle(ctx context.Context, term string, limit int) ([]domain.Post, error) {
	return r.search(ctx, "title", term, limit)
}

// SearchBody runs term against the body index.
func (r *Repository) SearchBody(ctx context.Context, term string, limit int) ([]domain.Post, error) {
	return r.search(ctx, "body", term, limit)
}

// search ranks by ts_rank against the expression the GIN index covers.
// column is always a literal chosen by the caller.
func (r *Repository) search(ctx context.Context, column, term string, limit int) ([]domain.Post, error) {
	query := tsQuery(term)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	vector := "to_tsvector('simple', " + column + ")"
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, author_id, image_id, created_at
		FROM posts
		WHERE `+vector+` @@ to_tsquery('simple', $1)
		ORDER BY ts_rank(`+vector+`, to_tsquery('simple', $1)) DESC, created_at DESC
		LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s index (term=%q, limit=%d): %w", column, term, limit, err)
	}
	return collectPosts(rows)
}

// tsQuery builds a to_tsquery expression requiring every word, with the
// last word matched as a prefix.
func tsQuery(term string) string {
	tokens := domain.SearchTokens(term)
	if len(tokens) == 0 {
		return ""
	}
	tokens[len(tokens)-1] += ":*"
	return strings.Join(tokens, " & ")
}

// CreateComment inserts a comment.
func (r *Repository) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, author_name, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PostID, c.AuthorID, c.AuthorName, c.Body, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert comment %s: %w", c.ID, err)
	}
	return nil
}

// ListComments retrieves a post's comments, oldest first.
func (r *Repository) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, author_name, body, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments (post=%s): %w", postID, err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// CreateUser inserts a user, mapping a duplicate email to
// domain.ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *Repository) getUser(ctx context.Context, query, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateSession stores a session keyed by its token hash.
func (r *Repository) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`,
		s.TokenHash, s.UserID, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves the session for a token hash.
func (r *Repository) GetSession(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// DeleteSession removes a session by token hash.
func (r *Repository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpiredSessions removes sessions that expired at or before now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p       domain.Post
		imageID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &imageID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ImageID = imageID.String
	p.CreatedAt = p.CreatedAt.UTC()
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
