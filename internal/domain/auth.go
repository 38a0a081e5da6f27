package domain

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionTokenBytes = 32

// AuthService owns sign-up, sign-in, sign-out and current-user lookup.
// Sessions are opaque bearer tokens; only their SHA-256 hash is stored.
type AuthService struct {
	users      UserRepository
	sessions   SessionRepository
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates an AuthService. A non-positive sessionTTL defaults
// to seven days.
func NewAuthService(users UserRepository, sessions SessionRepository, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
		now:        time.Now,
	}
}

// SessionTTL returns how long issued sessions stay valid.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// SignUp registers a new account and signs it in. It returns the user and
// the session token.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*User, string, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, "", err
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user signed up", "user_id", user.ID)
	return user, token, nil
}

// SignIn verifies credentials and starts a new session.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*User, string, error) {
	in.normalize()
	if err := Validate(in); err != nil {
		return nil, "", err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user signed in", "user_id", user.ID)
	return user, token, nil
}

// SignOut ends the session for token. Unknown tokens are ignored.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUser resolves a session token to its user. It returns a nil user
// without error when the token is empty, unknown or expired.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	session, err := s.sessions.GetSession(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, nil
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser registers an account without starting a session. Used by the
// admin CLI and seeding.
func (s *AuthService) CreateUser(ctx context.Context, in SignUpInput) (*User, error) {
	in.normalize()
	if err := Validate(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, userID string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	now := s.now().UTC()
	session := &Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// HashToken returns the hex SHA-256 of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
