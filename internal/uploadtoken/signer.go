// Package uploadtoken signs and verifies the short-lived tokens carried by
// image upload URLs. Tokens are HS256 JWTs bound to a user ID.
package uploadtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer   = "blogdemo"
	audience = "image-upload"
)

// MinSecretLength is the shortest secret NewSigner accepts.
const MinSecretLength = 16

var (
	// ErrInvalid is returned for malformed, tampered or mis-addressed tokens.
	ErrInvalid = errors.New("upload token is invalid")

	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("upload token is expired")
)

type claims struct {
	jwt.RegisteredClaims
}

// Signer implements domain.UploadSigner.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer using secret as the HMAC key.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("upload secret must be at least %d bytes", MinSecretLength)
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for userID that expires after ttl.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}

	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the user ID it was issued to.
func (s *Signer) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalid
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return "", ErrInvalid
	}
	return parsed.Subject, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
