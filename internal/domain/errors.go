package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned by operations that require a signed-in user.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned by SignIn for an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned by SignUp when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrImageNotFound is returned when a post references an unknown image.
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidUpload is returned for uploads that are not images.
	ErrInvalidUpload = errors.New("upload must be an image")

	// ErrUploadTooLarge is returned for uploads over the configured size.
	ErrUploadTooLarge = errors.New("upload too large")

	// ErrInvalidUploadToken is returned for missing, expired or forged upload URLs.
	ErrInvalidUploadToken = errors.New("invalid upload token")
)

// ValidationError carries one message per invalid input field, keyed by the
// field's form name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %s", name, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for a single field, or "" when it is valid.
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
