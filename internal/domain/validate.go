package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form names so messages line up with the HTML
	// inputs and JSON keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		default:
			return name
		}
	})
	// min and max count runes; bcrypt limits bytes.
	_ = v.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return v
}

// SignUpInput is the registration form.
type SignUpInput struct {
	Name     string `json:"name" validate:"min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8,max=30,bcrypt"`
}

func (in *SignUpInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// SignInInput is the login form.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8,max=30,bcrypt"`
}

func (in *SignInInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// PostInput is the create-post form. ImageID is optional and must come from
// a previous upload.
type PostInput struct {
	Title   string `json:"title" validate:"min=3,max=50"`
	Content string `json:"content" validate:"min=10"`
	ImageID string `json:"image_id,omitempty" validate:"omitempty,uuid"`
}

func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.ImageID = strings.TrimSpace(in.ImageID)
}

// CommentInput is the comment form.
type CommentInput struct {
	PostID string `json:"post_id" validate:"required"`
	Body   string `json:"body" validate:"min=10"`
}

func (in *CommentInput) normalize() {
	in.PostID = strings.TrimSpace(in.PostID)
	in.Body = strings.TrimSpace(in.Body)
}

// Validate checks the input against its struct rules and returns a
// *ValidationError listing every failing field.
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := verr.Fields[fe.Field()]; seen {
			continue
		}
		verr.Fields[fe.Field()] = fieldMessage(fe)
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid identifier"
	case "bcrypt":
		return fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)
	default:
		return "is invalid"
	}
}
