package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type (
	// User is a registered account. Username and email are unique
	// across all users.
	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Entry is one recorded purchase owned by a user.
	Entry struct {
		ID         int64
		Item       string
		Category   string
		Price      Money
		Location   string
		DatePosted time.Time
		UserID     int64
	}

	// Money holds an amount in cents to avoid floating-point drift.
	Money struct {
		Cents int64
	}

	// Session identifies an authenticated user across requests.
	Session struct {
		Token     string
		UserID    int64
		ExpiresAt time.Time
	}
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyItem          = errors.New("empty item")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyLocation      = errors.New("empty location")
)

// ValidationError reports user-correctable input problems such as a
// duplicate username or a malformed email.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	name := strings.TrimSpace(u.Username)
	if n := utf8.RuneCountInString(name); n < 2 || n > 20 {
		return NewValidationError("username", "must be between 2 and 20 characters")
	}
	email := strings.TrimSpace(u.Email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Location) == "" {
		return ErrEmptyLocation
	}
	if len(e.Item) > 200 {
		return errors.New("item too long (max 200 characters)")
	}
	if err := e.Price.Validate(); err != nil {
		return err
	}
	if e.DatePosted.IsZero() {
		return errors.New("date cannot be zero")
	}
	if e.UserID <= 0 {
		return errors.New("entry has no owner")
	}
	return nil
}

// Capitalize upper-cases the first rune and lower-cases the rest. Item,
// category and location are normalized this way before storage.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
