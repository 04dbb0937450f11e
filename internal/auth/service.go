// Package auth implements registration, login, sessions and the
// password-reset flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"budgetwatch/internal/core"
	"budgetwatch/internal/mail"

	"github.com/google/uuid"
)

// Store is the persistence the auth service depends on.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*core.User, error)
	GetUserByID(ctx context.Context, id int64) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	UpdateUserProfile(ctx context.Context, id int64, username, email string) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error

	CreateSession(ctx context.Context, s core.Session) error
	GetSessionUser(ctx context.Context, token string) (*core.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// Service orchestrates account and session operations.
type Service struct {
	store       Store
	mailer      mail.Mailer
	tokens      *TokenSigner
	sessionTTL  time.Duration
	rememberTTL time.Duration
	baseURL     string
}

func NewService(store Store, mailer mail.Mailer, tokens *TokenSigner, sessionTTL, rememberTTL time.Duration, baseURL string) *Service {
	return &Service{
		store:       store,
		mailer:      mailer,
		tokens:      tokens,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Register creates an account after checking that username and email are
// unused. Duplicate checks live here, not in any form binding.
func (s *Service) Register(ctx context.Context, username, email, password string) (*core.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := (core.User{Username: username, Email: email}).Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, core.NewValidationError("password", "must not be empty")
	}

	if err := s.checkUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, email, hash)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return user, nil
}

// Authenticate resolves email+password to a user. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*core.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate lookup: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, core.ErrInvalidCredentials
	}
	return user, nil
}

// IssueSession establishes a session for the user. A remembered session
// lives for the long TTL; otherwise the short one.
func (s *Service) IssueSession(ctx context.Context, user *core.User, remember bool) (*core.Session, error) {
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}
	session := core.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &session, nil
}

// UserFromSession resolves a session token to its user, or core.ErrNotFound
// for a missing or expired session.
func (s *Service) UserFromSession(ctx context.Context, token string) (*core.User, error) {
	return s.store.GetSessionUser(ctx, token)
}

// DestroySession removes the session; unknown tokens are not an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// RequestPasswordReset mails a reset link if the email belongs to a user.
// An unknown email does nothing: callers report success either way so the
// endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reset lookup: %w", err)
	}

	token := s.tokens.Sign([]byte(strconv.FormatInt(user.ID, 10)))
	link := s.baseURL + "/reset_password/" + token
	body := fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then ignore this email.
`, link)

	if err := s.mailer.Send(ctx, user.Email, "Password Reset Request", body); err != nil {
		// Mail is fire-and-forget; the user still sees a success notice
		slog.WarnContext(ctx, "Failed to queue reset mail", "error", err, "user_id", user.ID)
	}
	return nil
}

// VerifyResetToken resolves a reset token to its user. Forged, expired and
// orphaned tokens all fail with core.ErrInvalidToken.
func (s *Service) VerifyResetToken(ctx context.Context, token string) (*core.User, error) {
	payload, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(string(payload), 10, 64)
	if err != nil {
		return nil, core.ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("reset token lookup: %w", err)
	}
	return user, nil
}

// ResetPassword overwrites the user's password hash.
func (s *Service) ResetPassword(ctx context.Context, user *core.User, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return core.NewValidationError("password", "must not be empty")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	user.PasswordHash = hash
	return nil
}

// UpdateProfile changes username and email, rejecting values already held
// by a different user.
func (s *Service) UpdateProfile(ctx context.Context, user *core.User, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := (core.User{Username: username, Email: email}).Validate(); err != nil {
		return err
	}
	if err := s.checkUsernameFree(ctx, username, user.ID); err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, email, user.ID); err != nil {
		return err
	}

	if err := s.store.UpdateUserProfile(ctx, user.ID, username, email); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	user.Username = username
	user.Email = email
	return nil
}

// checkUsernameFree fails when username belongs to a user other than selfID.
func (s *Service) checkUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("username lookup: %w", err)
	}
	if existing.ID != selfID {
		return core.NewValidationError("username", "already exists, please choose a different one")
	}
	return nil
}

func (s *Service) checkEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("email lookup: %w", err)
	}
	if existing.ID != selfID {
		return core.NewValidationError("email", "is taken, please choose a different one")
	}
	return nil
}
