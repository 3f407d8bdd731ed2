package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"authclient/internal/domain"
)

const logoutTimeout = 10 * time.Second

// Authority is the slice of the gateway the store needs to talk to the
// remote authentication service.
type Authority interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	PostForm(ctx context.Context, path string, fields map[string]string, attachments []domain.Attachment, out any) error
}

// authPayload is the authority's answer to login, register, and refresh.
type authPayload struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Store is the single source of truth for the current authentication state.
// All mutation goes through its methods; the cached user and token are never
// handed out by reference.
//
// Individual reads and writes are safe from any goroutine, but whole
// operations are not mutually exclusive: two overlapping Login calls race
// and the last response to resolve wins. That is acceptable for a single
// interactive user and is deliberately not hidden behind extra locking.
type Store struct {
	api    Authority
	logger logrus.FieldLogger

	mu    sync.RWMutex
	user  *domain.User
	token string
}

func NewStore(api Authority, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{api: api, logger: logger}
}

// Login forwards the credentials to the authority and, on success, replaces
// the cached user and token in one step. On failure the prior state is left
// untouched and the original error is returned for the UI to present.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	var payload authPayload
	if err := s.api.Post(ctx, "login", creds, &payload); err != nil {
		s.logger.WithError(err).Warn("login failed")
		return err
	}
	s.replace(payload)
	s.logger.WithField("username", payload.userName()).Info("logged in")
	return nil
}

// Register creates a new account; the registering user becomes the
// authenticated session, exactly as with Login.
func (s *Store) Register(ctx context.Context, profile domain.Profile) error {
	var payload authPayload
	if err := s.api.Post(ctx, "register", profile, &payload); err != nil {
		s.logger.WithError(err).Warn("registration failed")
		return err
	}
	s.replace(payload)
	s.logger.WithField("username", payload.userName()).Info("registered")
	return nil
}

// RegisterForm is the multipart variant of Register for authorities that
// accept file attachments (an avatar, typically) alongside the profile.
func (s *Store) RegisterForm(ctx context.Context, profile domain.Profile, avatar *domain.Attachment) error {
	fields := map[string]string{
		"username":  profile.Username,
		"firstName": profile.FirstName,
		"lastName":  profile.LastName,
		"email":     profile.Email,
		"password":  profile.Password,
	}
	if profile.Phone != "" {
		fields["phone"] = profile.Phone
	}

	var attachments []domain.Attachment
	if avatar != nil {
		attachments = append(attachments, *avatar)
	}

	var payload authPayload
	if err := s.api.PostForm(ctx, "register", fields, attachments, &payload); err != nil {
		s.logger.WithError(err).Warn("registration failed")
		return err
	}
	s.replace(payload)
	s.logger.WithField("username", payload.userName()).Info("registered")
	return nil
}

// Logout clears the cached user and token unconditionally, then asks the
// authority to invalidate its side of the session without waiting for the
// answer. A failure of that request is intentionally discarded: the local
// session is gone either way.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := s.api.Post(ctx, "logout", nil, nil); err != nil {
			s.logger.WithError(err).Debug("server-side logout failed, local state already cleared")
		}
	}()
}

// Refresh asks the authority who the current credential belongs to and
// updates the cached user and token from the answer. Any failure — an
// expired cookie, a dead token, the authority being down — converges the
// store to the logged-out state instead of surfacing an error, so callers
// never need their own recovery path.
func (s *Store) Refresh(ctx context.Context) {
	var payload authPayload
	if err := s.api.Get(ctx, "user", &payload); err != nil {
		s.logger.WithError(err).Info("session refresh failed, clearing local session")
		s.Logout(ctx)
		return
	}
	s.replace(payload)
}

// SetUser replaces the cached user record without a network round trip,
// after an out-of-band profile edit. The token is left untouched.
func (s *Store) SetUser(user *domain.User) {
	s.mu.Lock()
	s.user = user.Clone()
	s.mu.Unlock()
}

// IsAuthenticated reports whether a user record is present. The token does
// not gate authentication: the authority may be cookie-based, in which case
// no token is ever issued.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the cached user, or nil when logged out.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Token returns the stored credential, or the empty string when absent.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// replace installs a fresh user/token pair in one step. It runs strictly
// after the network round trip resolves and is the last step of every
// successful operation.
func (s *Store) replace(payload authPayload) {
	s.mu.Lock()
	s.user = payload.User.Clone()
	s.token = payload.Token
	s.mu.Unlock()
}

func (p authPayload) userName() string {
	if p.User == nil {
		return ""
	}
	return p.User.Username
}
