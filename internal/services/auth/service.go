package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/partycasino/internal/dependencies/clock"
	"github.com/mcoot/partycasino/internal/model"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrAdminDisabled      = errors.New("admin login is not configured")
)

// AdminID is the caller id attached to admin sessions
const AdminID = "admin"

// Session represents an authenticated admin session
type Session struct {
	Token     string
	Caller    model.Caller
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles admin authentication and session management
type Service struct {
	clock        clock.Clock
	passwordHash []byte
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// PasswordHash is the bcrypt hash of the admin password. Empty disables login.
	PasswordHash    string
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 12 * time.Hour,
	}
}

// New creates a new auth Service
func New(clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		clock:           clock,
		passwordHash:    []byte(cfg.PasswordHash),
		logger:          logger,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// HashPassword returns the bcrypt hash to put in the admin config
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the admin password and creates a session
func (s *Service) Login(password string) (*Session, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn("admin login failed")
		return nil, ErrInvalidCredentials
	}

	session := s.createSession()
	s.logger.Info("admin logged in", slog.Time("expires_at", session.ExpiresAt))
	return session, nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Caller returns the capability for a token. Unknown or expired tokens get
// an unprivileged caller.
func (s *Service) Caller(token string) model.Caller {
	session, err := s.ValidateSession(token)
	if err != nil {
		return model.Caller{}
	}
	return session.Caller
}

func (s *Service) createSession() *Session {
	now := s.clock.Now()
	session := &Session{
		Token:     generateToken("sess_"),
		Caller:    model.Caller{ID: AdminID, IsAdmin: true},
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates a random token with a prefix
func generateToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
