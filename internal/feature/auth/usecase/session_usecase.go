package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"portal_backend/internal/feature/auth/domain/entity"
)

const (
	// DefaultSessionTTL is used when the configured TTL is not positive.
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultMaxSessionsPerUser is used when the configured limit is not positive.
	DefaultMaxSessionsPerUser = 5

	sessionIDBytes = 32
)

// SessionRepository abstracts the persistence layer for session entities.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SessionRepository interface {
	// Create persists a new session to the storage.
	Create(ctx context.Context, session *entity.Session) error

	// FindByID retrieves a session by its ID.
	FindByID(ctx context.Context, id string) (*entity.Session, error)

	// Revoke marks a session as revoked by setting RevokedAt.
	Revoke(ctx context.Context, id string) error

	// DeleteExpired removes all expired sessions from storage.
	// Returns the number of deleted sessions.
	DeleteExpired(ctx context.Context) (int64, error)

	// CountByUserID returns the number of active sessions for a user.
	CountByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteOldestByUserID deletes the oldest session for a user.
	DeleteOldestByUserID(ctx context.Context, userID string) error
}

// UserFinder resolves a stored user identifier back into a user entity.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// ClientMeta describes the client that established a session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// SessionManager binds authenticated users to server-side sessions and
// resolves session identifiers back to users on every request.
type SessionManager struct {
	sessions   SessionRepository
	users      UserFinder
	ttl        time.Duration
	maxPerUser int
	now        func() time.Time
}

// NewSessionManager creates a SessionManager.
// Non-positive ttl or maxPerUser fall back to the package defaults.
func NewSessionManager(sessions SessionRepository, users UserFinder, ttl time.Duration, maxPerUser int) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxSessionsPerUser
	}
	return &SessionManager{
		sessions:   sessions,
		users:      users,
		ttl:        ttl,
		maxPerUser: maxPerUser,
		now:        time.Now,
	}
}

// Establish creates a new session for the user.
// When the user already holds maxPerUser active sessions the oldest one is evicted.
func (m *SessionManager) Establish(ctx context.Context, user *entity.User, meta ClientMeta) (*entity.Session, error) {
	if user == nil || user.ID == "" {
		return nil, errors.New("cannot establish session without a user id")
	}

	count, err := m.sessions.CountByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if count >= int64(m.maxPerUser) {
		if err := m.sessions.DeleteOldestByUserID(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to evict oldest session: %w", err)
		}
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &entity.Session{
		ID:        id,
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Resolve returns the user bound to the session.
// A missing, expired or revoked session, or a user record that no longer
// exists, yields (nil, nil): the request is anonymous. Only store failures
// are returned as errors.
func (m *SessionManager) Resolve(ctx context.Context, sessionID string) (*entity.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !session.ValidAt(m.now()) {
		return nil, nil
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Revoke ends the session. Revoking an unknown or already revoked session is not an error.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := m.sessions.Revoke(ctx, sessionID)
	if err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionRevoked) {
		return nil
	}
	return err
}

// Sweep deletes expired sessions from storage.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx)
}

// newSessionID returns a random 64-character hex string.
func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
