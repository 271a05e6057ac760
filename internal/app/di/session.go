package di

import (
	"portal_backend/internal/feature/auth/usecase"
	"portal_backend/internal/platform/session"

	"github.com/redis/go-redis/v9"
)

// SessionKeyPrefix はRedis上のセッションキーの接頭辞です。
const SessionKeyPrefix = "portal:session"

// NewSessionRepository creates a SessionRepository implementation.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to the repository living next to the user store.
func NewSessionRepository(rdb redis.Cmdable, fallback usecase.SessionRepository) usecase.SessionRepository {
	if rdb != nil {
		return session.NewSessionRedis(rdb, SessionKeyPrefix)
	}
	return fallback
}
