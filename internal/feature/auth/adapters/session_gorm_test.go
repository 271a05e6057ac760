package adapters

import (
	"context"
	"testing"
	"time"

	"portal_backend/internal/feature/auth/domain/entity"
	"portal_backend/internal/feature/auth/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedSession creates a test session in the database for testing.
func seedSession(t *testing.T, db *gorm.DB, id, userID string, createdAt, expiresAt time.Time, revokedAt *time.Time) *entity.Session {
	t.Helper()

	row := &sessionRow{
		ID:        id,
		UserID:    userID,
		UserAgent: "test-agent",
		IPAddress: "127.0.0.1",
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
	}
	require.NoError(t, db.Create(row).Error, "failed to seed session")

	return row.session()
}

func TestNewSessionGorm(t *testing.T) {
	db := setupTestDB(t)

	repo := NewSessionGorm(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestSessionGorm_Create(t *testing.T) {
	tests := []struct {
		name    string
		seed    bool
		wantErr bool
	}{
		{name: "success: session creation"},
		{name: "failure: duplicate session ID", seed: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewSessionGorm(db)
			now := time.Now()

			if tt.seed {
				seedSession(t, db, "session-001", "user-1", now, now.Add(time.Hour), nil)
			}

			session := &entity.Session{
				ID:        "session-001",
				UserID:    "user-1",
				UserAgent: "Mozilla/5.0",
				IPAddress: "192.168.1.1",
				CreatedAt: now,
				ExpiresAt: now.Add(7 * 24 * time.Hour),
			}
			err := repo.Create(context.Background(), session)

			if tt.wantErr {
				assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
				return
			}
			require.NoError(t, err)

			var found sessionRow
			require.NoError(t, db.Where("id = ?", session.ID).First(&found).Error)
			assert.Equal(t, session.UserID, found.UserID)
			assert.Equal(t, session.UserAgent, found.UserAgent)
		})
	}
}

func TestSessionGorm_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionGorm(db)
	now := time.Now()
	seedSession(t, db, "find-me", "user-1", now, now.Add(time.Hour), nil)

	found, err := repo.FindByID(context.Background(), "find-me")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)
	assert.True(t, found.IsValid())

	_, err = repo.FindByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
}

func TestSessionGorm_Revoke(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionGorm(db)
	now := time.Now()
	seedSession(t, db, "revoke-me", "user-1", now, now.Add(time.Hour), nil)

	require.NoError(t, repo.Revoke(context.Background(), "revoke-me"))

	found, err := repo.FindByID(context.Background(), "revoke-me")
	require.NoError(t, err)
	assert.True(t, found.IsRevoked())

	assert.ErrorIs(t, repo.Revoke(context.Background(), "revoke-me"), usecase.ErrSessionRevoked)
	assert.ErrorIs(t, repo.Revoke(context.Background(), "nonexistent"), usecase.ErrSessionNotFound)
}

func TestSessionGorm_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionGorm(db)
	now := time.Now()
	seedSession(t, db, "expired-1", "user-1", now.Add(-2*time.Hour), now.Add(-time.Hour), nil)
	seedSession(t, db, "expired-2", "user-2", now.Add(-2*time.Hour), now.Add(-time.Minute), nil)
	seedSession(t, db, "active", "user-1", now, now.Add(time.Hour), nil)

	n, err := repo.DeleteExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = repo.FindByID(context.Background(), "active")
	assert.NoError(t, err)
}

func TestSessionGorm_CountByUserID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionGorm(db)
	now := time.Now()
	revokedAt := now.Add(-time.Minute)
	seedSession(t, db, "active-1", "user-1", now, now.Add(time.Hour), nil)
	seedSession(t, db, "active-2", "user-1", now, now.Add(time.Hour), nil)
	seedSession(t, db, "revoked", "user-1", now, now.Add(time.Hour), &revokedAt)
	seedSession(t, db, "expired", "user-1", now.Add(-2*time.Hour), now.Add(-time.Hour), nil)
	seedSession(t, db, "other", "user-2", now, now.Add(time.Hour), nil)

	count, err := repo.CountByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSessionGorm_DeleteOldestByUserID(t *testing.T) {
	t.Run("deletes the oldest active session", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSessionGorm(db)
		now := time.Now()
		seedSession(t, db, "oldest", "user-1", now.Add(-2*time.Hour), now.Add(time.Hour), nil)
		seedSession(t, db, "newer", "user-1", now.Add(-time.Hour), now.Add(time.Hour), nil)

		require.NoError(t, repo.DeleteOldestByUserID(context.Background(), "user-1"))

		_, err := repo.FindByID(context.Background(), "oldest")
		assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
		_, err = repo.FindByID(context.Background(), "newer")
		assert.NoError(t, err)
	})

	t.Run("no sessions is not an error", func(t *testing.T) {
		repo := NewSessionGorm(setupTestDB(t))

		assert.NoError(t, repo.DeleteOldestByUserID(context.Background(), "nobody"))
	})
}
