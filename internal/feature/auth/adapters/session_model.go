package adapters

import (
	"time"

	"portal_backend/internal/feature/auth/domain/entity"
)

// sessionRow maps entity.Session onto the sessions table.
type sessionRow struct {
	ID        string     `gorm:"primaryKey;size:64"`
	UserID    string     `gorm:"index:idx_sessions_user_created,priority:1;size:36;not null"`
	UserAgent string     `gorm:"size:512"`
	IPAddress string     `gorm:"size:45"`
	CreatedAt time.Time  `gorm:"index:idx_sessions_user_created,priority:2;not null"`
	ExpiresAt time.Time  `gorm:"index;not null"`
	RevokedAt *time.Time `gorm:"index"`
}

func (sessionRow) TableName() string {
	return "sessions"
}

// Models lists the gorm models owned by the auth feature, for AutoMigrate.
func Models() []any {
	return []any{&entity.User{}, &sessionRow{}}
}

func newSessionRow(s *entity.Session) *sessionRow {
	row := sessionRow(*s)
	return &row
}

func (r *sessionRow) session() *entity.Session {
	s := entity.Session(*r)
	return &s
}
