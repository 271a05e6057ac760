// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered user in the system.
// It is constructed per request from a store record and never shared across requests.
type User struct {
	// ID is the store-assigned identifier for the user.
	// It is opaque to callers and immutable after creation.
	ID string `gorm:"primaryKey;size:36"`

	// Username is the login name. It must be unique across all users.
	Username string `gorm:"uniqueIndex;size:25;not null"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never store plaintext passwords.
	PasswordHash string `gorm:"column:password;size:255;not null"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time
}
