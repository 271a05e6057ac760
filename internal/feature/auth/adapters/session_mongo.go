package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"portal_backend/internal/feature/auth/domain/entity"
	"portal_backend/internal/feature/auth/usecase"
)

// SessionsCollection is the MongoDB collection holding session documents.
const SessionsCollection = "sessions"

// sessionDocument is the BSON shape of a session.
type sessionDocument struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	UserAgent string     `bson:"user_agent"`
	IPAddress string     `bson:"ip_address"`
	CreatedAt time.Time  `bson:"created_at"`
	ExpiresAt time.Time  `bson:"expires_at"`
	RevokedAt *time.Time `bson:"revoked_at,omitempty"`
}

func sessionDocumentFromEntity(s *entity.Session) sessionDocument {
	return sessionDocument{
		ID:        s.ID,
		UserID:    s.UserID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		RevokedAt: s.RevokedAt,
	}
}

func (d *sessionDocument) toEntity() *entity.Session {
	return &entity.Session{
		ID:        d.ID,
		UserID:    d.UserID,
		UserAgent: d.UserAgent,
		IPAddress: d.IPAddress,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
		RevokedAt: d.RevokedAt,
	}
}

// sessionMongo is a MongoDB implementation of the SessionRepository interface.
type sessionMongo struct {
	coll *mongo.Collection
}

var _ usecase.SessionRepository = (*sessionMongo)(nil)

// NewSessionMongo creates a sessionMongo on the sessions collection of db.
func NewSessionMongo(db *mongo.Database) *sessionMongo {
	return &sessionMongo{coll: db.Collection(SessionsCollection)}
}

// EnsureIndexes creates the user_id lookup index and a TTL index on expires_at,
// so MongoDB removes expired sessions on its own.
func (r *sessionMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("user_sessions"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
		},
	})
	if err != nil {
		return fmt.Errorf("create sessions indexes: %w", err)
	}
	return nil
}

// Create persists a new session.
func (r *sessionMongo) Create(ctx context.Context, session *entity.Session) error {
	if _, err := r.coll.InsertOne(ctx, sessionDocumentFromEntity(session)); err != nil {
		return storeError("insert session", err)
	}
	return nil
}

// FindByID retrieves a session by its ID.
func (r *sessionMongo) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	var doc sessionDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, usecase.ErrSessionNotFound
		}
		return nil, storeError("find session", err)
	}
	return doc.toEntity(), nil
}

// Revoke marks a session as revoked.
// An already revoked session keeps its first timestamp and yields ErrSessionRevoked.
func (r *sessionMongo) Revoke(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "revoked_at", Value: bson.D{{Key: "$exists", Value: false}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revoked_at", Value: time.Now().UTC()}}}},
	)
	if err != nil {
		return storeError("revoke session", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return usecase.ErrSessionRevoked
}

// DeleteExpired removes expired sessions. The TTL index normally gets there
// first; this covers deployments where the TTL monitor lags.
func (r *sessionMongo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: time.Now().UTC()}}}})
	if err != nil {
		return 0, storeError("delete expired sessions", err)
	}
	return res.DeletedCount, nil
}

// CountByUserID returns the number of active sessions for a user.
func (r *sessionMongo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, activeSessionsFilter(userID))
	if err != nil {
		return 0, storeError("count sessions", err)
	}
	return n, nil
}

// DeleteOldestByUserID deletes the oldest active session for a user.
func (r *sessionMongo) DeleteOldestByUserID(ctx context.Context, userID string) error {
	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := r.coll.FindOneAndDelete(ctx, activeSessionsFilter(userID), opts).Err()
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return storeError("delete oldest session", err)
	}
	return nil
}

func activeSessionsFilter(userID string) bson.D {
	return bson.D{
		{Key: "user_id", Value: userID},
		{Key: "revoked_at", Value: bson.D{{Key: "$exists", Value: false}}},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now().UTC()}}},
	}
}
