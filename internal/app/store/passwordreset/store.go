// internal/app/store/passwordreset/store.go
package passwordreset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// TokenLength is the reset token size in bytes (64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a reset link is valid.
	DefaultExpiry = 1 * time.Hour
)

// ErrNotFound is returned when a token is unknown, used, or expired.
var ErrNotFound = errors.New("reset token not found or expired")

// Reset is a pending password reset. Only the SHA-256 of the token is stored.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages password reset tokens.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a new Store. A non-positive expiry uses DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("password_resets"), expiry: expiry}
}

// Expiry returns how long new tokens are valid.
func (s *Store) Expiry() time.Duration { return s.expiry }

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new token for userID, replacing any earlier ones, and
// returns the plaintext token to embed in the reset link.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(b)

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", fmt.Errorf("clear old tokens: %w", err)
	}

	now := time.Now().UTC()
	r := Reset{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Email:     email,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert reset: %w", err)
	}
	return token, nil
}

// Consume validates token and deletes it (single use).
func (s *Store) Consume(ctx context.Context, token string) (*Reset, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var r Reset
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token_hash": hashToken(token),
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteForUsers removes pending tokens for the given users.
func (s *Store) DeleteForUsers(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CleanupExpired removes expired tokens. Backup for delayed TTL cleanup.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
