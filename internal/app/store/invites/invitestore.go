package invitestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TokenBytes is the number of random bytes in an invite token.
const TokenBytes = 32

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invites")}
}

// NewToken returns TokenBytes random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create stores a pending invite with a fresh token expiring after
// models.InviteTTL.
func (s *Store) Create(ctx context.Context, campID, senderID primitive.ObjectID, recipient, method string) (models.Invite, error) {
	token, err := NewToken()
	if err != nil {
		return models.Invite{}, err
	}
	if method == models.InviteEmail {
		recipient = normalize.Email(recipient)
	}
	now := time.Now().UTC()
	inv := models.Invite{
		ID:        primitive.NewObjectID(),
		CampID:    campID,
		SenderID:  senderID,
		Recipient: recipient,
		Method:    method,
		Status:    models.InvitePending,
		Token:     token,
		ExpiresAt: now.Add(models.InviteTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		return models.Invite{}, err
	}
	return inv, nil
}

// GetByToken returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByCamp returns the camp's invites newest first, optionally in one status.
func (s *Store) ListByCamp(ctx context.Context, campID primitive.ObjectID, status string) ([]models.Invite, error) {
	q := bson.M{"camp_id": campID}
	if status != "" {
		q["status"] = status
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Invite{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) setStatus(ctx context.Context, filter bson.M, status string) (int64, error) {
	res, err := s.c.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkSent records successful delivery.
func (s *Store) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.setStatus(ctx, bson.M{"_id": id}, models.InviteSent)
	return err
}

// MarkApplied records that the invite link was used to apply to campID.
// Only live, unexpired invites issued by that camp change.
func (s *Store) MarkApplied(ctx context.Context, token string, campID primitive.ObjectID) (bool, error) {
	n, err := s.setStatus(ctx, bson.M{
		"token":      token,
		"camp_id":    campID,
		"status":     bson.M{"$in": []string{models.InvitePending, models.InviteSent}},
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}, models.InviteApplied)
	return n > 0, err
}

// ExpireStale marks pending and sent invites whose expiry is at or before
// now as expired and returns how many changed.
func (s *Store) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	return s.setStatus(ctx, bson.M{
		"status":     bson.M{"$in": []string{models.InvitePending, models.InviteSent}},
		"expires_at": bson.M{"$lte": now},
	}, models.InviteExpired)
}

// DeleteForAccounts removes invites sent by users or for camps.
func (s *Store) DeleteForAccounts(ctx context.Context, users, camps []primitive.ObjectID) (int64, error) {
	var or []bson.M
	if len(users) > 0 {
		or = append(or, bson.M{"sender_id": bson.M{"$in": users}})
	}
	if len(camps) > 0 {
		or = append(or, bson.M{"camp_id": bson.M{"$in": camps}})
	}
	if len(or) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": or})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
