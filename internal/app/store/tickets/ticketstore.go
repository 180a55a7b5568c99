package ticketstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Ticket statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("support_tickets")}
}

// NewTicketID returns a short human-readable id such as "CH-1A2B3C4D".
func NewTicketID() string {
	return "CH-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create stores an open ticket under a fresh ticket id.
func (s *Store) Create(ctx context.Context, t models.SupportTicket) (models.SupportTicket, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.TicketID == "" {
		t.TicketID = NewTicketID()
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	t.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.SupportTicket{}, err
	}
	return t, nil
}

// List returns tickets newest first, optionally in one status.
func (s *Store) List(ctx context.Context, status string, limit int64) ([]models.SupportTicket, error) {
	q := bson.M{}
	if status != "" {
		q["status"] = status
	}
	return s.find(ctx, q, limit)
}

// ListForUser returns tickets filed by userID or sent from email.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, email string, limit int64) ([]models.SupportTicket, error) {
	return s.find(ctx, bson.M{"$or": []bson.M{
		{"user_id": userID},
		{"email": strings.ToLower(strings.TrimSpace(email))},
	}}, limit)
}

func (s *Store) find(ctx context.Context, q bson.M, limit int64) ([]models.SupportTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.SupportTicket{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
