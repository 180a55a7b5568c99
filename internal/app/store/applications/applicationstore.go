package applicationstore

import (
	"context"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("applications")}
}

// nonTerminal matches applications that still block a new one.
func nonTerminal() bson.M {
	return bson.M{"$nin": models.TerminalApplicationStatuses}
}

// Create inserts a new application with a "submitted" history entry.
func (s *Store) Create(ctx context.Context, a models.Application) (models.Application, error) {
	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.DuesStatus == "" {
		a.DuesStatus = models.DuesUnpaid
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = now
	}
	if a.Messages == nil {
		a.Messages = []models.ApplicationMessage{}
	}
	a.ActionHistory = append(a.ActionHistory, models.ActionHistoryEntry{
		Action:      "submitted",
		ToStatus:    a.Status,
		PerformedBy: a.Applicant,
		Timestamp:   now,
	})
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Application{}, err
	}
	return a, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Application, error) {
	var a models.Application
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindActive returns the applicant's non-terminal application to camp.
// Returns mongo.ErrNoDocuments when there is none.
func (s *Store) FindActive(ctx context.Context, applicant, camp primitive.ObjectID) (*models.Application, error) {
	var a models.Application
	err := s.c.FindOne(ctx,
		bson.M{"applicant": applicant, "camp": camp, "status": nonTerminal()},
		options.FindOne().SetSort(bson.D{{Key: "applied_at", Value: -1}}),
	).Decode(&a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Latest returns the newest application from applicant to camp in any status.
func (s *Store) Latest(ctx context.Context, applicant, camp primitive.ObjectID) (*models.Application, error) {
	var a models.Application
	err := s.c.FindOne(ctx,
		bson.M{"applicant": applicant, "camp": camp},
		options.FindOne().SetSort(bson.D{{Key: "applied_at", Value: -1}}),
	).Decode(&a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByApplicant returns the applicant's applications, newest first.
func (s *Store) ListByApplicant(ctx context.Context, applicant primitive.ObjectID) ([]models.Application, error) {
	return s.Find(ctx, bson.M{"applicant": applicant, "status": bson.M{"$ne": models.AppDeleted}},
		options.Find().SetSort(bson.D{{Key: "applied_at", Value: -1}}))
}

// ListByCamp returns a camp's applications, optionally in one status.
func (s *Store) ListByCamp(ctx context.Context, camp primitive.ObjectID, status string) ([]models.Application, error) {
	q := bson.M{"camp": camp}
	if status != "" {
		q["status"] = status
	} else {
		q["status"] = bson.M{"$ne": models.AppDeleted}
	}
	return s.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "applied_at", Value: -1}}))
}

// StatusChange describes a review decision.
type StatusChange struct {
	To          string
	ReviewedBy  primitive.ObjectID
	ReviewNotes string
	Action      string
}

// ChangeStatus moves an application to ch.To, appending a history entry
// with the previous status. It returns the updated document.
func (s *Store) ChangeStatus(ctx context.Context, id primitive.ObjectID, ch StatusChange) (*models.Application, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	action := ch.Action
	if action == "" {
		action = "status_changed"
	}
	set := bson.M{
		"status":      ch.To,
		"reviewed_by": ch.ReviewedBy,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if ch.ReviewNotes != "" {
		set["review_notes"] = ch.ReviewNotes
	}
	entry := models.ActionHistoryEntry{
		Action:      action,
		FromStatus:  cur.Status,
		ToStatus:    ch.To,
		PerformedBy: ch.ReviewedBy,
		Notes:       ch.ReviewNotes,
		Timestamp:   now,
	}
	var out models.Application
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$push": bson.M{"action_history": entry}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMessage appends to the application thread.
func (s *Store) AddMessage(ctx context.Context, id primitive.ObjectID, m models.ApplicationMessage) (*models.Application, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	var out models.Application
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"messages": m},
			"$set":  bson.M{"updated_at": m.Timestamp},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDuesForMember mirrors a roster dues change onto the member's approved
// application to camp.
func (s *Store) SetDuesForMember(ctx context.Context, camp, user primitive.ObjectID, dues string) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"camp": camp, "applicant": user, "status": models.AppApproved},
		bson.M{"$set": bson.M{"dues_status": dues, "updated_at": time.Now().UTC()}},
	)
	return err
}

// RejectForMember marks the user's approved or open applications to camp
// rejected with notes, recording who did it.
func (s *Store) RejectForMember(ctx context.Context, camp, user, by primitive.ObjectID, notes string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx,
		bson.M{"camp": camp, "applicant": user, "status": nonTerminal()},
		bson.M{
			"$set": bson.M{"status": models.AppRejected, "review_notes": notes, "reviewed_by": by, "reviewed_at": now, "updated_at": now},
			"$push": bson.M{"action_history": models.ActionHistoryEntry{
				Action: "removed_from_roster", ToStatus: models.AppRejected, PerformedBy: by, Notes: notes, Timestamp: now,
			}},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// WithdrawActive withdraws every non-terminal application from applicant to
// camp so the applicant may apply again. It returns the number changed.
func (s *Store) WithdrawActive(ctx context.Context, applicant, camp, by primitive.ObjectID) (int64, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateMany(ctx,
		bson.M{"applicant": applicant, "camp": camp, "status": nonTerminal()},
		bson.M{
			"$set": bson.M{"status": models.AppWithdrawn, "updated_at": now},
			"$push": bson.M{"action_history": models.ActionHistoryEntry{
				Action: "admin_reset", ToStatus: models.AppWithdrawn, PerformedBy: by, Timestamp: now,
			}},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Find runs an arbitrary query.
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Application, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Application{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForAccounts returns applications made by users or sent to camps.
func (s *Store) ForAccounts(ctx context.Context, users, camps []primitive.ObjectID) ([]models.Application, error) {
	q := accountsFilter(users, camps)
	if q == nil {
		return []models.Application{}, nil
	}
	return s.Find(ctx, q, nil)
}

// DeleteForAccounts removes applications made by users or sent to camps.
func (s *Store) DeleteForAccounts(ctx context.Context, users, camps []primitive.ObjectID) (int64, error) {
	q := accountsFilter(users, camps)
	if q == nil {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func accountsFilter(users, camps []primitive.ObjectID) bson.M {
	var or []bson.M
	if len(users) > 0 {
		or = append(or, bson.M{"applicant": bson.M{"$in": users}})
	}
	if len(camps) > 0 {
		or = append(or, bson.M{"camp": bson.M{"$in": camps}})
	}
	if len(or) == 0 {
		return nil
	}
	return bson.M{"$or": or}
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// CountByStatus groups applications by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// RenameStatus rewrites every application in status from to status to and
// returns the number changed.
func (s *Store) RenameStatus(ctx context.Context, from, to string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
