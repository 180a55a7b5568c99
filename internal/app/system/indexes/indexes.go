// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently. Errors are aggregated so every problem is visible and startup
can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := dropLegacy(ctx, db.Collection(name), legacy[name]); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
		if err := ensureIndexSet(ctx, db.Collection(name), desired[name]()); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Collections returns the names of every collection with managed indexes.
func Collections() []string {
	out := make([]string, 0, len(desired))
	for name := range desired {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB return IndexOptionsConflict when an index with the same keys
// exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// duplicateHints point operators at the aggregation that finds offending
// documents when a unique index cannot be built.
var duplicateHints = map[string]string{
	"users/email:1": `db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
	"camps/slug:1":  `db.camps.aggregate([{ $group: { _id: "$slug", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]) (run "camphubctl fix-slugs")`,
	"members/camp:1, user:1": `db.members.aggregate([{ $group: { _id: { camp: "$camp", user: "$user" }, n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }]) ` +
		`(run "camphubctl duplicate-members")`,
}

func uniqueFailure(coll, name, sig string) string {
	msg := fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll, name)
	if hint, ok := duplicateHints[coll+"/"+sig]; ok {
		msg += ". Example finder:\n" + hint
	}
	return msg
}

type desiredIndex struct {
	model  mongo.IndexModel
	name   string
	unique *bool
	sig    string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique
	}
	return d
}

func (d desiredIndex) isUnique() bool { return d.unique != nil && *d.unique }

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops old and creates d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("%s(%s): drop %s failed: %w", coll.Name(), d.name, old, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if isDuplicateKeyErr(err) && d.isUnique() {
			return errors.New(uniqueFailure(coll.Name(), d.name, d.sig))
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), d.name, err)
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listExisting(ctx, coll)

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.isUnique()),
		}

		ex, found := existing[d.sig]
		switch {
		case found && sameBoolPtr(d.unique, ex.Unique) && (d.name == "" || ex.Name == d.name):
			zap.L().Debug("reusing existing index", fields...)
			continue

		case found:
			// Same keys but a different name or uniqueness: align by recreating.
			zap.L().Info("recreating index to align options",
				append(fields, zap.String("existing", ex.Name))...)
			if err := recreate(ctx, coll, ex.Name, d); err != nil {
				zap.L().Warn("index recreate failed", append(fields, zap.Error(err))...)
				errs = append(errs, err.Error())
				continue
			}

		default:
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				switch {
				case isOptionsConflictErr(err):
					// Another definition appeared between List and CreateOne.
					again := listExisting(ctx, coll)
					if match, ok := again[d.sig]; ok {
						if sameBoolPtr(d.unique, match.Unique) {
							continue
						}
						if rerr := recreate(ctx, coll, match.Name, d); rerr != nil {
							errs = append(errs, rerr.Error())
							continue
						}
					} else {
						errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
						continue
					}
				case isDuplicateKeyErr(err) && d.isUnique():
					errs = append(errs, uniqueFailure(coll.Name(), d.name, d.sig))
					continue
				default:
					zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
					continue
				}
			}
		}

		zap.L().Info("index ensured", append(fields, zap.String("took", time.Since(start).String()))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// dropLegacy removes indexes by name that older releases created and that
// now conflict with the desired set. Missing indexes are ignored.
func dropLegacy(ctx context.Context, coll *mongo.Collection, names []string) error {
	if len(names) == 0 {
		return nil
	}
	byName := map[string]bool{}
	for _, ex := range listExisting(ctx, coll) {
		byName[ex.Name] = true
	}
	for _, n := range names {
		if !byName[n] {
			continue
		}
		if _, err := coll.Indexes().DropOne(ctx, n); err != nil {
			return fmt.Errorf("drop legacy index %s: %w", n, err)
		}
		zap.L().Info("dropped legacy index", zap.String("collection", coll.Name()), zap.String("name", n))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

var legacy = map[string][]string{
	// A plain unique index on camp stopped camps from keeping archived rosters.
	"rosters": {"camp_1", "uniq_rosters_camp"},
	// Superseded by the partial unique index on token.
	"invites": {"token_1"},
}

var desired = map[string]func() []mongo.IndexModel{
	"users":           usersIndexes,
	"camps":           campsIndexes,
	"applications":    applicationsIndexes,
	"members":         membersIndexes,
	"rosters":         rostersIndexes,
	"invites":         invitesIndexes,
	"tasks":           tasksIndexes,
	"faqs":            faqsIndexes,
	"support_tickets": supportTicketsIndexes,
	"categories":      lookupIndexes("categories"),
	"skills":          lookupIndexes("skills"),
	"activity_logs":   activityLogsIndexes,
	"oauth_states":    oauthStatesIndexes,
	"password_resets": passwordResetsIndexes,
	"call_slots":      callSlotsIndexes,
	"events":          eventsIndexes,
}

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Google sign-in lookup; sparse so password accounts don't collide.
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_googleid"),
		},
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}},
			Options: options.Index().SetName("idx_users_campid"),
		},
		// Admin user list: filter by type/status, sort by name, keyset on _id.
		{
			Keys: bson.D{
				{Key: "account_type", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_type_active_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_nameci_id"),
		},
	}
}

func campsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_camps_slug"),
		},
		{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName("idx_camps_owner"),
		},
		// Public directory: visible + active, name order.
		{
			Keys: bson.D{
				{Key: "is_public", Value: 1},
				{Key: "status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_camps_public_status_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "categories", Value: 1}},
			Options: options.Index().SetName("idx_camps_categories"),
		},
		{
			Keys:    bson.D{{Key: "contact_email", Value: 1}},
			Options: options.Index().SetName("idx_camps_contactemail"),
		},
	}
}

func applicationsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "camp", Value: 1}, {Key: "status", Value: 1}, {Key: "applied_at", Value: -1}},
			Options: options.Index().SetName("idx_apps_camp_status_applied"),
		},
		{
			Keys:    bson.D{{Key: "applicant", Value: 1}, {Key: "applied_at", Value: -1}},
			Options: options.Index().SetName("idx_apps_applicant_applied"),
		},
		// Duplicate check: applicant+camp with non-terminal status.
		{
			Keys:    bson.D{{Key: "applicant", Value: 1}, {Key: "camp", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_apps_applicant_camp_status"),
		},
	}
}

func callSlotsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// Applicant picker: a camp's open slots in date order.
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}, {Key: "is_available", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_callslots_camp_available_date"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("idx_callslots_participants"),
		},
	}
}

func eventsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_events_camp_status_created"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("idx_events_createdby"),
		},
		// Sign-up and cancel find the event by its embedded shift id.
		{
			Keys:    bson.D{{Key: "shifts._id", Value: 1}},
			Options: options.Index().SetName("idx_events_shift_id"),
		},
		{
			Keys:    bson.D{{Key: "shifts.member_ids", Value: 1}},
			Options: options.Index().SetName("idx_events_shift_members"),
		},
	}
}

func membersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "camp", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_members_camp_user"),
		},
		{
			Keys:    bson.D{{Key: "user", Value: 1}},
			Options: options.Index().SetName("idx_members_user"),
		},
		{
			Keys:    bson.D{{Key: "camp", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_members_camp_status"),
		},
	}
}

func rostersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// At most one active roster per camp.
		{
			Keys: bson.D{{Key: "camp", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}).
				SetName("uniq_rosters_camp_active"),
		},
		{
			Keys:    bson.D{{Key: "camp", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_rosters_camp_created"),
		},
		{
			Keys:    bson.D{{Key: "members.member", Value: 1}},
			Options: options.Index().SetName("idx_rosters_membersmember"),
		},
		{
			Keys:    bson.D{{Key: "members.user", Value: 1}},
			Options: options.Index().SetName("idx_rosters_membersuser"),
		},
	}
}

func invitesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "token", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"token": bson.M{"$type": "string"}}).
				SetName("uniq_invites_token"),
		},
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_invites_camp_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_invites_status_expires"),
		},
	}
}

func tasksIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "task_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tasks_code"),
		},
		{
			Keys:    bson.D{{Key: "camp_id", Value: 1}, {Key: "status", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_tasks_camp_status_due"),
		},
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assigned_status"),
		},
	}
}

func faqsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "audience", Value: 1},
				{Key: "category", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetName("idx_faqs_active_audience_category_order"),
		},
	}
}

func supportTicketsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ticket_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tickets_ticketid"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_tickets_status_created"),
		},
	}
}

func lookupIndexes(coll string) func() []mongo.IndexModel {
	return func() []mongo.IndexModel {
		return []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "name_ci", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_" + coll + "_nameci"),
			},
		}
	}
}

func activityLogsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_activity_entity_time"),
		},
		{
			Keys:    bson.D{{Key: "acting_user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_activity_actor_time"),
		},
		{
			Keys:    bson.D{{Key: "activity_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_activity_type_time"),
		},
	}
}

func oauthStatesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauthstates_state"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_oauthstates_expires"),
		},
	}
}

func passwordResetsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_pwresets_tokenhash"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_pwresets_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_pwresets_expires"),
		},
	}
}
