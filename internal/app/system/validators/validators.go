// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dalemusser/camphub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Validation level is "moderate": legacy documents that already fail the
// schema (string photos, old status values) can still be updated, which is
// what the maintenance migrations rely on.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	for _, coll := range Collections() {
		ensure(coll, schemas[coll]())
	}
	// Collections without validators still get created up front so
	// transactions never have to create them implicitly.
	for _, coll := range plainCollections {
		ensure(coll, nil)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

var schemas = map[string]func() bson.M{
	"users":        usersSchema,
	"camps":        campsSchema,
	"applications": applicationsSchema,
	"members":      membersSchema,
	"rosters":      rostersSchema,
	"invites":      invitesSchema,
	"tasks":        tasksSchema,
	"faqs":         faqsSchema,
	"call_slots":   callSlotsSchema,
	"events":       eventsSchema,
}

var plainCollections = []string{
	"support_tickets", "categories", "skills", "activity_logs", "oauth_states", "password_resets",
}

// Collections lists the collections that carry a validator, sorted.
func Collections() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schema returns the validator document for coll, or nil.
func Schema(coll string) bson.M {
	if f, ok := schemas[coll]; ok {
		return f()
	}
	return nil
}

// CountInvalid counts documents in coll that fail its schema. It works on
// servers without collMod support because $jsonSchema is a query operator.
func CountInvalid(ctx context.Context, db *mongo.Database, coll string) (int64, error) {
	s := Schema(coll)
	if s == nil {
		return 0, nil
	}
	return db.Collection(coll).CountDocuments(ctx, bson.M{"$nor": bson.A{s}})
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enum[T ~string](vals []T) bson.A {
	out := bson.A{}
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "account_type"},
			"properties": bson.M{
				"email":        bson.M{"bsonType": "string", "minLength": 3, "pattern": "^[^A-Z]*$"},
				"account_type": bson.M{"enum": bson.A{models.AccountPersonal, models.AccountCamp, models.AccountAdmin}},
				"role":         bson.M{"enum": bson.A{models.RoleUnassigned, models.RoleMember, models.RoleCampLead, ""}},
				"camp_id":      bson.M{"bsonType": bson.A{"objectId", "null"}},
				"playa_name":   bson.M{"bsonType": "string", "maxLength": 100},
				"years_burned": bson.M{"bsonType": bson.A{"int", "long", "double"}, "minimum": 0, "maximum": 50},
				"bio":          bson.M{"bsonType": "string", "maxLength": 1000},
				"is_active":    bson.M{"bsonType": "bool"},
			},
		},
	}
}

func campsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "slug", "status"},
			"properties": bson.M{
				"name":        nonBlank,
				"slug":        bson.M{"bsonType": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"},
				"description": bson.M{"bsonType": "string", "maxLength": 2000},
				"bio":         bson.M{"bsonType": "string", "maxLength": 5000},
				"status":      bson.M{"enum": bson.A{models.CampActive, models.CampInactive, models.CampSuspended, models.CampArchived}},
				"owner":       bson.M{"bsonType": bson.A{"objectId", "null"}},
				"is_public":   bson.M{"bsonType": "bool"},
				"photos": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"url"},
						"properties": bson.M{
							"url":        bson.M{"bsonType": "string"},
							"is_primary": bson.M{"bsonType": "bool"},
						},
					},
				},
			},
		},
	}
}

func applicationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"applicant", "camp", "status"},
			"properties": bson.M{
				"applicant":   bson.M{"bsonType": "objectId"},
				"camp":        bson.M{"bsonType": "objectId"},
				"status":      bson.M{"enum": enum(models.ApplicationStatuses)},
				"dues_status": bson.M{"enum": bson.A{models.DuesUnpaid, models.DuesPaid}},
			},
		},
	}
}

func membersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"camp", "user", "role", "status"},
			"properties": bson.M{
				"camp":   bson.M{"bsonType": "objectId"},
				"user":   bson.M{"bsonType": "objectId"},
				"role":   bson.M{"enum": bson.A{models.MemberRoleMember, models.MemberRoleProjectLead, models.MemberRoleCampLead}},
				"status": bson.M{"enum": bson.A{models.MemberPending, models.MemberActive, models.MemberInactive, models.MemberSuspended, models.MemberRejected}},
			},
		},
	}
}

func rostersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"camp", "name", "is_active"},
			"properties": bson.M{
				"camp":      bson.M{"bsonType": "objectId"},
				"name":      nonBlank,
				"is_active": bson.M{"bsonType": "bool"},
				"members": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"member", "user"},
						"properties": bson.M{
							"member":      bson.M{"bsonType": "objectId"},
							"user":        bson.M{"bsonType": "objectId"},
							"dues_status": bson.M{"enum": bson.A{models.DuesUnpaid, models.DuesPaid}},
						},
					},
				},
			},
		},
	}
}

func invitesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"camp_id", "recipient", "method", "status", "expires_at"},
			"properties": bson.M{
				"camp_id":    bson.M{"bsonType": "objectId"},
				"recipient":  nonBlank,
				"method":     bson.M{"enum": bson.A{models.InviteEmail, models.InviteSMS}},
				"status":     bson.M{"enum": bson.A{models.InvitePending, models.InviteSent, models.InviteApplied, models.InviteExpired}},
				"token":      bson.M{"bsonType": "string", "pattern": "^[0-9a-f]{64}$"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func tasksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"task_code", "camp_id", "title", "description", "status"},
			"properties": bson.M{
				"task_code":   bson.M{"bsonType": "string", "pattern": "^T[A-Z0-9]{5}$"},
				"camp_id":     bson.M{"bsonType": "objectId"},
				"title":       nonBlank,
				"description": nonBlank,
				"status":      bson.M{"enum": bson.A{models.TaskOpen, models.TaskClosed}},
				"priority":    bson.M{"enum": bson.A{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}},
				"assigned_to": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func callSlotsSchema() bson.M {
	clock := bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"camp_id", "date", "start_time", "end_time", "max_participants"},
			"properties": bson.M{
				"camp_id":              bson.M{"bsonType": "objectId"},
				"date":                 bson.M{"bsonType": "date"},
				"start_time":           clock,
				"end_time":             clock,
				"max_participants":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"current_participants": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"participants":         bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
			},
		},
	}
}

func eventsSchema() bson.M {
	status := bson.M{"enum": enum(models.EventStatuses)}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"camp_id", "event_name", "shifts", "status"},
			"properties": bson.M{
				"camp_id":    bson.M{"bsonType": "objectId"},
				"event_name": nonBlank,
				"status":     status,
				"shifts": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"_id", "title", "start_time", "end_time", "max_sign_ups"},
						"properties": bson.M{
							"title":        nonBlank,
							"start_time":   bson.M{"bsonType": "date"},
							"end_time":     bson.M{"bsonType": "date"},
							"max_sign_ups": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
							"member_ids":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
							"status":       status,
						},
					},
				},
			},
		},
	}
}

func faqsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"question", "answer", "category"},
			"properties": bson.M{
				"question": nonBlank,
				"answer":   nonBlank,
				"category": bson.M{"enum": enum(models.FAQCategories)},
				"audience": bson.M{"enum": bson.A{models.AudienceBoth, models.AudienceCamps, models.AudienceMembers}},
				"order":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
			},
		},
	}
}
