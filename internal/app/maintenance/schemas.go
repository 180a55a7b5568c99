// internal/app/maintenance/schemas.go
package maintenance

import (
	"context"
	"fmt"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// SchemaCheck is one count of documents breaking a shape rule.
type SchemaCheck struct {
	Collection string `json:"collection"`
	Check      string `json:"check"`
	Invalid    int64  `json:"invalid"`
}

// SchemaReport is the result of ValidateSchemas.
type SchemaReport struct {
	Checks []SchemaCheck `json:"checks"`
}

// Invalid totals the failing documents across checks.
func (r SchemaReport) Invalid() int64 {
	var n int64
	for _, c := range r.Checks {
		n += c.Invalid
	}
	return n
}

func missing(field string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{"$exists": false}},
		bson.M{field: nil},
		bson.M{field: ""},
	}}
}

var schemaRules = []struct {
	coll, check string
	filter      bson.M
}{
	{"users", "missing email", missing("email")},
	{"users", "unknown account_type", bson.M{"account_type": bson.M{"$nin": bson.A{models.AccountPersonal, models.AccountCamp, models.AccountAdmin}}}},
	{"users", "camp account without camp_id", bson.M{"account_type": models.AccountCamp, "camp_id": bson.M{"$exists": false}}},
	{"camps", "missing name", missing("name")},
	{"camps", "missing slug", missing("slug")},
	{"camps", "missing owner", bson.M{"owner": bson.M{"$exists": false}}},
	{"camps", "photos stored as strings", bson.M{"photos": bson.M{"$type": "string"}}},
	{"applications", "missing applicant or camp", bson.M{"$or": bson.A{
		bson.M{"applicant": bson.M{"$exists": false}},
		bson.M{"camp": bson.M{"$exists": false}},
	}}},
	{"applications", "unknown status", bson.M{"status": bson.M{"$nin": models.ApplicationStatuses}}},
	{"rosters", "missing camp", bson.M{"camp": bson.M{"$exists": false}}},
}

// ValidateSchemas counts documents missing required fields or carrying
// values the current code cannot read. It only reads.
func (s *Service) ValidateSchemas(ctx context.Context) (SchemaReport, error) {
	rep := SchemaReport{Checks: make([]SchemaCheck, 0, len(schemaRules))}
	for _, r := range schemaRules {
		n, err := s.DB.Collection(r.coll).CountDocuments(ctx, r.filter)
		if err != nil {
			return rep, fmt.Errorf("%s %s: %w", r.coll, r.check, err)
		}
		rep.Checks = append(rep.Checks, SchemaCheck{Collection: r.coll, Check: r.check, Invalid: n})
		if n > 0 {
			s.Log.Warn("schema check failed",
				zap.String("collection", r.coll),
				zap.String("check", r.check),
				zap.Int64("documents", n))
		}
	}
	return rep, nil
}
