// internal/app/maintenance/migrations.go
package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/slug"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PhotoReport summarises MigratePhotos.
type PhotoReport struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
}

// legacyCamp decodes photos without assuming their shape.
type legacyCamp struct {
	ID     primitive.ObjectID `bson:"_id"`
	Photos []any              `bson:"photos"`
}

// MigratePhotos converts galleries stored as plain URL strings into photo
// objects. The first photo becomes primary unless one is already marked.
func (s *Service) MigratePhotos(ctx context.Context) (PhotoReport, error) {
	// $type on an array field matches when any element has that type.
	cur, err := s.Camps.Collection().Find(ctx, bson.M{"photos": bson.M{"$type": "string"}})
	if err != nil {
		return PhotoReport{}, fmt.Errorf("find legacy photos: %w", err)
	}
	var camps []legacyCamp
	if err := cur.All(ctx, &camps); err != nil {
		return PhotoReport{}, err
	}

	var rep PhotoReport
	for _, c := range camps {
		rep.Scanned++
		photos, primary := convertPhotos(c.Photos)
		if err := s.Camps.ReplacePhotos(ctx, c.ID, photos, primary); err != nil {
			return rep, fmt.Errorf("camp %s: %w", c.ID.Hex(), err)
		}
		rep.Migrated++
	}
	if rep.Migrated > 0 {
		s.Log.Info("migrated camp photos", zap.Int("camps", rep.Migrated))
	}
	return rep, nil
}

func convertPhotos(raw []any) ([]models.Photo, int) {
	photos := make([]models.Photo, 0, len(raw))
	for _, v := range raw {
		switch p := v.(type) {
		case string:
			if strings.TrimSpace(p) != "" {
				photos = append(photos, models.Photo{URL: p})
			}
		case bson.D:
			photos = append(photos, photoFromMap(p.Map()))
		case bson.M:
			photos = append(photos, photoFromMap(p))
		}
	}

	primary := 0
	for i, p := range photos {
		if p.IsPrimary {
			primary = i
			break
		}
	}
	for i := range photos {
		photos[i].IsPrimary = i == primary
	}
	return photos, primary
}

func photoFromMap(m bson.M) models.Photo {
	var p models.Photo
	p.URL, _ = m["url"].(string)
	p.Caption, _ = m["caption"].(string)
	if v, ok := m["is_primary"].(bool); ok {
		p.IsPrimary = v
	} else if v, ok := m["isPrimary"].(bool); ok {
		p.IsPrimary = v
	}
	return p
}

// SlugFix is one regenerated slug.
type SlugFix struct {
	CampID primitive.ObjectID `json:"campId"`
	Name   string             `json:"name"`
	From   string             `json:"from"`
	To     string             `json:"to"`
}

// FixSlugs regenerates slugs that are missing, not in canonical form, or
// shared with an older camp. The oldest camp keeps a contested slug.
func (s *Service) FixSlugs(ctx context.Context) ([]SlugFix, error) {
	camps, err := s.campRefs(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(camps))
	fixes := []SlugFix{}
	for _, c := range camps {
		if slug.Valid(c.Slug) && !seen[c.Slug] {
			seen[c.Slug] = true
			continue
		}
		next, err := slug.Unique(ctx, c.Name, func(ctx context.Context, candidate string) (bool, error) {
			if seen[candidate] {
				return true, nil
			}
			return s.Camps.SlugTaken(c.ID)(ctx, candidate)
		})
		if err != nil {
			return fixes, err
		}
		if err := s.Camps.Update(ctx, c.ID, bson.M{"slug": next}); err != nil {
			return fixes, fmt.Errorf("camp %s: %w", c.ID.Hex(), err)
		}
		if err := s.Users.SetCampSlug(ctx, c.ID, next); err != nil {
			return fixes, err
		}
		seen[next] = true
		fixes = append(fixes, SlugFix{CampID: c.ID, Name: c.Name, From: c.Slug, To: next})
	}
	if len(fixes) > 0 {
		s.Log.Info("regenerated camp slugs", zap.Int("count", len(fixes)))
	}
	return fixes, nil
}

// legacyStatuses maps application statuses written by older releases to
// the current set.
var legacyStatuses = []struct{ From, To string }{
	{"ApplicationSubmitted", models.AppPending},
	{"submitted", models.AppPending},
	{"PendingFinalReview", models.AppUnderReview},
	{"under_review", models.AppUnderReview},
	{"call_scheduled", models.AppCallScheduled},
	{"pending_orientation", models.AppPendingOrientation},
	{"Accepted", models.AppApproved},
	{"accepted", models.AppApproved},
	{"Rejected", models.AppRejected},
	{"declined", models.AppRejected},
}

// MigrateApplicationStatuses renames legacy statuses and returns how many
// applications moved, keyed by the old status.
func (s *Service) MigrateApplicationStatuses(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, m := range legacyStatuses {
		n, err := s.Applications.RenameStatus(ctx, m.From, m.To)
		if err != nil {
			return out, fmt.Errorf("rename %q: %w", m.From, err)
		}
		if n > 0 {
			out[m.From] = n
			s.Log.Info("migrated application status",
				zap.String("from", m.From), zap.String("to", m.To), zap.Int64("count", n))
		}
	}
	return out, nil
}

// visibilityDefaults are the values camps created before the visibility
// controls existed receive. Those camps were all listed publicly.
var visibilityDefaults = []struct {
	Field string
	Value bool
}{
	{"is_public", true},
	{"is_recruiting", true},
	{"accepting_new_members", true},
	{"show_apply_now", true},
	{"show_member_count", true},
}

// MigrateVisibility fills visibility flags missing from older camps.
// Existing values are never touched.
func (s *Service) MigrateVisibility(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, d := range visibilityDefaults {
		res, err := s.Camps.Collection().UpdateMany(ctx,
			bson.M{d.Field: bson.M{"$exists": false}},
			bson.M{"$set": bson.M{d.Field: d.Value}},
		)
		if err != nil {
			return out, fmt.Errorf("set %s: %w", d.Field, err)
		}
		if res.ModifiedCount > 0 {
			out[d.Field] = res.ModifiedCount
		}
	}
	return out, nil
}

// ReactivateCamps returns inactive and suspended camps to active. Archived
// camps stay archived.
func (s *Service) ReactivateCamps(ctx context.Context) (int64, error) {
	res, err := s.Camps.Collection().UpdateMany(ctx,
		bson.M{"status": bson.M{"$in": []string{models.CampInactive, models.CampSuspended}}},
		bson.M{"$set": bson.M{"status": models.CampActive, "updated_at": s.now()}},
	)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount > 0 {
		s.Log.Info("reactivated camps", zap.Int64("count", res.ModifiedCount))
	}
	return res.ModifiedCount, nil
}
