// internal/app/maintenance/diagnose.go
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// Issue severities, most serious first.
const (
	SeverityCritical = "CRITICAL"
	SeverityError    = "ERROR"
	SeverityWarning  = "WARNING"
)

// UserSummary is the part of a user a diagnostic report shows.
type UserSummary struct {
	ID          primitive.ObjectID  `json:"_id"`
	Email       string              `json:"email"`
	AccountType string              `json:"accountType"`
	CampID      *primitive.ObjectID `json:"campId,omitempty"`
	CampName    string              `json:"campName,omitempty"`
	IsActive    bool                `json:"isActive"`
	AutoCreated bool                `json:"autoCreated,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// CampSummary is the part of a camp a diagnostic report shows.
type CampSummary struct {
	ID           primitive.ObjectID  `json:"_id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	ContactEmail string              `json:"contactEmail,omitempty"`
	Owner        *primitive.ObjectID `json:"owner,omitempty"`
	Status       string              `json:"status"`
}

// Findings is everything found for a search term.
type Findings struct {
	UserByID           *UserSummary  `json:"userById"`
	UserByEmail        []UserSummary `json:"userByEmail"`
	CampByContactEmail []CampSummary `json:"campByContactEmail"`
	CampOwner          *UserSummary  `json:"campOwner"`
	OwnedCamps         []CampSummary `json:"ownedCamps"`
	Applications       int           `json:"applications"`
	RosterEntries      int           `json:"rosterEntries"`
}

// Issue is one detected problem.
type Issue struct {
	Severity string `json:"severity"`
	Issue    string `json:"issue"`
	Impact   string `json:"impact"`
	Affected string `json:"affected"`
}

// Recommendation is a fix for an issue. Automated ones can be run by
// camphubctl or an admin endpoint.
type Recommendation struct {
	Action    string `json:"action"`
	Command   string `json:"command"`
	Automated bool   `json:"automated"`
}

// Report is the result of Diagnose.
type Report struct {
	SearchTerm      string           `json:"searchTerm"`
	Timestamp       time.Time        `json:"timestamp"`
	Findings        Findings         `json:"findings"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

func (r *Report) issue(severity, issue, impact, affected string) {
	r.Issues = append(r.Issues, Issue{Severity: severity, Issue: issue, Impact: impact, Affected: affected})
}

func (r *Report) recommend(action, command string, automated bool) {
	for _, rec := range r.Recommendations {
		if rec.Command == command && rec.Action == action {
			return
		}
	}
	r.Recommendations = append(r.Recommendations, Recommendation{Action: action, Command: command, Automated: automated})
}

func summariseUser(u models.User) UserSummary {
	return UserSummary{
		ID: u.ID, Email: u.Email, AccountType: u.AccountType, CampID: u.CampID,
		CampName: u.CampName, IsActive: u.IsActive, AutoCreated: u.AutoCreated, CreatedAt: u.CreatedAt,
	}
}

func summariseCamp(c models.Camp) CampSummary {
	return CampSummary{ID: c.ID, Name: c.Name, Slug: c.Slug, ContactEmail: c.ContactEmail, Owner: c.Owner, Status: c.Status}
}

// Diagnose looks up everything term (a user or camp id, or an email)
// touches and reports ownership and linkage problems. It never changes
// data.
func (s *Service) Diagnose(ctx context.Context, term string) (Report, error) {
	term = strings.TrimSpace(term)
	rep := Report{
		SearchTerm:      term,
		Timestamp:       s.now(),
		Findings:        Findings{UserByEmail: []UserSummary{}, CampByContactEmail: []CampSummary{}, OwnedCamps: []CampSummary{}},
		Issues:          []Issue{},
		Recommendations: []Recommendation{},
	}

	var (
		byID      *models.User
		campByID  *models.Camp
		byEmail   []models.User
		byContact []models.Camp
	)
	email := term
	if oid, err := primitive.ObjectIDFromHex(term); err == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			u, err := s.Users.GetByID(gctx, oid)
			if err == nil {
				byID = u
			}
			return ignoreMissing(err)
		})
		g.Go(func() error {
			c, err := s.Camps.GetByID(gctx, oid)
			if err == nil {
				campByID = c
			}
			return ignoreMissing(err)
		})
		if err := g.Wait(); err != nil {
			return rep, err
		}
		email = ""
		if byID != nil {
			email = byID.Email
		} else if campByID != nil {
			email = campByID.ContactEmail
		}
	}

	if email != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			byEmail, err = s.Users.FindAllByEmail(gctx, email)
			return err
		})
		g.Go(func() (err error) {
			byContact, err = s.Camps.FindByContactEmail(gctx, email)
			return err
		})
		if err := g.Wait(); err != nil {
			return rep, err
		}
	}
	if campByID != nil && !containsCamp(byContact, campByID.ID) {
		byContact = append(byContact, *campByID)
	}

	if byID != nil {
		sum := summariseUser(*byID)
		rep.Findings.UserByID = &sum
	}
	for _, u := range byEmail {
		rep.Findings.UserByEmail = append(rep.Findings.UserByEmail, summariseUser(u))
	}
	for _, c := range byContact {
		rep.Findings.CampByContactEmail = append(rep.Findings.CampByContactEmail, summariseCamp(c))
	}

	users := byEmail
	if byID != nil && !containsUser(users, byID.ID) {
		users = append(users, *byID)
	}
	if len(users) == 0 && len(byContact) == 0 {
		rep.issue(SeverityWarning, "No matching account", "Nothing to diagnose", term)
		return rep, nil
	}

	if err := s.checkCamps(ctx, &rep, byContact); err != nil {
		return rep, err
	}
	if err := s.checkUsers(ctx, &rep, users); err != nil {
		return rep, err
	}
	if len(byEmail) > 1 {
		ids := make([]string, 0, len(byEmail))
		for _, u := range byEmail {
			ids = append(ids, u.ID.Hex()+" <"+u.Email+">")
		}
		rep.issue(SeverityWarning, "Duplicate users with the same email",
			"Sign-in picks one account and the others are unreachable", strings.Join(ids, ", "))
		rep.recommend("Delete the unused duplicate account", "camphubctl account delete <id> --yes", false)
	}

	userIDs := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	campIDs := make([]primitive.ObjectID, 0, len(byContact)+len(rep.Findings.OwnedCamps))
	for _, c := range byContact {
		campIDs = append(campIDs, c.ID)
	}
	for _, c := range rep.Findings.OwnedCamps {
		if !containsID(campIDs, c.ID) {
			campIDs = append(campIDs, c.ID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		apps, err := s.Applications.ForAccounts(gctx, userIDs, campIDs)
		rep.Findings.Applications = len(apps)
		return err
	})
	g.Go(func() error {
		if len(userIDs) == 0 {
			return nil
		}
		rosters, err := s.Rosters.ContainingUsers(gctx, userIDs)
		if err != nil {
			return err
		}
		n := 0
		for _, r := range rosters {
			for _, e := range r.Members {
				if containsID(userIDs, e.User) {
					n++
				}
			}
		}
		rep.Findings.RosterEntries = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return rep, err
	}
	return rep, nil
}

func (s *Service) checkCamps(ctx context.Context, rep *Report, camps []models.Camp) error {
	for i, c := range camps {
		affected := fmt.Sprintf("camp %s (%s)", c.Name, c.ID.Hex())
		if c.Owner == nil {
			rep.issue(SeverityCritical, "Camp has no owner",
				"Nobody can sign in to manage this camp", affected)
			rep.recommend("Restore the camp admin", "POST /api/admin/restore-camp-admin/"+c.ID.Hex(), true)
			continue
		}
		owner, err := s.Users.GetByID(ctx, *c.Owner)
		if errors.Is(err, mongo.ErrNoDocuments) {
			rep.issue(SeverityCritical, "Camp owner points at a missing user",
				"Nobody can sign in to manage this camp", affected)
			rep.recommend("Restore the camp admin", "POST /api/admin/restore-camp-admin/"+c.ID.Hex(), true)
			continue
		}
		if err != nil {
			return err
		}
		if i == 0 {
			sum := summariseUser(*owner)
			rep.Findings.CampOwner = &sum
		}
	}
	return nil
}

func (s *Service) checkUsers(ctx context.Context, rep *Report, users []models.User) error {
	for _, u := range users {
		affected := fmt.Sprintf("user %s (%s)", u.Email, u.ID.Hex())

		owned, err := s.Camps.FindByOwner(ctx, u.ID)
		switch {
		case err == nil:
			if !containsSummary(rep.Findings.OwnedCamps, owned.ID) {
				rep.Findings.OwnedCamps = append(rep.Findings.OwnedCamps, summariseCamp(*owned))
			}
		case !errors.Is(err, mongo.ErrNoDocuments):
			return err
		}

		if u.AccountType == models.AccountCamp && u.CampID == nil {
			rep.issue(SeverityError, "Camp account has no camp_id",
				"The account signs in but cannot reach its camp", affected)
			rep.recommend("Repair camp owners", "camphubctl repair owners --since=all", true)
		}
		if u.CampID != nil {
			_, err := s.Camps.GetByID(ctx, *u.CampID)
			if errors.Is(err, mongo.ErrNoDocuments) {
				rep.issue(SeverityError, "camp_id points at a missing camp",
					"Camp pages fail to load for this account", affected)
				rep.recommend("Clear camp_id or restore the camp", "manual", false)
			} else if err != nil {
				return err
			}
		}
		if !u.IsActive {
			rep.issue(SeverityWarning, "Account is inactive", "The user cannot sign in", affected)
			rep.recommend("Reactivate the user", "PUT /api/admin/users/"+u.ID.Hex()+"/status", true)
		}
	}
	return nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}

func containsUser(us []models.User, id primitive.ObjectID) bool {
	for _, u := range us {
		if u.ID == id {
			return true
		}
	}
	return false
}

func containsCamp(cs []models.Camp, id primitive.ObjectID) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

func containsSummary(cs []CampSummary, id primitive.ObjectID) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
