// internal/app/maintenance/accounts.go
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ResetPassword sets a new password for the account with email.
func (s *Service) ResetPassword(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SetPassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	s.Audit.PasswordReset(ctx, u.ID)
	s.Log.Info("password reset by operator", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// Accounts is what a search term resolved to.
type Accounts struct {
	Users []models.User
	Camps []models.Camp
}

// UserIDs lists the ids of the matched users.
func (a Accounts) UserIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(a.Users))
	for _, u := range a.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

// CampIDs lists the ids of the matched camps.
func (a Accounts) CampIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(a.Camps))
	for _, c := range a.Camps {
		ids = append(ids, c.ID)
	}
	return ids
}

// Empty reports whether nothing matched.
func (a Accounts) Empty() bool { return len(a.Users) == 0 && len(a.Camps) == 0 }

// Resolve finds the users matching term by id or case-insensitive email,
// then the camps they own or are linked to, plus camps whose contact email
// is term.
func (s *Service) Resolve(ctx context.Context, term string) (Accounts, error) {
	term = strings.TrimSpace(term)
	var acc Accounts
	users := map[primitive.ObjectID]models.User{}
	camps := map[primitive.ObjectID]models.Camp{}

	if oid, err := primitive.ObjectIDFromHex(term); err == nil {
		u, err := s.Users.GetByID(ctx, oid)
		switch {
		case err == nil:
			users[u.ID] = *u
		case !errors.Is(err, mongo.ErrNoDocuments):
			return acc, err
		}
		c, err := s.Camps.GetByID(ctx, oid)
		switch {
		case err == nil:
			camps[c.ID] = *c
		case !errors.Is(err, mongo.ErrNoDocuments):
			return acc, err
		}
	} else {
		found, err := s.Users.FindAllByEmail(ctx, term)
		if err != nil {
			return acc, err
		}
		for _, u := range found {
			users[u.ID] = u
		}
		byContact, err := s.Camps.FindByContactEmail(ctx, term)
		if err != nil {
			return acc, err
		}
		for _, c := range byContact {
			camps[c.ID] = c
		}
	}

	for _, u := range users {
		if u.CampID != nil {
			c, err := s.Camps.GetByID(ctx, *u.CampID)
			switch {
			case err == nil:
				camps[c.ID] = *c
			case !errors.Is(err, mongo.ErrNoDocuments):
				return acc, err
			}
		}
		c, err := s.Camps.FindByOwner(ctx, u.ID)
		switch {
		case err == nil:
			camps[c.ID] = *c
		case !errors.Is(err, mongo.ErrNoDocuments):
			return acc, err
		}
	}

	for _, u := range users {
		acc.Users = append(acc.Users, u)
	}
	for _, c := range camps {
		acc.Camps = append(acc.Camps, c)
	}
	return acc, nil
}

// DeletionSummary counts what DeleteAccount removed.
type DeletionSummary struct {
	Users          int64    `json:"users"`
	Camps          int64    `json:"camps"`
	Applications   int64    `json:"applications"`
	Rosters        int64    `json:"rosters"`
	RosterMembers  int64    `json:"rosterMembers"`
	Members        int64    `json:"members"`
	Invites        int64    `json:"invites"`
	Tasks          int64    `json:"tasks"`
	Events         int64    `json:"events"`
	CallSlots      int64    `json:"callSlots"`
	ActivityLogs   int64    `json:"activityLogs"`
	PasswordResets int64    `json:"passwordResets"`
	Emails         []string `json:"emails"`
	CampNames      []string `json:"campNames"`
}

// DeleteAccount permanently removes every user and camp term resolves to
// along with everything that references them. Returns ErrAccountNotFound
// when nothing matches.
func (s *Service) DeleteAccount(ctx context.Context, term string, actor *primitive.ObjectID) (DeletionSummary, error) {
	acc, err := s.Resolve(ctx, term)
	if err != nil {
		return DeletionSummary{}, err
	}
	if acc.Empty() {
		return DeletionSummary{}, ErrAccountNotFound
	}

	users, camps := acc.UserIDs(), acc.CampIDs()
	sum := DeletionSummary{Emails: []string{}, CampNames: []string{}}
	for _, u := range acc.Users {
		sum.Emails = append(sum.Emails, u.Email)
	}
	for _, c := range acc.Camps {
		sum.CampNames = append(sum.CampNames, c.Name)
	}

	steps := []struct {
		name string
		dst  *int64
		run  func() (int64, error)
	}{
		{"applications", &sum.Applications, func() (int64, error) { return s.Applications.DeleteForAccounts(ctx, users, camps) }},
		{"roster members", &sum.RosterMembers, func() (int64, error) { return s.Rosters.PullUsers(ctx, users) }},
		{"rosters", &sum.Rosters, func() (int64, error) { return s.Rosters.DeleteForCamps(ctx, camps) }},
		{"members", &sum.Members, func() (int64, error) { return s.Members.DeleteForAccounts(ctx, users, camps) }},
		{"invites", &sum.Invites, func() (int64, error) { return s.Invites.DeleteForAccounts(ctx, users, camps) }},
		{"tasks", &sum.Tasks, func() (int64, error) { return s.Tasks.DeleteForAccounts(ctx, users, camps) }},
		{"events", &sum.Events, func() (int64, error) { return s.Events.DeleteForAccounts(ctx, users, camps) }},
		{"call slots", &sum.CallSlots, func() (int64, error) { return s.CallSlots.DeleteForAccounts(ctx, users, camps) }},
		{"activity logs", &sum.ActivityLogs, func() (int64, error) {
			return s.Activity.DeleteFor(ctx, append(append([]primitive.ObjectID{}, users...), camps...))
		}},
		{"password resets", &sum.PasswordResets, func() (int64, error) { return s.Resets.DeleteForUsers(ctx, users) }},
		{"camps", &sum.Camps, func() (int64, error) { return s.Camps.DeleteByIDs(ctx, camps) }},
		{"users", &sum.Users, func() (int64, error) { return s.Users.DeleteByIDs(ctx, users) }},
	}
	for _, st := range steps {
		n, err := st.run()
		if err != nil {
			return sum, fmt.Errorf("delete %s: %w", st.name, err)
		}
		*st.dst = n
	}

	s.Audit.System(ctx, actor, models.ActivityAdminAccountDeleted, map[string]any{
		"searchTerm": term,
		"emails":     sum.Emails,
		"camps":      sum.CampNames,
		"users":      sum.Users,
	})
	s.Log.Warn("account permanently deleted",
		zap.String("search_term", term),
		zap.Strings("emails", sum.Emails),
		zap.Int64("users", sum.Users),
		zap.Int64("camps", sum.Camps))
	return sum, nil
}

// DuplicateReport lists users that appear on a roster more than once.
type DuplicateReport struct {
	Duplicates []rosterstore.Duplicate `json:"duplicates"`
	Removed    int                     `json:"removed"`
}

// DuplicateMembers reports repeated roster lines. With fix set, each
// affected roster keeps the first line per user.
func (s *Service) DuplicateMembers(ctx context.Context, fix bool) (DuplicateReport, error) {
	dups, err := s.Rosters.Duplicates(ctx)
	if err != nil {
		return DuplicateReport{}, err
	}
	rep := DuplicateReport{Duplicates: dups}
	if rep.Duplicates == nil {
		rep.Duplicates = []rosterstore.Duplicate{}
	}
	if !fix {
		return rep, nil
	}

	done := map[primitive.ObjectID]bool{}
	for _, d := range dups {
		if done[d.RosterID] {
			continue
		}
		done[d.RosterID] = true
		n, err := s.Rosters.Dedupe(ctx, d.RosterID)
		if err != nil {
			return rep, fmt.Errorf("dedupe roster %s: %w", d.RosterID.Hex(), err)
		}
		rep.Removed += n
	}
	if rep.Removed > 0 {
		s.Log.Info("removed duplicate roster lines", zap.Int("count", rep.Removed))
	}
	return rep, nil
}
