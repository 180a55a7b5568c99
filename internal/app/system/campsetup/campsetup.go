// internal/app/system/campsetup/campsetup.go
//
// Package campsetup creates the camp that belongs to a camp account. It is
// shared by camp registration and onboarding, both of which call it inside
// txn.Run.
package campsetup

import (
	"context"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/slug"
	"github.com/dalemusser/camphub/internal/app/system/txn"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Params describes the camp to create for Owner.
type Params struct {
	Owner  models.User
	Name   string
	Public bool
}

// DefaultName is used when the owner gave no camp name.
func DefaultName(owner models.User) string {
	if n := strings.TrimSpace(owner.FullName()); n != "" {
		return n + "'s Camp"
	}
	if at := strings.IndexByte(owner.Email, '@'); at > 0 {
		return owner.Email[:at] + "'s Camp"
	}
	return "My Camp"
}

// Provision creates the camp, links it to the owner and returns it. In
// fallback mode the camp is deleted again if a later step fails.
func Provision(ctx context.Context, tx *txn.Tx, camps *campstore.Store, users *userstore.Store, p Params) (models.Camp, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = DefaultName(p.Owner)
	}
	s, err := slug.Unique(ctx, name, camps.SlugTaken(primitive.NilObjectID))
	if err != nil {
		return models.Camp{}, err
	}

	c := models.NewCamp(name, s, time.Now().UTC())
	owner := p.Owner.ID
	c.Owner = &owner
	c.ContactEmail = p.Owner.Email
	c.IsPublic = p.Public

	c, err = camps.Create(ctx, c)
	if err != nil {
		return models.Camp{}, err
	}
	campID := c.ID
	tx.OnRollback(func(ctx context.Context) error {
		_, err := camps.DeleteByIDs(ctx, []primitive.ObjectID{campID})
		return err
	})

	if err := users.LinkCamp(ctx, owner, c.ID, c.Name, c.Slug); err != nil {
		return models.Camp{}, err
	}
	return c, nil
}
