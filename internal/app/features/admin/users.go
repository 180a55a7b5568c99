// internal/app/features/admin/users.go
package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/paging"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type userList struct {
	Users      []models.User `json:"users"`
	Total      int64         `json:"total"`
	HasPrev    bool          `json:"hasPrev"`
	HasNext    bool          `json:"hasNext"`
	PrevCursor string        `json:"prevCursor,omitempty"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ListUsers handles GET /api/admin/users?search=&accountType=&active=&after=&before=.
//
// Users are ordered by email with keyset paging; after and before take the
// cursors returned with the previous page.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := userstore.ListFilter{
		Search:      q.Get("search"),
		AccountType: strings.TrimSpace(q.Get("accountType")),
	}
	switch q.Get("active") {
	case "true":
		v := true
		f.Active = &v
	case "false":
		v := false
		f.Active = &v
	}
	if f.AccountType != "" {
		var v inputval.Result
		v.OneOf("accountType", "Account type", f.AccountType, models.AccountPersonal, models.AccountCamp, models.AccountAdmin)
		if v.HasErrors() {
			respond.Message(w, http.StatusBadRequest, v.First())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	base := f.Query()
	total, err := h.Users.Count(ctx, base)
	if err != nil {
		respond.ServerError(w, h.Log, "count users", err)
		return
	}

	const sortField = "email"
	before, after := q.Get("before"), q.Get("after")
	ks := paging.ConfigureKeyset(before, after)
	filter := base
	if win := ks.KeysetWindow(sortField); win != nil {
		filter = bson.M{"$and": bson.A{base, win}}
	}
	find := options.Find()
	ks.ApplyToFind(find, sortField)

	rows, err := h.Users.Find(ctx, filter, find)
	if err != nil {
		respond.ServerError(w, h.Log, "list users", err)
		return
	}
	if ks.Direction == paging.Backward {
		paging.Reverse(rows)
	}
	page := paging.TrimPage(&rows, before, after)
	prev, next := paging.BuildCursors(rows,
		func(u models.User) string { return u.Email },
		func(u models.User) primitive.ObjectID { return u.ID })

	respond.OK(w, userList{
		Users: rows, Total: total,
		HasPrev: page.HasPrev, HasNext: page.HasNext,
		PrevCursor: prev, NextCursor: next,
	})
}

func (h *Handler) userFromPath(ctx context.Context, r *http.Request) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, respond.BadRequest("Invalid user ID")
	}
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errUserNotFound
	}
	return u, err
}

// SetUserStatus handles PUT /api/admin/users/{id}/status {isActive}.
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IsActive *bool `json:"isActive"`
	}
	if err := respond.Decode(r, &in); err != nil || in.IsActive == nil {
		respond.Message(w, http.StatusBadRequest, "isActive is required")
		return
	}
	_, adminID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.userFromPath(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "load user")
		return
	}
	if u.ID == adminID && !*in.IsActive {
		respond.Message(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	if err := h.Users.SetActive(ctx, u.ID, *in.IsActive); err != nil {
		respond.ServerError(w, h.Log, "set user status", err)
		return
	}
	h.Audit.Member(ctx, u.ID, adminID, models.ActivityUserStatus, map[string]any{
		"from": u.IsActive, "to": *in.IsActive,
	})
	u.IsActive = *in.IsActive

	msg := "User deactivated"
	if u.IsActive {
		msg = "User activated"
	}
	respond.OK(w, map[string]any{"message": msg, "user": u})
}

type userUpdate struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PlayaName   *string `json:"playaName"`
	PhoneNumber *string `json:"phoneNumber"`
	AccountType *string `json:"accountType"`
	Role        *string `json:"role"`
	IsVerified  *bool   `json:"isVerified"`
	CampName    *string `json:"campName"`
}

// UpdateUser handles PUT /api/admin/users/{id}. Only the fields present in
// the body change.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var in userUpdate
	if err := respond.Decode(r, &in); err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.userFromPath(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "load user")
		return
	}

	var v inputval.Result
	set := bson.M{}
	if in.Email != nil {
		email := normalize.Email(*in.Email)
		v.Required("email", "Email", email).Email("email", email)
		set["email"] = email
	}
	if in.AccountType != nil {
		v.OneOf("accountType", "Account type", *in.AccountType, models.AccountPersonal, models.AccountCamp, models.AccountAdmin)
		set["account_type"] = *in.AccountType
	}
	if in.Role != nil {
		v.OneOf("role", "Role", *in.Role, models.RoleUnassigned, models.RoleMember, models.RoleCampLead)
		set["role"] = *in.Role
	}
	first, last := u.FirstName, u.LastName
	if in.FirstName != nil {
		first = normalize.Name(*in.FirstName)
		v.MaxLen("firstName", "First name", first, 100)
		set["first_name"] = first
	}
	if in.LastName != nil {
		last = normalize.Name(*in.LastName)
		v.MaxLen("lastName", "Last name", last, 100)
		set["last_name"] = last
	}
	if in.FirstName != nil || in.LastName != nil {
		set["name_ci"] = normalize.NameCI(models.User{FirstName: first, LastName: last}.FullName())
	}
	if in.PlayaName != nil {
		set["playa_name"] = strings.TrimSpace(*in.PlayaName)
	}
	if in.PhoneNumber != nil {
		set["phone_number"] = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.IsVerified != nil {
		set["is_verified"] = *in.IsVerified
	}
	if in.CampName != nil {
		set["camp_name"] = strings.TrimSpace(*in.CampName)
	}
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	if len(set) == 0 {
		respond.Message(w, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := h.Users.UpdateAndGet(ctx, u.ID, set)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Message(w, http.StatusConflict, "Email already in use")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "admin update user", err)
		return
	}
	h.Log.Info("admin updated user", zap.String("user_id", u.ID.Hex()), zap.Int("fields", len(set)))
	respond.OK(w, map[string]any{"message": "User updated successfully", "user": updated})
}
