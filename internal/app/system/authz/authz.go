// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's account type, id and a found flag. A
// missing user or malformed id yields "visitor", NilObjectID, false so
// ok=true always means a usable ObjectID.
func UserCtx(r *http.Request) (accountType string, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return "visitor", primitive.NilObjectID, false
	}
	return u.AccountType, oid, true
}

// IsAdmin reports whether the caller has an admin account.
func IsAdmin(r *http.Request) bool {
	acct, _, ok := UserCtx(r)
	return ok && acct == models.AccountAdmin
}

// IsCampAccount reports whether the caller has a camp account.
func IsCampAccount(r *http.Request) bool {
	acct, _, ok := UserCtx(r)
	return ok && acct == models.AccountCamp
}

// IsPersonal reports whether the caller has a personal account.
func IsPersonal(r *http.Request) bool {
	acct, _, ok := UserCtx(r)
	return ok && acct == models.AccountPersonal
}

// CampID returns the camp linked to the caller, if any.
func CampID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	return u.CampObjectID()
}

// OwnsCamp reports whether camp belongs to the caller, either as its
// recorded owner or as the caller's linked camp.
func OwnsCamp(r *http.Request, camp *models.Camp) bool {
	if camp == nil {
		return false
	}
	_, uid, ok := UserCtx(r)
	if !ok {
		return false
	}
	if camp.Owner != nil && *camp.Owner == uid {
		return true
	}
	cid, linked := CampID(r)
	return linked && cid == camp.ID
}

// CanManageCamp reports whether the caller may administer camp.
func CanManageCamp(r *http.Request, camp *models.Camp) bool {
	return IsAdmin(r) || OwnsCamp(r, camp)
}

// CanManageCampID is CanManageCamp for callers that only hold the id. It
// checks the caller's linked camp and does not consult the owner field.
func CanManageCampID(r *http.Request, campID primitive.ObjectID) bool {
	if IsAdmin(r) {
		return true
	}
	cid, ok := CampID(r)
	return ok && cid == campID
}
