// internal/app/features/users/handler.go
package users

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Limits on profile fields.
const (
	MaxBioLen       = 1000
	MaxPlayaNameLen = 100
	MaxYearsBurned  = 50
	searchLimit     = 20
)

// Handler owns the self-service profile endpoints.
type Handler struct {
	Users *userstore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Audit: audit,
		Log:   logger,
	}
}

// GetProfile handles GET /api/users/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "get profile")
		return
	}
	respond.OK(w, map[string]any{"user": u})
}

// profileUpdate is a partial profile. Nil fields are left alone.
type profileUpdate struct {
	FirstName          *string             `json:"firstName"`
	LastName           *string             `json:"lastName"`
	PlayaName          *string             `json:"playaName"`
	PhoneNumber        *string             `json:"phoneNumber"`
	City               *string             `json:"city"`
	YearsBurned        *int                `json:"yearsBurned"`
	Bio                *string             `json:"bio"`
	ProfilePhoto       *string             `json:"profilePhoto"`
	Skills             []string            `json:"skills"`
	Interests          []string            `json:"interests"`
	SocialMedia        *models.SocialMedia `json:"socialMedia"`
	Location           *models.Location    `json:"location"`
	HasTicket          *bool               `json:"hasTicket"`
	HasVehiclePass     *bool               `json:"hasVehiclePass"`
	ArrivalDate        *time.Time          `json:"arrivalDate"`
	DepartureDate      *time.Time          `json:"departureDate"`
	InterestedInEAP    *bool               `json:"interestedInEAP"`
	InterestedInStrike *bool               `json:"interestedInStrike"`
}

// set validates p and builds the $set document. Name changes also refresh
// name_ci, which needs the stored names for the half that did not change.
func (p *profileUpdate) set(current *models.User) (bson.M, *inputval.Result) {
	v := &inputval.Result{}
	set := bson.M{}

	first, last := current.FirstName, current.LastName
	if p.FirstName != nil {
		first = normalize.Name(*p.FirstName)
		v.MaxLen("firstName", "First name", first, 100)
		set["first_name"] = first
	}
	if p.LastName != nil {
		last = normalize.Name(*p.LastName)
		v.MaxLen("lastName", "Last name", last, 100)
		set["last_name"] = last
	}
	if p.FirstName != nil || p.LastName != nil {
		set["name_ci"] = normalize.NameCI(strings.TrimSpace(first + " " + last))
	}
	if p.PlayaName != nil {
		pn := normalize.Name(*p.PlayaName)
		v.MaxLen("playaName", "Playa name", pn, MaxPlayaNameLen)
		set["playa_name"] = pn
	}
	if p.PhoneNumber != nil {
		set["phone_number"] = strings.TrimSpace(*p.PhoneNumber)
	}
	if p.City != nil {
		set["city"] = normalize.Name(*p.City)
	}
	if p.YearsBurned != nil {
		v.Range("yearsBurned", "Years burned", *p.YearsBurned, 0, MaxYearsBurned)
		set["years_burned"] = *p.YearsBurned
	}
	if p.Bio != nil {
		bio := htmlsanitize.StripTags(*p.Bio)
		v.MaxLen("bio", "Bio", bio, MaxBioLen)
		set["bio"] = bio
	}
	if p.ProfilePhoto != nil {
		if ph := strings.TrimSpace(*p.ProfilePhoto); ph != "" && !strings.HasPrefix(ph, "/") {
			v.URL("profilePhoto", "Profile photo", ph)
		}
		set["profile_photo"] = strings.TrimSpace(*p.ProfilePhoto)
	}
	if p.Skills != nil {
		set["skills"] = normalize.Strings(p.Skills)
	}
	if p.Interests != nil {
		set["interests"] = normalize.Strings(p.Interests)
	}
	if p.SocialMedia != nil {
		v.Struct("socialMedia", *p.SocialMedia)
		set["social_media"] = *p.SocialMedia
	}
	if p.Location != nil {
		v.Struct("location", *p.Location)
		set["location"] = *p.Location
	}
	if p.HasTicket != nil {
		set["has_ticket"] = *p.HasTicket
	}
	if p.HasVehiclePass != nil {
		set["has_vehicle_pass"] = *p.HasVehiclePass
	}
	if p.ArrivalDate != nil {
		set["arrival_date"] = p.ArrivalDate.UTC()
	}
	if p.DepartureDate != nil {
		set["departure_date"] = p.DepartureDate.UTC()
	}
	if p.ArrivalDate != nil && p.DepartureDate != nil && p.DepartureDate.Before(*p.ArrivalDate) {
		v.Add("departureDate", "Departure date must be after arrival date")
	}
	if p.InterestedInEAP != nil {
		set["interested_in_eap"] = *p.InterestedInEAP
	}
	if p.InterestedInStrike != nil {
		set["interested_in_strike"] = *p.InterestedInStrike
	}
	return set, v
}

// UpdateProfile handles PUT /api/users/profile. The SPA posts the whole
// profile document, so unknown fields are ignored here.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	var req profileUpdate
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update profile")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	current, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "update profile: load user")
		return
	}

	set, v := req.set(current)
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	u, err := h.Users.UpdateAndGet(ctx, current.ID, set)
	if err != nil {
		respond.Err(w, h.Log, err, "update profile")
		return
	}
	respond.OK(w, map[string]any{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

type preferencesRequest struct {
	EmailNotifications *bool `json:"emailNotifications"`
	SMSNotifications   *bool `json:"smsNotifications"`
}

// UpdatePreferences handles PUT /api/users/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	var req preferencesRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update preferences")
		return
	}

	set := bson.M{}
	if req.EmailNotifications != nil {
		set["preferences.email_notifications"] = *req.EmailNotifications
	}
	if req.SMSNotifications != nil {
		set["preferences.sms_notifications"] = *req.SMSNotifications
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.UpdateAndGet(ctx, cu.ObjectID(), set)
	if err != nil {
		respond.Err(w, h.Log, err, "update preferences")
		return
	}
	respond.OK(w, map[string]any{
		"message":     "Preferences updated",
		"preferences": u.Preferences,
	})
}

// publicProfile is what other users may see.
type publicProfile struct {
	ID           primitive.ObjectID `json:"_id"`
	FirstName    string             `json:"firstName,omitempty"`
	LastName     string             `json:"lastName,omitempty"`
	PlayaName    string             `json:"playaName,omitempty"`
	City         string             `json:"city,omitempty"`
	YearsBurned  int                `json:"yearsBurned"`
	Bio          string             `json:"bio,omitempty"`
	ProfilePhoto string             `json:"profilePhoto,omitempty"`
	Skills       []string           `json:"skills"`
	Interests    []string           `json:"interests"`
	SocialMedia  models.SocialMedia `json:"socialMedia"`
	AccountType  string             `json:"accountType"`
	CampName     string             `json:"campName,omitempty"`
	URLSlug      string             `json:"urlSlug,omitempty"`
}

func toPublic(u *models.User) publicProfile {
	return publicProfile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PlayaName:    u.PlayaName,
		City:         u.City,
		YearsBurned:  u.YearsBurned,
		Bio:          u.Bio,
		ProfilePhoto: u.ProfilePhoto,
		Skills:       nonNil(u.Skills),
		Interests:    nonNil(u.Interests),
		SocialMedia:  u.SocialMedia,
		AccountType:  u.AccountType,
		CampName:     u.CampName,
		URLSlug:      u.URLSlug,
	}
}

// GetPublic handles GET /api/users/public/{id}.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetPublic(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Message(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "public profile", err)
		return
	}
	respond.OK(w, map[string]any{"user": toPublic(u)})
}

// Search handles GET /api/users/search?q=. Camp accounts use it to find
// people to invite or add.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := query.Get(r, "q")
	if len(strings.TrimSpace(q)) < 2 {
		respond.OK(w, map[string]any{"users": []publicProfile{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	found, err := h.Users.Search(ctx, q, searchLimit)
	if err != nil {
		respond.ServerError(w, h.Log, "user search", err)
		return
	}
	out := make([]map[string]any, 0, len(found))
	for i := range found {
		out = append(out, map[string]any{
			"profile": toPublic(&found[i]),
			"email":   found[i].Email,
		})
	}
	respond.OK(w, map[string]any{"users": out})
}

// DeleteAccount handles DELETE /api/users/account. The account is
// deactivated, not removed; admins can hard-delete later.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id := cu.ObjectID()
	if err := h.Users.SetActive(ctx, id, false); err != nil {
		respond.Err(w, h.Log, err, "deactivate account")
		return
	}
	h.Audit.Member(ctx, id, id, models.ActivityUserStatus, map[string]any{
		"is_active": false,
		"reason":    "self-deactivated",
	})
	respond.Message(w, http.StatusOK, "Account deactivated successfully")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
