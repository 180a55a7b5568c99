// internal/app/features/camps/mycamp.go
package camps

import (
	"context"
	"errors"
	"net/http"
	"strings"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/slug"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Limits on camp profile fields.
const (
	MaxDescriptionLen = 2000
	MaxBioLen         = 5000
	MaxNameLen        = 100
)

// myCamp loads the camp owned by the caller: the linked camp_id first, then
// the owner field for accounts whose link was lost.
func (h *Handler) myCamp(ctx context.Context, r *http.Request) (*models.Camp, error) {
	cu, _ := auth.CurrentUser(r)
	if cid, ok := cu.CampObjectID(); ok {
		c, err := h.Camps.GetByID(ctx, cid)
		if err == nil || !errors.Is(err, mongo.ErrNoDocuments) {
			return c, err
		}
	}
	c, err := h.Camps.FindByOwner(ctx, cu.ObjectID())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

// GetMyCamp handles GET /api/camps/my-camp.
func (h *Handler) GetMyCamp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.myCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "get my camp")
		return
	}
	respond.OK(w, map[string]any{"camp": c})
}

// campUpdate is a partial camp profile. Nil fields are left alone.
type campUpdate struct {
	Name                *string              `json:"name"`
	Description         *string              `json:"description"`
	Bio                 *string              `json:"bio"`
	Theme               *string              `json:"theme"`
	YearFounded         *int                 `json:"yearFounded"`
	CampSize            *string              `json:"campSize"`
	MaxMembers          *int                 `json:"maxMembers"`
	Location            *models.Location     `json:"location"`
	ContactEmail        *string              `json:"contactEmail"`
	ContactPhone        *string              `json:"contactPhone"`
	Website             *string              `json:"website"`
	SocialMedia         *models.SocialMedia  `json:"socialMedia"`
	Categories          []string             `json:"categories"`
	Offerings           *models.Offerings    `json:"offerings"`
	Requirements        *models.Requirements `json:"requirements"`
	PrimaryPhotoIndex   *int                 `json:"primaryPhotoIndex"`
	IsRecruiting        *bool                `json:"isRecruiting"`
	AcceptingNewMembers *bool                `json:"acceptingNewMembers"`
	ShowApplyNow        *bool                `json:"showApplyNow"`
	ShowMemberCount     *bool                `json:"showMemberCount"`
}

func (u *campUpdate) set(current *models.Camp) (bson.M, *inputval.Result) {
	v := &inputval.Result{}
	set := bson.M{}

	if u.Name != nil {
		name := normalize.Name(*u.Name)
		v.Required("name", "Camp name", name).MaxLen("name", "Camp name", name, MaxNameLen)
		set["name"] = name
	}
	if u.Description != nil {
		d := htmlsanitize.Sanitize(*u.Description)
		v.Required("description", "Description", strings.TrimSpace(htmlsanitize.StripTags(d)))
		v.MaxLen("description", "Description", d, MaxDescriptionLen)
		set["description"] = d
	} else if strings.TrimSpace(current.Description) == "" {
		v.Required("description", "Description", "")
	}
	if u.Bio != nil {
		b := htmlsanitize.Sanitize(*u.Bio)
		v.MaxLen("bio", "Bio", b, MaxBioLen)
		set["bio"] = b
	}
	if u.Theme != nil {
		set["theme"] = normalize.Name(*u.Theme)
	}
	if u.YearFounded != nil {
		if *u.YearFounded != 0 {
			v.Range("yearFounded", "Year founded", *u.YearFounded, 1986, 2100)
		}
		set["year_founded"] = *u.YearFounded
	}
	if u.CampSize != nil {
		size := strings.ToLower(strings.TrimSpace(*u.CampSize))
		if size != "" {
			v.OneOf("campSize", "Camp size", size,
				models.CampSizeSmall, models.CampSizeMedium, models.CampSizeLarge, models.CampSizeMega)
		}
		set["camp_size"] = size
	}
	if u.MaxMembers != nil {
		v.Range("maxMembers", "Max members", *u.MaxMembers, 1, 10000)
		set["max_members"] = *u.MaxMembers
	}
	if u.Location != nil {
		v.Struct("location", *u.Location)
		set["location"] = *u.Location
	}
	if u.ContactEmail != nil {
		e := normalize.Email(*u.ContactEmail)
		if e != "" {
			v.Email("contactEmail", e)
		}
		set["contact_email"] = e
	}
	if u.ContactPhone != nil {
		set["contact_phone"] = strings.TrimSpace(*u.ContactPhone)
	}
	if u.Website != nil {
		site := strings.TrimSpace(*u.Website)
		v.URL("website", "Website", site)
		set["website"] = site
	}
	if u.SocialMedia != nil {
		v.Struct("socialMedia", *u.SocialMedia)
		set["social_media"] = *u.SocialMedia
	}
	if u.Categories != nil {
		ids := make([]primitive.ObjectID, 0, len(u.Categories))
		for _, raw := range normalize.Strings(u.Categories) {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				v.Add("categories", "Categories must be valid IDs.")
				break
			}
			ids = append(ids, id)
		}
		set["categories"] = ids
	}
	if u.Offerings != nil {
		set["offerings"] = *u.Offerings
	}
	if u.Requirements != nil {
		set["requirements"] = *u.Requirements
	}
	if u.PrimaryPhotoIndex != nil {
		idx := *u.PrimaryPhotoIndex
		if idx < 0 || (idx > 0 && idx >= len(current.Photos)) {
			v.Add("primaryPhotoIndex", "Primary photo index is out of range.")
		}
		set["primary_photo_index"] = idx
	}
	if u.IsRecruiting != nil {
		set["is_recruiting"] = *u.IsRecruiting
	}
	if u.AcceptingNewMembers != nil {
		set["accepting_new_members"] = *u.AcceptingNewMembers
	}
	if u.ShowApplyNow != nil {
		set["show_apply_now"] = *u.ShowApplyNow
	}
	if u.ShowMemberCount != nil {
		set["show_member_count"] = *u.ShowMemberCount
	}
	return set, v
}

// UpdateMyCamp handles PUT /api/camps/my-camp. A new name gets a new slug;
// the owner's cached camp name and slug follow.
func (h *Handler) UpdateMyCamp(w http.ResponseWriter, r *http.Request) {
	var req campUpdate
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update my camp")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	current, err := h.myCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "update my camp: load")
		return
	}

	set, v := req.set(current)
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	if name, ok := set["name"].(string); ok && name != current.Name {
		s, err := slug.Unique(ctx, name, h.Camps.SlugTaken(current.ID))
		if err != nil {
			respond.ServerError(w, h.Log, "update my camp: slug", err, zap.String("name", name))
			return
		}
		set["slug"] = s
	}

	c, err := h.Camps.UpdateAndGet(ctx, current.ID, set)
	if errors.Is(err, campstore.ErrDuplicateSlug) {
		respond.Message(w, http.StatusConflict, "A camp with that name already exists")
		return
	}
	if err != nil {
		respond.Err(w, h.Log, err, "update my camp")
		return
	}

	if _, renamed := set["slug"]; renamed {
		cu, _ := auth.CurrentUser(r)
		if err := h.Users.LinkCamp(ctx, cu.ObjectID(), c.ID, c.Name, c.Slug); err != nil {
			h.Log.Warn("failed to refresh owner camp link", zap.Error(err), zap.String("camp_id", c.ID.Hex()))
		}
	}

	respond.OK(w, map[string]any{
		"message": "Camp updated successfully",
		"camp":    c,
	})
}

type publicRequest struct {
	IsPublic *bool `json:"isPublic"`
}

// SetPublic handles PUT /api/camps/my-camp/public.
func (h *Handler) SetPublic(w http.ResponseWriter, r *http.Request) {
	var req publicRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "set camp visibility")
		return
	}
	if req.IsPublic == nil {
		respond.Message(w, http.StatusBadRequest, "isPublic is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	current, err := h.myCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "set camp visibility")
		return
	}
	c, err := h.Camps.UpdateAndGet(ctx, current.ID, bson.M{"is_public": *req.IsPublic})
	if err != nil {
		respond.Err(w, h.Log, err, "set camp visibility")
		return
	}

	msg := "Camp is now private"
	if c.IsPublic {
		msg = "Camp is now public"
	}
	respond.OK(w, map[string]any{"message": msg, "camp": c})
}
