// internal/app/features/upload/handler.go
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxPhotos caps one gallery upload.
const MaxPhotos = 10

type Handler struct {
	Camps    *campstore.Store
	Users    *userstore.Store
	Files    Store
	MaxBytes int64
	Log      *zap.Logger
}

// NewHandler wires uploads. maxMB is the per-file limit in megabytes.
func NewHandler(db *mongo.Database, files Store, maxMB int, logger *zap.Logger) *Handler {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &Handler{
		Camps:    campstore.New(db),
		Users:    userstore.New(db),
		Files:    files,
		MaxBytes: int64(maxMB) << 20,
		Log:      logger,
	}
}

var (
	errCampNotFound  = respond.NotFound("Camp not found")
	errPhotoNotFound = respond.NotFound("Photo not found")
	errNoAccess      = respond.Forbidden("Access denied")
)

// parseForm reads a multipart body holding up to files parts.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, files int) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes*int64(files)+1<<20)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return respond.Status(http.StatusRequestEntityTooLarge, "Upload is too large")
		}
		return respond.BadRequest("Invalid upload")
	}
	return nil
}

// save validates one image part and stores it under prefix. It returns the
// public URL.
func (h *Handler) save(ctx context.Context, prefix string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > h.MaxBytes {
		return "", respond.BadRequest("%s exceeds the %d MB limit", fh.Filename, h.MaxBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]
	ctype := http.DetectContentType(head)
	if !strings.HasPrefix(ctype, "image/") {
		return "", respond.BadRequest("Only image files are allowed")
	}

	key := NewKey(prefix, fh.Filename, time.Now().UTC())
	body := io.MultiReader(bytes.NewReader(head), f)
	if err := h.Files.Put(ctx, key, body, &storage.PutOptions{ContentType: ctype}); err != nil {
		return "", fmt.Errorf("store %s: %w", fh.Filename, err)
	}
	return h.Files.URL(key), nil
}

// discard removes files stored earlier in a request that then failed.
func (h *Handler) discard(ctx context.Context, urls []string) {
	for _, u := range urls {
		h.remove(ctx, u)
	}
}

func (h *Handler) remove(ctx context.Context, url string) {
	key, ok := KeyFromURL(h.Files, url)
	if !ok {
		return
	}
	if err := h.Files.Delete(ctx, key); err != nil {
		h.Log.Warn("upload not removed", zap.String("key", key), zap.Error(err))
	}
}

// callerCamp resolves the camp the caller manages. Admins name it with
// ?campId=.
func (h *Handler) callerCamp(ctx context.Context, r *http.Request) (*models.Camp, error) {
	if authz.IsAdmin(r) {
		if q := r.URL.Query().Get("campId"); q != "" {
			id, err := primitive.ObjectIDFromHex(q)
			if err != nil {
				return nil, respond.BadRequest("Invalid camp ID")
			}
			return h.camp(ctx, id)
		}
	}
	if !authz.IsCampAccount(r) && !authz.IsAdmin(r) {
		return nil, respond.Forbidden("Camp account required")
	}
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

func (h *Handler) camp(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

// addPhotos stores parts and appends them to camp's gallery.
func (h *Handler) addPhotos(ctx context.Context, camp *models.Camp, parts []*multipart.FileHeader, captions []string) ([]models.Photo, error) {
	var urls []string
	photos := make([]models.Photo, 0, len(parts))
	for i, fh := range parts {
		url, err := h.save(ctx, "camps", fh)
		if err != nil {
			h.discard(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
		p := models.Photo{URL: url}
		if i < len(captions) {
			p.Caption = strings.TrimSpace(captions[i])
		}
		photos = append(photos, p)
	}
	if _, err := h.Camps.PushPhotos(ctx, camp.ID, photos); err != nil {
		h.discard(ctx, urls)
		return nil, err
	}
	return photos, nil
}

// CampPhotos handles POST /api/upload/camp-photos with up to MaxPhotos
// "photos" parts.
func (h *Handler) CampPhotos(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, MaxPhotos); err != nil {
		respond.Err(w, h.Log, err, "upload camp photos")
		return
	}
	parts := r.MultipartForm.File["photos"]
	if len(parts) == 0 {
		respond.Message(w, http.StatusBadRequest, "No photos uploaded")
		return
	}
	if len(parts) > MaxPhotos {
		respond.Message(w, http.StatusBadRequest, fmt.Sprintf("At most %d photos per upload", MaxPhotos))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	camp, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "upload camp photos")
		return
	}
	photos, err := h.addPhotos(ctx, camp, parts, r.MultipartForm.Value["captions"])
	if err != nil {
		respond.Err(w, h.Log, err, "upload camp photos")
		return
	}
	h.Log.Info("camp photos uploaded", zap.String("camp", camp.ID.Hex()), zap.Int("count", len(photos)))
	respond.OK(w, map[string]any{"message": "Photos uploaded successfully", "photos": photos})
}

// CampPhoto handles POST /api/upload/camp-photo/{campId} with one "photo"
// part.
func (h *Handler) CampPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	if err := h.parseForm(w, r, 1); err != nil {
		respond.Err(w, h.Log, err, "upload camp photo")
		return
	}
	parts := r.MultipartForm.File["photo"]
	if len(parts) != 1 {
		respond.Message(w, http.StatusBadRequest, "No photo uploaded")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	camp, err := h.camp(ctx, id)
	if err != nil {
		respond.Err(w, h.Log, err, "upload camp photo")
		return
	}
	if !authz.CanManageCamp(r, camp) {
		respond.Err(w, h.Log, errNoAccess, "upload camp photo")
		return
	}
	photos, err := h.addPhotos(ctx, camp, parts, r.MultipartForm.Value["caption"])
	if err != nil {
		respond.Err(w, h.Log, err, "upload camp photo")
		return
	}
	respond.OK(w, map[string]any{"message": "Photo uploaded successfully", "photo": photos[0], "photos": photos})
}

// DeletePhoto handles DELETE /api/upload/photo/{publicId}. The public id is
// the file name of the photo within the caller's gallery.
func (h *Handler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicId")
	if publicID == "" {
		respond.Message(w, http.StatusBadRequest, "Photo ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	camp, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "delete photo")
		return
	}
	idx := -1
	for i, p := range camp.Photos {
		if path.Base(p.URL) == publicID {
			idx = i
			break
		}
	}
	if idx < 0 {
		respond.Err(w, h.Log, errPhotoNotFound, "delete photo")
		return
	}
	removed := camp.Photos[idx]
	rest, primary := withoutPhoto(camp.Photos, idx)
	if err := h.Camps.ReplacePhotos(ctx, camp.ID, rest, primary); err != nil {
		respond.ServerError(w, h.Log, "delete photo", err)
		return
	}
	h.remove(ctx, removed.URL)
	respond.OK(w, map[string]any{"message": "Photo deleted successfully", "photos": rest})
}

// withoutPhoto drops photos[idx] and returns the primary index of what is
// left. When the primary photo is removed the first remaining one takes
// over.
func withoutPhoto(photos []models.Photo, idx int) ([]models.Photo, int) {
	rest := make([]models.Photo, 0, len(photos)-1)
	rest = append(rest, photos[:idx]...)
	rest = append(rest, photos[idx+1:]...)
	if len(rest) == 0 {
		return rest, 0
	}
	primary := -1
	for i, p := range rest {
		if p.IsPrimary {
			primary = i
			break
		}
	}
	if primary < 0 {
		primary = 0
		rest[0].IsPrimary = true
	}
	return rest, primary
}

// ProfilePhoto handles POST /api/upload/profile-photo with one "photo"
// part. The previous photo is removed when it was stored here.
func (h *Handler) ProfilePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		respond.Err(w, h.Log, err, "upload profile photo")
		return
	}
	parts := r.MultipartForm.File["photo"]
	if len(parts) != 1 {
		respond.Message(w, http.StatusBadRequest, "No photo uploaded")
		return
	}
	_, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.Err(w, h.Log, err, "upload profile photo")
		return
	}
	url, err := h.save(ctx, "profiles", parts[0])
	if err != nil {
		respond.Err(w, h.Log, err, "upload profile photo")
		return
	}
	if err := h.Users.Update(ctx, uid, bson.M{"profile_photo": url}); err != nil {
		h.remove(ctx, url)
		respond.ServerError(w, h.Log, "upload profile photo", err)
		return
	}
	h.remove(ctx, u.ProfilePhoto)
	respond.OK(w, map[string]any{"message": "Profile photo updated successfully", "profilePhoto": url})
}
