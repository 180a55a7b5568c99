package callslots_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/callslots"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type env struct {
	fx     *testutil.Fixtures
	tokens *auth.TokenManager
	router chi.Router
	h      *callslots.Handler
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	tokens, err := auth.NewTokenManager("test-jwt-secret-must-be-32-chars-long!", time.Hour, zap.NewNop())
	require.NoError(t, err)
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), zap.NewNop())

	e := &env{fx: testutil.NewFixtures(t, db), tokens: tokens}
	e.h = callslots.NewHandler(db, zap.NewNop())
	e.router = chi.NewRouter()
	e.router.Mount("/api/call-slots", callslots.Routes(e.h, mw))
	return e
}

func (e *env) do(t *testing.T, r *http.Request, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := e.tokens.Issue(as.ID.Hex())
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func nextWeek() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
}

func (e *env) create(t *testing.T, lead *models.User, body map[string]any) models.CallSlot {
	t.Helper()
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/call-slots", body), lead)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out models.CallSlot
	testutil.DecodeInto(t, rec, &out)
	return out
}

func TestCreate_DefaultsToOneSeat(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")

	slot := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30",
	})
	assert.Equal(t, camp.ID, slot.CampID)
	assert.Equal(t, 1, slot.MaxParticipants)
	assert.True(t, slot.IsAvailable)
	assert.Empty(t, slot.Participants)
}

func TestCreate_Validation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing date", map[string]any{"campId": camp.ID.Hex(), "startTime": "18:00", "endTime": "18:30"}, "Date is required."},
		{"bad date", map[string]any{"campId": camp.ID.Hex(), "date": "next friday", "startTime": "18:00", "endTime": "18:30"}, "Date must be a date like 2026-08-30."},
		{"bad clock", map[string]any{"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "6pm", "endTime": "18:30"}, "Start time must be a time like 18:30."},
		{"end before start", map[string]any{"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:30", "endTime": "18:00"}, "End time must be after start time."},
		{"too many seats", map[string]any{"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30", "maxParticipants": 51}, "Max participants must be between 0 and 50."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/call-slots", tt.body), &lead)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, testutil.DecodeJSON(t, rec)["message"])
		})
	}
}

func TestCreate_OtherCampForbidden(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, _ := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	other := e.fx.CreateCamp(ctx, "Other Camp", "other-camp")

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/call-slots", map[string]any{
		"campId": other.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30",
	}), &lead)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", testutil.DecodeJSON(t, rec)["message"])
}

func TestAvailable_HidesFullAndPastSlots(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	applicant := e.fx.CreatePersonal(ctx, "Ann", "Applicant", "ann@example.com")

	open := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30", "maxParticipants": 2,
	})
	full := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "19:00", "endTime": "19:30",
	})
	_, err := e.h.CallSlots.Book(ctx, full.ID, camp.ID, applicant.ID)
	require.NoError(t, err)
	past := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "20:00", "endTime": "20:30",
	})
	_, err = e.h.CallSlots.Update(ctx, past.ID, bson.M{"date": time.Now().AddDate(0, 0, -3)})
	require.NoError(t, err)

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/available/"+camp.ID.Hex()), &applicant)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []models.CallSlot
	testutil.DecodeInto(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, open.ID, out[0].ID)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/camp/"+camp.ID.Hex()), &lead)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.DecodeInto(t, rec, &out)
	assert.Len(t, out, 3)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/camp/"+camp.ID.Hex()), &applicant)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAvailable_UnknownCamp(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Ann", "Applicant", "ann@example.com")

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/available/"+applicant.ID.Hex()), &applicant)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Camp not found", testutil.DecodeJSON(t, rec)["message"])
}

func TestUpdate_CannotShrinkBelowBooked(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	a := e.fx.CreatePersonal(ctx, "Ann", "Applicant", "ann@example.com")
	b := e.fx.CreatePersonal(ctx, "Ben", "Applicant", "ben@example.com")
	slot := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30", "maxParticipants": 3,
	})
	for _, u := range []models.User{a, b} {
		_, err := e.h.CallSlots.Book(ctx, slot.ID, camp.ID, u.ID)
		require.NoError(t, err)
	}

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, "/api/call-slots/"+slot.ID.Hex(),
		map[string]any{"maxParticipants": 1}), &lead)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Max participants cannot be below the number already booked.", testutil.DecodeJSON(t, rec)["message"])

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, "/api/call-slots/"+slot.ID.Hex(),
		map[string]any{"maxParticipants": 2, "endTime": "19:00"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out models.CallSlot
	testutil.DecodeInto(t, rec, &out)
	assert.Equal(t, 2, out.MaxParticipants)
	assert.Equal(t, "19:00", out.EndTime)
	assert.False(t, out.IsAvailable, "a full slot stays closed")
}

func TestDetailsAndDelete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	ann := e.fx.CreatePersonal(ctx, "Ann", "Applicant", "ann@example.com")
	slot := e.create(t, &lead, map[string]any{
		"campId": camp.ID.Hex(), "date": nextWeek(), "startTime": "18:00", "endTime": "18:30",
	})
	app := e.fx.CreateApplication(ctx, ann.ID, camp.ID, models.AppCallScheduled)
	_, err := e.fx.DB().Collection("applications").UpdateByID(ctx, app.ID, bson.M{"$set": bson.M{"call_slot": slot.ID}})
	require.NoError(t, err)

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/"+slot.ID.Hex()+"/details"), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		CallSlot   models.CallSlot `json:"callSlot"`
		Applicants []struct {
			Email             string `json:"email"`
			ApplicationID     string `json:"applicationId"`
			ApplicationStatus string `json:"applicationStatus"`
		} `json:"applicants"`
	}
	testutil.DecodeInto(t, rec, &out)
	assert.Equal(t, slot.ID, out.CallSlot.ID)
	require.Len(t, out.Applicants, 1)
	assert.Equal(t, "ann@example.com", out.Applicants[0].Email)
	assert.Equal(t, app.ID.Hex(), out.Applicants[0].ApplicationID)
	assert.Equal(t, models.AppCallScheduled, out.Applicants[0].ApplicationStatus)

	rec = e.do(t, testutil.NewRequest(http.MethodDelete, "/api/call-slots/"+slot.ID.Hex()), &ann)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.NewRequest(http.MethodDelete, "/api/call-slots/"+slot.ID.Hex()), &lead)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Call slot deleted successfully", testutil.DecodeJSON(t, rec)["message"])

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/call-slots/"+slot.ID.Hex()+"/details"), &lead)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
