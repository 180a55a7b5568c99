package respond

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Message(rec, http.StatusBadRequest, "Email already registered")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Email already registered"}`, rec.Body.String())
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	var v struct {
		Email string `json:"email"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","admin":true}`))
	err := Decode(r, &v)
	require.Error(t, err)

	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","admin":true}`))
	require.NoError(t, DecodeLenient(r, &v))
	assert.Equal(t, "a@b.co", v.Email)
}

func TestErr(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "typed error with extra",
			err:      fmt.Errorf("apply: %w", BadRequest("Please complete your profile").With(map[string]any{"incompleteProfile": []string{"bio"}})),
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"Please complete your profile","incompleteProfile":["bio"]}`,
		},
		{
			name:     "no documents",
			err:      fmt.Errorf("find camp: %w", mongo.ErrNoDocuments),
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"Not found"}`,
		},
		{
			name:     "unknown",
			err:      fmt.Errorf("socket closed"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"message":"Server error"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Err(rec, log, tt.err, "test op")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
	assert.Equal(t, 1, logs.Len(), "only the 500 is logged")
}
