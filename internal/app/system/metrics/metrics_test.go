package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/camps/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/camps/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/api/camps/{id}", http.MethodGet, "404"))
	assert.Equal(t, 3.0, got)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.Registered("camp")
	m.Registered("camp")
	m.ApplicationSubmitted()
	m.InviteSent("email")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.registrations.WithLabelValues("camp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.applications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invites.WithLabelValues("email")))

	var nilMetrics *Metrics
	nilMetrics.Registered("personal")
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.ApplicationSubmitted()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "camphub_applications_submitted_total 1")
}
