package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testdrive/internal/position"
	"testdrive/internal/refdata"
	"testdrive/internal/restrictions"
	"testdrive/internal/trial"
	"testdrive/pkg/testutil"
)

type staticRules struct {
	snapshot *restrictions.Restrictions
}

func (s *staticRules) Get(context.Context) (*restrictions.Restrictions, error) {
	return s.snapshot, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	directory := refdata.NewMemoryDirectory()
	directory.PutVehicle(refdata.Vehicle{ID: 1, Plate: "AB123CD", ModelID: 3})
	directory.PutBuyer(refdata.Buyer{ID: 10, LicenseExpiry: time.Now().Add(24 * time.Hour)})
	directory.PutEmployee(refdata.Employee{ID: 100})

	trials := trial.NewService(trial.NewMemoryStore(), directory)
	_, err := trials.Create(context.Background(), 1, 10, 100)
	require.NoError(t, err)

	rules := &staticRules{snapshot: &restrictions.Restrictions{
		HomeLocation:    restrictions.Location{Latitude: 0, Longitude: 0},
		MaxRadiusMeters: 1000,
	}}
	svc := position.NewService(directory, trials, position.NewMemoryStore(), rules,
		slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func postPosition(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoJSON(t, router, http.MethodPost, "/positions", body)
}

func TestHandleIngestNormal(t *testing.T) {
	router := newTestRouter(t)

	w := postPosition(t, router, `{"vehicle_id":1,"latitude":0.001,"longitude":0.001}`)
	require.Equal(t, http.StatusCreated, w.Code)

	result := testutil.Decode[position.Result](t, w)
	assert.Equal(t, position.ClassificationNormal, result.Classification)
	assert.Equal(t, "position recorded", result.Message)
}

func TestHandleIngestViolation(t *testing.T) {
	router := newTestRouter(t)

	w := postPosition(t, router, `{"vehicle_id":1,"latitude":10,"longitude":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	result := testutil.Decode[position.Result](t, w)
	assert.Equal(t, position.ClassificationOutOfRadius, result.Classification)
	assert.Equal(t, "vehicle is outside the radius allowed by the agency", result.Message)
}

func TestHandleIngestRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", `{"vehicle_id"`, http.StatusBadRequest},
		{"missing coordinates", `{"vehicle_id":1}`, http.StatusBadRequest},
		{"latitude out of range", `{"vehicle_id":1,"latitude":91,"longitude":0}`, http.StatusBadRequest},
		{"longitude out of range", `{"vehicle_id":1,"latitude":0,"longitude":181}`, http.StatusBadRequest},
		{"unknown vehicle", `{"vehicle_id":99,"latitude":0,"longitude":0}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			assert.Equal(t, tt.wantStatus, postPosition(t, router, tt.body).Code)
		})
	}
}

func TestHandleIngestZeroCoordinatesAccepted(t *testing.T) {
	// Null Island is a legal position; only absent fields are rejected.
	router := newTestRouter(t)
	assert.Equal(t, http.StatusCreated,
		postPosition(t, router, `{"vehicle_id":1,"latitude":0,"longitude":0}`).Code)
}

func TestHandleLatestNotConfigured(t *testing.T) {
	// No latest store wired: the endpoint reports the capability as missing.
	router := newTestRouter(t)

	w := testutil.Do(t, router, http.MethodGet, "/vehicles/1/position/latest")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleLatestBadID(t *testing.T) {
	router := newTestRouter(t)

	w := testutil.Do(t, router, http.MethodGet, "/vehicles/zero/position/latest")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
