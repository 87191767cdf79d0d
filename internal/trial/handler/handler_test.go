package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testdrive/internal/refdata"
	"testdrive/internal/trial"
	"testdrive/pkg/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *trial.Service) {
	t.Helper()

	directory := refdata.NewMemoryDirectory()
	directory.PutVehicle(refdata.Vehicle{ID: 1, Plate: "AB123CD", ModelID: 3})
	directory.PutBuyer(refdata.Buyer{ID: 10, LicenseExpiry: time.Now().Add(24 * time.Hour)})
	directory.PutBuyer(refdata.Buyer{ID: 12, Restricted: true, LicenseExpiry: time.Now().Add(24 * time.Hour)})
	directory.PutEmployee(refdata.Employee{ID: 100})

	svc := trial.NewService(trial.NewMemoryStore(), directory)

	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r, svc
}

func postTrial(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoJSON(t, router, http.MethodPost, "/trials", body)
}

func TestHandleCreate(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`)
	require.Equal(t, http.StatusCreated, w.Code)

	created := testutil.Decode[trial.Trial](t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.VehicleID)
	assert.Nil(t, created.FinishedAt)
}

func TestHandleCreateRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed body",
			body:       `{"vehicle_id":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "missing ids",
			body:       `{"vehicle_id":1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "unknown vehicle",
			body:       `{"vehicle_id":99,"buyer_id":10,"employee_id":100}`,
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "restricted buyer",
			body:       `{"vehicle_id":1,"buyer_id":12,"employee_id":100}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "validation_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)
			w := postTrial(t, router, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			testutil.AssertErrorCode(t, w, tt.wantError)
		})
	}
}

func TestHandleCreateDuplicateActive(t *testing.T) {
	router, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`).Code)

	w := postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "vehicle is being tested")
}

func TestHandleFinalize(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := testutil.Decode[trial.Trial](t, w)

	rec := testutil.Do(t, router, http.MethodPatch,
		fmt.Sprintf("/trials/%d/finalize?comment=smooth+ride", created.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	finished := testutil.Decode[trial.Trial](t, rec)
	assert.NotNil(t, finished.FinishedAt)
	assert.Equal(t, "smooth ride", finished.Comments)

	// A second finalize is rejected.
	rec = testutil.Do(t, router, http.MethodPatch,
		fmt.Sprintf("/trials/%d/finalize", created.ID))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "trial already finalized")
}

func TestHandleFinalizeBadID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := testutil.Do(t, router, http.MethodPatch, "/trials/abc/finalize")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDelete(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := testutil.Decode[trial.Trial](t, w)

	rec := testutil.Do(t, router, http.MethodDelete, fmt.Sprintf("/trials/%d", created.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = testutil.Do(t, router, http.MethodDelete, fmt.Sprintf("/trials/%d", created.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListActiveAndIncidents(t *testing.T) {
	router, svc := newTestRouter(t)

	rec := testutil.Do(t, router, http.MethodGet, "/trials/active")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusCreated, postTrial(t, router, `{"vehicle_id":1,"buyer_id":10,"employee_id":100}`).Code)

	rec = testutil.Do(t, router, http.MethodGet, "/trials/active")
	require.Equal(t, http.StatusOK, rec.Code)
	active := testutil.Decode[[]trial.Trial](t, rec)
	require.Len(t, active, 1)

	_, err := svc.MarkIncident(t.Context(), 1)
	require.NoError(t, err)

	rec = testutil.Do(t, router, http.MethodGet, "/trials/incidents")
	require.Equal(t, http.StatusOK, rec.Code)
	incidents := testutil.Decode[[]trial.Trial](t, rec)
	require.Len(t, incidents, 1)
	assert.True(t, incidents[0].HasIncident)
}
