package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examsite/internal/catalog/service"
	"examsite/internal/catalog/store"
	id "examsite/pkg/domain"
	authmw "examsite/pkg/platform/middleware/auth"
	"examsite/pkg/testutil"
)

func newCatalogRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemoryVenues(), store.NewInMemoryExamProducts(), store.NewInMemoryInstitutions(),
		service.WithLogger(logger))

	guard := func(roles ...string) func(http.Handler) http.Handler {
		return authmw.RequireRole(logger, roles...)
	}
	r := chi.NewRouter()
	New(svc, logger, guard).Register(r)
	return r
}

func TestCreateAndReadVenue(t *testing.T) {
	router := newCatalogRouter(t)
	adminID := id.UserID(uuid.New())

	req := testutil.NewJSONRequest(t, http.MethodPost, "/venues", map[string]any{
		"name":     "Hall A",
		"type":     "Theory",
		"capacity": 40,
	})
	rr := testutil.DoRequest(router, testutil.AsAdmin(req, adminID))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[VenueResponse](t, rr)
	assert.Equal(t, "theory", created.Type)
	assert.Equal(t, "active", created.Status)

	getReq := testutil.NewRequest(t, http.MethodGet, "/venues/"+created.ID)
	rr = testutil.DoRequest(router, testutil.AsStaff(getReq, id.UserID(uuid.New())))
	testutil.AssertStatusOK(t, rr)

	patch := testutil.NewJSONRequest(t, http.MethodPatch, "/venues/"+created.ID+"/status", map[string]string{"status": "inactive"})
	rr = testutil.DoRequest(router, testutil.AsAdmin(patch, adminID))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "inactive")
}

func TestVenueWritesRequireAdmin(t *testing.T) {
	router := newCatalogRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/venues", map[string]any{
		"name": "Hall A", "type": "theory", "capacity": 40,
	})
	rr := testutil.DoRequest(router, testutil.AsStaff(req, id.UserID(uuid.New())))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	inst := testutil.NewRequest(t, http.MethodGet, "/venues")
	rr = testutil.DoRequest(router, testutil.AsInstitution(inst, id.UserID(uuid.New()), id.InstitutionID(uuid.New())))
	testutil.AssertStatus(t, rr, http.StatusForbidden)

	anon := testutil.NewRequest(t, http.MethodGet, "/venues")
	rr = testutil.DoRequest(router, anon)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestCreateVenueValidation(t *testing.T) {
	router := newCatalogRouter(t)
	adminID := id.UserID(uuid.New())

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"blank name", map[string]any{"name": " ", "type": "theory", "capacity": 5}, http.StatusBadRequest, "validation_error"},
		{"zero capacity", map[string]any{"name": "Hall", "type": "theory", "capacity": 0}, http.StatusBadRequest, "validation_error"},
		{"unknown type", map[string]any{"name": "Hall", "type": "lab", "capacity": 5}, http.StatusBadRequest, "invalid_input"},
		{"unknown field", map[string]any{"name": "Hall", "type": "theory", "capacity": 5, "floor": 2}, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/venues", tc.body)
			rr := testutil.DoRequest(router, testutil.AsAdmin(req, adminID))
			testutil.AssertStatusAndError(t, rr, tc.status, tc.code)
		})
	}
}

func TestGetVenueErrors(t *testing.T) {
	router := newCatalogRouter(t)
	staff := id.UserID(uuid.New())

	rr := testutil.DoRequest(router, testutil.AsStaff(testutil.NewRequest(t, http.MethodGet, "/venues/not-a-uuid"), staff))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")

	rr = testutil.DoRequest(router, testutil.AsStaff(testutil.NewRequest(t, http.MethodGet, "/venues/"+uuid.NewString()), staff))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestExamProductDefaults(t *testing.T) {
	router := newCatalogRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/exam-products", map[string]any{
		"name":             "BVLOS Fixed Wing",
		"category":         "bvlos",
		"aircraft_type":    "fixed_wing",
		"duration_minutes": 25,
	})
	rr := testutil.DoRequest(router, testutil.AsAdmin(req, id.UserID(uuid.New())))
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := testutil.UnmarshalResponse[ExamProductResponse](t, rr)
	assert.Equal(t, 25, resp.DurationMinutes)
	assert.Equal(t, 70, resp.TheoryPassScore)
	assert.Equal(t, 80, resp.PracticalPassScore)
}

func TestInstitutionConflict(t *testing.T) {
	router := newCatalogRouter(t)
	adminID := id.UserID(uuid.New())

	body := testutil.MustMarshal(t, map[string]string{"name": "Sky Academy"})
	first := testutil.DoRequest(router, testutil.AsAdmin(testutil.NewRequestWithBody(t, http.MethodPost, "/institutions", body), adminID))
	require.Equal(t, http.StatusCreated, first.Code)

	second := testutil.DoRequest(router, testutil.AsAdmin(
		testutil.NewJSONRequest(t, http.MethodPost, "/institutions", map[string]string{"name": "sky academy"}), adminID))
	testutil.AssertStatusAndError(t, second, http.StatusConflict, "conflict")

	empty := testutil.DoRequest(router, testutil.AsAdmin(
		testutil.NewRequestWithBody(t, http.MethodPost, "/institutions", ""), adminID))
	testutil.AssertStatusAndError(t, empty, http.StatusBadRequest, "bad_request")
}
