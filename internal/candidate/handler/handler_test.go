package handler

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examsite/internal/candidate/service"
	"examsite/internal/candidate/store"
	catalogmodels "examsite/internal/catalog/models"
	catalogservice "examsite/internal/catalog/service"
	catalogstore "examsite/internal/catalog/store"
	id "examsite/pkg/domain"
	authmw "examsite/pkg/platform/middleware/auth"
	"examsite/pkg/testutil"
)

type fixture struct {
	router  http.Handler
	inst    id.InstitutionID
	product id.ExamProductID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := catalogservice.New(catalogstore.NewInMemoryVenues(), catalogstore.NewInMemoryExamProducts(),
		catalogstore.NewInMemoryInstitutions(), catalogservice.WithLogger(logger))

	ctx := context.Background()
	inst, err := catalog.CreateInstitution(ctx, catalogservice.CreateInstitutionCommand{Name: "Sky Academy"})
	require.NoError(t, err)
	product, err := catalog.CreateExamProduct(ctx, catalogservice.CreateExamProductCommand{
		Name: "VLOS", Category: catalogmodels.CategoryVLOS, AircraftType: catalogmodels.AircraftMultirotor,
		Duration: 15 * time.Minute, TheoryPassScore: 70, PracticalPassScore: 80,
	})
	require.NoError(t, err)

	svc := service.New(store.NewInMemory(), catalog, service.WithLogger(logger))
	guard := func(roles ...string) func(http.Handler) http.Handler { return authmw.RequireRole(logger, roles...) }
	r := chi.NewRouter()
	New(svc, logger, guard).Register(r)
	return fixture{router: r, inst: inst.ID, product: product.ID}
}

func TestRegisterAndList(t *testing.T) {
	f := newFixture(t)
	user := id.UserID(uuid.New())

	req := testutil.NewJSONRequest(t, http.MethodPost, "/candidates", map[string]string{
		"name":            "Chen Jing",
		"id_number":       "110105199001010011",
		"exam_product_id": f.product.String(),
	})
	rr := testutil.DoRequest(f.router, testutil.AsInstitution(req, user, f.inst))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[CandidateResponse](t, rr)
	assert.Equal(t, f.inst.String(), created.InstitutionID)
	assert.Equal(t, "pending_review", created.Status)

	list := testutil.DoRequest(f.router, testutil.AsInstitution(
		testutil.NewRequest(t, http.MethodGet, "/candidates?page=1&size=10"), user, f.inst))
	testutil.AssertStatusOK(t, list)
	resp := testutil.UnmarshalResponse[CandidateListResponse](t, list)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Pages)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, created.ID, resp.Items[0].ID)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	admin := id.UserID(uuid.New())

	tests := []struct {
		name string
		body map[string]string
		code string
	}{
		{"bad id number", map[string]string{"name": "A", "id_number": "123", "exam_product_id": f.product.String()}, "validation_error"},
		{"missing product", map[string]string{"name": "A", "id_number": "110105199001010011"}, "validation_error"},
		{"blank name", map[string]string{"name": "  ", "id_number": "110105199001010011", "exam_product_id": f.product.String()}, "validation_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/candidates", tc.body)
			rr := testutil.DoRequest(f.router, testutil.AsAdmin(req, admin))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, tc.code)
		})
	}
}

func TestStatusTransitionsOverHTTP(t *testing.T) {
	f := newFixture(t)
	admin := id.UserID(uuid.New())

	req := testutil.NewJSONRequest(t, http.MethodPost, "/candidates", map[string]string{
		"name":            "Chen Jing",
		"id_number":       "110105199001010011",
		"institution_id":  f.inst.String(),
		"exam_product_id": f.product.String(),
	})
	rr := testutil.DoRequest(f.router, testutil.AsAdmin(req, admin))
	require.Equal(t, http.StatusCreated, rr.Code)
	created := testutil.UnmarshalResponse[CandidateResponse](t, rr)

	path := "/candidates/" + created.ID + "/status"
	bad := testutil.DoRequest(f.router, testutil.AsAdmin(
		testutil.NewJSONRequest(t, http.MethodPatch, path, map[string]string{"status": "active"}), admin))
	testutil.AssertStatusAndError(t, bad, http.StatusConflict, "invalid_state")

	good := testutil.DoRequest(f.router, testutil.AsAdmin(
		testutil.NewJSONRequest(t, http.MethodPatch, path, map[string]string{"status": "approved"}), admin))
	testutil.AssertStatusOK(t, good)
	testutil.AssertJSONContains(t, good, "status", "approved")
}

func TestStaffCannotManageCandidates(t *testing.T) {
	f := newFixture(t)
	rr := testutil.DoRequest(f.router, testutil.AsStaff(
		testutil.NewRequest(t, http.MethodGet, "/candidates"), id.UserID(uuid.New())))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestListRejectsBadPaging(t *testing.T) {
	f := newFixture(t)
	rr := testutil.DoRequest(f.router, testutil.AsAdmin(
		testutil.NewRequest(t, http.MethodGet, "/candidates?size=500"), id.UserID(uuid.New())))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func csvRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	return req
}

func TestImportTemplate(t *testing.T) {
	f := newFixture(t)
	rr := testutil.DoRequest(f.router, testutil.AsInstitution(
		testutil.NewRequest(t, http.MethodGet, "/candidates/import/template"), id.UserID(uuid.New()), f.inst))

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "candidate-import-template.csv")
	records, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"name", "id_number", "phone", "exam_product"}, records[0])

	rows, err := parseImport(strings.NewReader(rr.Body.String()))
	require.NoError(t, err, "the template parses as an import file")
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
}

func TestImportOverHTTP(t *testing.T) {
	user := id.UserID(uuid.New())

	t.Run("every row is registered", func(t *testing.T) {
		f := newFixture(t)
		body := "\ufeffName,ID_Number,Exam_Product,Notes\n" +
			"Chen Jing,110105199001010011,VLOS,first\n" +
			"\"Wang, Fang\",11010519900101002x,vlos,\n"
		rr := testutil.DoRequest(f.router, testutil.AsInstitution(csvRequest("/candidates/import", body), user, f.inst))

		require.Equal(t, http.StatusCreated, rr.Code)
		resp := testutil.UnmarshalResponse[ImportResponse](t, rr)
		assert.Equal(t, 2, resp.TotalRows)
		assert.Equal(t, 2, resp.ImportedCount)
		assert.Empty(t, resp.Errors)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "Wang, Fang", resp.Items[1].Name)
		assert.Equal(t, "11010519900101002X", resp.Items[1].IDNumber)

		list := testutil.DoRequest(f.router, testutil.AsInstitution(
			testutil.NewRequest(t, http.MethodGet, "/candidates"), user, f.inst))
		testutil.AssertJSONContains(t, list, "total", float64(2))
	})

	t.Run("bad rows are reported by line and nothing is written", func(t *testing.T) {
		f := newFixture(t)
		body := "name,id_number,exam_product\n" +
			"Chen Jing,110105199001010011,VLOS\n" +
			"Li Lei,123,VLOS\n" +
			"Wang Fang,110105199001010011,VLOS\n"
		rr := testutil.DoRequest(f.router, testutil.AsInstitution(csvRequest("/candidates/import", body), user, f.inst))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := testutil.UnmarshalResponse[ImportResponse](t, rr)
		assert.Zero(t, resp.ImportedCount)
		require.Len(t, resp.Errors, 2)
		assert.Equal(t, 3, resp.Errors[0].Line)
		assert.Equal(t, 4, resp.Errors[1].Line)
		assert.Contains(t, resp.Errors[1].Message, "line 2")

		list := testutil.DoRequest(f.router, testutil.AsInstitution(
			testutil.NewRequest(t, http.MethodGet, "/candidates"), user, f.inst))
		testutil.AssertJSONContains(t, list, "total", float64(0))
	})

	t.Run("malformed uploads", func(t *testing.T) {
		f := newFixture(t)
		tests := []struct {
			name string
			req  *http.Request
			code string
		}{
			{"json body", testutil.NewJSONRequest(t, http.MethodPost, "/candidates/import", map[string]string{"name": "A"}), "validation_error"},
			{"empty file", csvRequest("/candidates/import", ""), "validation_error"},
			{"header only", csvRequest("/candidates/import", "name,id_number,exam_product\n"), "validation_error"},
			{"missing column", csvRequest("/candidates/import", "name,id_number\nA,110105199001010011\n"), "validation_error"},
			{"broken quoting", csvRequest("/candidates/import", "name,id_number,exam_product\n\"A,1,VLOS\n"), "validation_error"},
			{"bad institution", csvRequest("/candidates/import?institution_id=nope", "name,id_number,exam_product\n"), "invalid_input"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				rr := testutil.DoRequest(f.router, testutil.AsAdmin(tc.req, user))
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, tc.code)
			})
		}
	})

	t.Run("staff cannot import", func(t *testing.T) {
		f := newFixture(t)
		rr := testutil.DoRequest(f.router, testutil.AsStaff(
			csvRequest("/candidates/import", "name,id_number,exam_product\n"), user))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
