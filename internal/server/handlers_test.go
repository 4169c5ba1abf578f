package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/config"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/store"
)

func newTestServer(t *testing.T) (pgxmock.PgxPoolIface, http.Handler) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	srv := New(mock, store.NewPostgresFromPool(mock), config.ServerConfig{
		AllowedOrigins: []string{"*"},
	})
	return mock, srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth_OK(t *testing.T) {
	mock, h := newTestServer(t)
	mock.ExpectPing()

	rec := doJSON(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_DatabaseDown(t *testing.T) {
	mock, h := newTestServer(t)
	mock.ExpectPing().WillReturnError(eris.New("connection refused"))

	rec := doJSON(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateUser_AssignsTier(t *testing.T) {
	mock, h := newTestServer(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO classifications`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT tier FROM classifications`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"tier"}).AddRow("Essential"))

	rec := doJSON(t, h, http.MethodPost, "/api/users", `{
		"name": "Jo Byrne",
		"email": "jo@energyco.example",
		"organisation": "EnergyCo",
		"role": "CISO",
		"sector": "Energy",
		"employee_count": ">250",
		"revenue": ">50"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp registrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.TierEssential, resp.Tier)
	assert.NotEmpty(t, resp.User.ID, "server generates the id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_MissingFields(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users", `{"name": "no email"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUser_MalformedBody(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	mock, h := newTestServer(t)

	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	rec := doJSON(t, h, http.MethodGet, "/api/users/u-404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetClassification_NotFound(t *testing.T) {
	mock, h := newTestServer(t)

	mock.ExpectQuery(`SELECT tier FROM classifications`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	rec := doJSON(t, h, http.MethodGet, "/api/users/u-404/classification", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestSubmitResponses_EmptyBatch(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users/u-1/responses", `{"responses": []}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListQuestions_UnknownClassification(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/questions?classification=bogus", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListQuestions_FiltersBySector(t *testing.T) {
	mock, h := newTestServer(t)

	mock.ExpectQuery(`FROM questions WHERE`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "text", "classification", "category", "answer_type", "sector"}).
			AddRow(int64(1), "Do you maintain an incident response plan?", "essential", "Incident Handling", "yes_no", "").
			AddRow(int64(2), "Is OT segmented from IT?", "sector_specific", "Network Security", "yes_no", "Energy"))

	rec := doJSON(t, h, http.MethodGet, "/api/questions?sector=Energy", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Questions []model.Question `json:"questions"`
		Count     int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBenchmark_BlendsAtReadTime(t *testing.T) {
	mock, h := newTestServer(t)

	internal := 80.0
	mock.ExpectQuery(`FROM sector_benchmarks WHERE sector`).
		WithArgs("Energy").
		WillReturnRows(pgxmock.NewRows([]string{"sector", "external_score", "source_reference", "justification", "updated_at"}).
			AddRow("Energy", 60.0, "ENISA 2024", "", time.Now().UTC()))
	mock.ExpectQuery(`SELECT internal_weight, external_weight FROM benchmark_settings`).
		WillReturnRows(pgxmock.NewRows([]string{"internal_weight", "external_weight"}).AddRow(30.0, 70.0))
	mock.ExpectQuery(`SELECT AVG`).
		WithArgs("Energy").
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(&internal))

	rec := doJSON(t, h, http.MethodGet, "/api/benchmarks/Energy", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bm model.SectorBenchmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bm))
	require.NotNil(t, bm.BlendedScore)
	assert.InDelta(t, 66.0, *bm.BlendedScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWeights_DefaultsWhenUnset(t *testing.T) {
	mock, h := newTestServer(t)

	mock.ExpectQuery(`SELECT internal_weight, external_weight FROM benchmark_settings`).
		WillReturnError(pgx.ErrNoRows)

	rec := doJSON(t, h, http.MethodGet, "/api/admin/settings/benchmark-weights", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"internal_weight":30,"external_weight":70}`, rec.Body.String())
}

func TestUpdateWeights_RejectsNegative(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPut, "/api/admin/settings/benchmark-weights",
		`{"internal_weight":-5,"external_weight":105}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	limited := rateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	passthrough := rateLimit(0, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		passthrough.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
