package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
	"github.com/paiban/visitplan/pkg/validator"
)

type fakeStore struct {
	calls int
	err   error
}

func (f *fakeStore) SaveResult(_ context.Context, _ *solver.Request, _ *solver.Result) error {
	f.calls++
	return f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Health(context.Context) error { return f.err }

func testConfig() config.SchedulerConfig {
	cfg := config.Default().Scheduler
	cfg.VisitsPerDay = 1
	cfg.Horizon = []string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
		"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10",
	}
	return cfg
}

func highPoints(ids ...string) []PointInput {
	out := make([]PointInput, len(ids))
	for i, id := range ids {
		out[i] = PointInput{
			ID:                id,
			Category:          "HighPriority",
			DistrictMain:      "D" + id,
			DistrictSecondary: "North",
			Address:           id + " street",
			VisitsLeft:        2,
		}
	}
	return out
}

func post(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScheduleHandler_Generate(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := post(t, h.Generate, GenerateRequest{Points: highPoints("A", "B", "C", "D", "E")})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cp", resp.Strategy)
	assert.Equal(t, "Feasible", resp.Status)
	assert.False(t, resp.Saved)
	require.Len(t, resp.Schedules, 5)
	for i, s := range resp.Schedules {
		assert.Equal(t, i+1, s.Rank)
		assert.Len(t, s.Rows, 10)
		if i > 0 {
			assert.GreaterOrEqual(t, s.Report.RouteCost, resp.Schedules[i-1].Report.RouteCost)
		}
	}
	assert.Equal(t, 5, resp.Statistics.SolutionsFound)
}

func TestScheduleHandler_GenerateInfeasible(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := post(t, h.Generate, GenerateRequest{
		Points:  highPoints("A"),
		Horizon: []string{"2024-01-01", "2024-01-02"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Infeasible", resp.Status)
	assert.Equal(t, "NO_FEASIBLE_SOLUTION", resp.Code)
	assert.Empty(t, resp.Schedules)
	assert.NotEmpty(t, resp.Message)
}

func TestScheduleHandler_GenerateFiller(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	points := highPoints("A")
	points[0].VisitsLeft = 1
	rec := post(t, h.Generate, GenerateRequest{
		Points:        points,
		Horizon:       []string{"2024-01-01"},
		SolutionLimit: 2,
		Strategy:      "filler",
		Options:       &GenerateOptions{Attempts: 3, Seed: 7},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "filler", resp.Strategy)
	assert.Len(t, resp.Schedules, 2)
	assert.Equal(t, 2, resp.Statistics.Attempts)
}

func TestScheduleHandler_GeneratePersist(t *testing.T) {
	store := &fakeStore{}
	h := NewScheduleHandler(testConfig(), store, nil)

	req := GenerateRequest{Points: highPoints("A", "B", "C", "D", "E"), SolutionLimit: 1, Persist: true}
	rec := post(t, h.Generate, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Saved)
	assert.Equal(t, 1, store.calls)

	store.err = errors.New("connection refused")
	rec = post(t, h.Generate, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Saved)
	assert.Equal(t, 2, store.calls)
}

func TestScheduleHandler_GenerateValidation(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	tests := []struct {
		name  string
		req   GenerateRequest
		field string
	}{
		{"no points", GenerateRequest{}, "points"},
		{"bad category", GenerateRequest{Points: []PointInput{{ID: "A", Category: "Urgent"}}}, "points[0].category"},
		{"duplicate id", GenerateRequest{Points: append(highPoints("A"), highPoints("A")...)}, "points[1].id"},
		{"bad strategy", GenerateRequest{Points: highPoints("A"), Strategy: "tabu"}, "strategy"},
		{"bad spacing", GenerateRequest{Points: highPoints("A"), Options: &GenerateOptions{SpacingMode: "loose"}}, "options.spacing_mode"},
		{"huge solution limit", GenerateRequest{Points: highPoints("A", "B", "C", "D", "E"), SolutionLimit: 1 << 34}, "solution_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.Generate, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_FAILED", body["code"])
			assert.Contains(t, body["fields"], tt.field)
		})
	}
}

func TestScheduleHandler_GenerateBadHorizon(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := post(t, h.Generate, GenerateRequest{Points: highPoints("A"), Horizon: []string{"2024-13-01"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.NotEmpty(t, body["details"])
}

func TestScheduleHandler_GenerateMethod(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandler_Validate(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	points := highPoints("A", "B")
	valid := ScheduleInput{Days: []DayInput{
		{Date: "2024-01-01", Visits: []string{"A"}},
		{Date: "2024-01-02", Visits: []string{"B"}},
		{Date: "2024-01-08", Visits: []string{"A"}},
		{Date: "2024-01-09", Visits: []string{"B"}},
	}}

	rec := post(t, h.Validate, ValidateRequest{Points: points, Schedule: valid})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsValid)
	assert.Empty(t, resp.Violations)

	invalid := ScheduleInput{Days: []DayInput{
		{Date: "2024-01-01", Visits: []string{"A"}},
		{Date: "2024-01-02", Visits: []string{"Z"}},
		{Date: "2024-01-03", Visits: []string{"A"}},
	}}
	rec = post(t, h.Validate, ValidateRequest{Points: points, Schedule: invalid})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsValid)

	types := make(map[validator.ViolationType]bool)
	for _, v := range resp.Violations {
		types[v.Type] = true
	}
	assert.True(t, types[validator.ViolationUnknownPoint])
	assert.True(t, types[validator.ViolationInterval])
	assert.True(t, types[validator.ViolationVisitCount])
}

func TestScheduleHandler_ValidateBadDate(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := post(t, h.Validate, ValidateRequest{
		Points:   highPoints("A"),
		Schedule: ScheduleInput{Days: []DayInput{{Date: "01/02/2024", Visits: []string{"A"}}}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandler_Evaluate(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	points := []PointInput{
		{ID: "A", Category: "HighPriority", DistrictMain: "X", DistrictSecondary: "Y"},
		{ID: "B", Category: "HighPriority", DistrictMain: "X", DistrictSecondary: "Z"},
		{ID: "C", Category: "LowPriority", DistrictMain: "Q", DistrictSecondary: "R"},
	}
	near := ScheduleInput{Days: []DayInput{{Date: "2024-01-01", Visits: []string{"A", "B"}}}}
	far := ScheduleInput{Days: []DayInput{{Date: "2024-01-01", Visits: []string{"A", "C"}}}}

	rec := post(t, h.Evaluate, EvaluateRequest{Points: points, Schedules: []ScheduleInput{far, near}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 2)
	assert.Equal(t, 0.0, resp.Reports[0].RouteCost)
	assert.Equal(t, 2.0, resp.Reports[1].RouteCost)
	assert.Equal(t, -2.0, resp.Comparison["route_cost_diff"])
}

func TestScheduleHandler_EvaluateUnknownPoint(t *testing.T) {
	h := NewScheduleHandler(testConfig(), nil, nil)

	rec := post(t, h.Evaluate, EvaluateRequest{
		Points:    highPoints("A"),
		Schedules: []ScheduleInput{{Days: []DayInput{{Date: "2024-01-01", Visits: []string{"Z"}}}}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSystemHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSystemHandler(BuildInfo{}, nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeError(t, rec)["status"])

	rec = httptest.NewRecorder()
	NewSystemHandler(BuildInfo{}, fakePinger{err: errors.New("down")}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unreachable", decodeError(t, rec)["database"])
}

func TestSystemHandler_Version(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSystemHandler(BuildInfo{Version: "1.2.0", GitCommit: "abc"}, nil).Version(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info BuildInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "1.2.0", info.Version)
	assert.Equal(t, "abc", info.GitCommit)
}

func TestSystemHandler_ConstraintLibrary(t *testing.T) {
	h := NewSystemHandler(BuildInfo{}, nil)

	rec := httptest.NewRecorder()
	h.ConstraintLibrary(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConstraintLibraryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Library, 7)
	names := make(map[constraint.Type]bool)
	for _, def := range resp.Library {
		names[def.Name] = true
	}
	assert.True(t, names[constraint.TypeDailyVisits])
	assert.True(t, names[constraint.TypeVisitCapacity])

	rec = httptest.NewRecorder()
	h.ConstraintLibrary(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
