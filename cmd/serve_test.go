package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonsight/carbon-cli/internal/model"
	"github.com/carbonsight/carbon-cli/internal/store"
)

func newServeTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	run := store.Run{
		Status: model.RunStatusComplete,
		Summary: model.RunSummary{
			RunID:            "run-1",
			StartedAt:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			FinishedAt:       time.Date(2025, 3, 1, 10, 0, 3, 0, time.UTC),
			InputRecords:     5,
			Converted:        4,
			Entities:         2,
			CriticalEntities: 1,
		},
	}
	summaries := []model.EntityRiskSummary{
		{CanonicalBuyer: "national highways", TotalValue: 9000000, TotalCarbon: 1500, ContractCount: 4, Tier: model.TierCritical},
		{CanonicalBuyer: "kent county council", TotalValue: 250000, TotalCarbon: 233.25, ContractCount: 2, Tier: model.TierElevated},
	}
	require.NoError(t, st.SaveRun(context.Background(), run, summaries, nil))

	srv := httptest.NewServer(newRouter(st))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestServe_Health(t *testing.T) {
	srv := newServeTestServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServe_ListRuns(t *testing.T) {
	srv := newServeTestServer(t)

	var runs []store.Run
	code := getJSON(t, srv.URL+"/api/runs", &runs)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].Summary.RunID)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestServe_GetRun(t *testing.T) {
	srv := newServeTestServer(t)

	var run store.Run
	code := getJSON(t, srv.URL+"/api/runs/run-1", &run)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, run.Summary.InputRecords)
}

func TestServe_GetRun_NotFound(t *testing.T) {
	srv := newServeTestServer(t)

	var body map[string]string
	code := getJSON(t, srv.URL+"/api/runs/unknown", &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "not found")
}

func TestServe_Summaries_SortedByCarbon(t *testing.T) {
	srv := newServeTestServer(t)

	var summaries []model.EntityRiskSummary
	code := getJSON(t, srv.URL+"/api/runs/run-1/summaries", &summaries)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, summaries, 2)
	assert.Equal(t, "national highways", summaries[0].CanonicalBuyer)
}

func TestServe_Critical(t *testing.T) {
	srv := newServeTestServer(t)

	var critical []model.EntityRiskSummary
	code := getJSON(t, srv.URL+"/api/runs/run-1/critical", &critical)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, critical, 1)
	assert.Equal(t, model.TierCritical, critical[0].Tier)
}
