package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// httpGetter adapts a plain http.Client for tests; the production fetcher
// satisfies Getter the same way.
type httpGetter struct{}

func (httpGetter) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func releaseJSON(ocid, title, buyer, cpv string, amount float64) map[string]any {
	return map[string]any{
		"ocid": ocid,
		"date": "2025-03-01T00:00:00Z",
		"tender": map[string]any{
			"title":          title,
			"description":    "desc",
			"status":         "complete",
			"classification": map[string]any{"id": cpv},
			"value":          map[string]any{"amount": amount, "currency": "GBP"},
		},
		"buyer": map[string]any{"id": "b1", "name": buyer},
		"parties": []any{
			map[string]any{"id": "b1", "name": buyer, "address": map[string]any{"countryName": "GB"}},
		},
	}
}

func TestFetchAll_PagesAndFilters(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			json.NewEncoder(w).Encode(map[string]any{
				"releases": []any{
					releaseJSON("ocds-1", "Road resurfacing", "Kent CC", "45233142", 85000),
					releaseJSON("ocds-2", "Stationery supplies", "Kent CC", "30192000", 5000),
				},
				"links": map[string]any{"next": srvURL + "?page=2"},
			})
		case "2":
			json.NewEncoder(w).Encode(map[string]any{
				"releases": []any{
					releaseJSON("ocds-3", "Bridge refurbishment", "Dover DC", "45221100", 165000),
					releaseJSON("ocds-1", "Road resurfacing", "Kent CC", "45233142", 85000), // repeat
				},
				"links": map[string]any{},
			})
		default:
			t.Fatalf("unexpected page %q", page)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient(httpGetter{}, Options{
		BaseURL:     srv.URL,
		CPVPrefixes: []string{"451", "4520", "4522", "4523"},
	})

	records, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	// ocds-2 fails the CPV filter; the repeated ocds-1 is deduplicated.
	require.Len(t, records, 2)
	assert.Equal(t, "ocds-1", records[0].OCID)
	assert.Equal(t, "Road resurfacing", records[0].Title)
	assert.Equal(t, "Kent CC", records[0].BuyerRaw)
	assert.Equal(t, "45233142", records[0].CPVCode)
	assert.Equal(t, 85000.0, records[0].Value)
	assert.Equal(t, "GBP", records[0].Currency)
	assert.Equal(t, "GB", records[0].BuyerCountry)
	assert.Equal(t, "UK Contracts Finder", records[0].Source)
	assert.Equal(t, "ocds-3", records[1].OCID)
}

func TestFetchAll_PersistsCursor(t *testing.T) {
	cursorPath := filepath.Join(t.TempDir(), "cursor.txt")

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			json.NewEncoder(w).Encode(map[string]any{"releases": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"releases": []any{releaseJSON("ocds-1", "Resurfacing", "Kent CC", "45233142", 85000)},
			"links":    map[string]any{"next": srvURL + "?page=2"},
		})
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient(httpGetter{}, Options{BaseURL: srv.URL, CursorPath: cursorPath})
	_, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cursorPath)
	require.NoError(t, err)
	assert.Equal(t, srvURL+"?page=2", string(data))
}

func TestFetchAll_ResumesFromCursor(t *testing.T) {
	cursorPath := filepath.Join(t.TempDir(), "cursor.txt")

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		json.NewEncoder(w).Encode(map[string]any{"releases": []any{}})
	}))
	defer srv.Close()

	require.NoError(t, os.WriteFile(cursorPath, []byte(srv.URL+"/resume?cursor=abc"), 0644))

	c := NewClient(httpGetter{}, Options{BaseURL: srv.URL, CursorPath: cursorPath})
	_, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/resume?cursor=abc", gotPath)
}

func TestFetchAll_TruncatesDescription(t *testing.T) {
	long := ""
	for range 60 {
		long += "0123456789"
	}
	rel := releaseJSON("ocds-1", "Resurfacing", "Kent CC", "45233142", 85000)
	rel["tender"].(map[string]any)["description"] = long

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"releases": []any{rel}})
	}))
	defer srv.Close()

	c := NewClient(httpGetter{}, Options{BaseURL: srv.URL})
	records, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Description, 500)
}

func TestParseRelease_ClassificationShapes(t *testing.T) {
	c := NewClient(httpGetter{}, Options{})

	// List-shaped tender classification.
	var rel release
	require.NoError(t, json.Unmarshal([]byte(`{
		"ocid": "ocds-list",
		"tender": {
			"title": "Works",
			"classification": [{"id": "45233142-6"}]
		}
	}`), &rel))
	rec, ok := c.parseRelease(rel)
	require.True(t, ok)
	assert.Equal(t, "452331426", rec.CPVCode)

	// Release-level classification fallback.
	rel = release{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"ocid": "ocds-rel",
		"classification": {"id": "45221100"}
	}`), &rel))
	rec, ok = c.parseRelease(rel)
	require.True(t, ok)
	assert.Equal(t, "45221100", rec.CPVCode)
	assert.Equal(t, "Unknown", rec.Title)
	assert.Equal(t, "Unknown", rec.BuyerRaw)

	// No classification anywhere: dropped.
	rel = release{}
	require.NoError(t, json.Unmarshal([]byte(`{"ocid": "ocds-none"}`), &rel))
	_, ok = c.parseRelease(rel)
	assert.False(t, ok)
}

func TestParseRelease_ValueFallback(t *testing.T) {
	c := NewClient(httpGetter{}, Options{})

	var rel release
	require.NoError(t, json.Unmarshal([]byte(`{
		"ocid": "ocds-v",
		"classification": {"id": "45233142"},
		"value": {"amount": 12500}
	}`), &rel))
	rec, ok := c.parseRelease(rel)
	require.True(t, ok)
	assert.Equal(t, 12500.0, rec.Value)
	assert.Equal(t, "GBP", rec.Currency)
}

func TestMatchesPrefix(t *testing.T) {
	prefixes := []string{"451", "4523"}
	assert.True(t, MatchesPrefix("45112500", prefixes))
	assert.True(t, MatchesPrefix("45233142", prefixes))
	assert.False(t, MatchesPrefix("45400000", prefixes))
	assert.False(t, MatchesPrefix("30192000", prefixes))
	assert.True(t, MatchesPrefix("anything", nil))
}

func TestCleanCurrency(t *testing.T) {
	cases := map[string]float64{
		"£85,000":     85000,
		"GBP 1234.56": 1234.56,
		"1000000":     1000000,
		"":            0,
		"n/a":         0,
		"...":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanCurrency(in), fmt.Sprintf("input %q", in))
	}
}
