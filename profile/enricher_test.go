package profile_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c360studio/planbind/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDirectoryServer serves a search result and per-view records. A nil view
// record returns 404.
func newDirectoryServer(t *testing.T, matches []string, views map[string]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	})

	mux.HandleFunc("/profiles/", func(w http.ResponseWriter, r *http.Request) {
		for view, record := range views {
			if r.URL.Path == "/profiles/person-1/"+view && record != nil {
				json.NewEncoder(w).Encode(record)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

func TestEnricher_Fetch_AllViews(t *testing.T) {
	server := newDirectoryServer(t, []string{"person-1"}, map[string]map[string]any{
		"clinical": {"conditions": []string{"hypertension"}},
		"system":   {"id": "person-1", "name": "Jordan Smith", "date_of_birth": "1985-03-12"},
		"coverage": {"carrier": "Acme Health", "member_id": "M123"},
	})
	defer server.Close()

	e := profile.NewEnricher(profile.NewHTTPDirectory(server.URL), nil)

	result, err := e.Fetch(context.Background(), "Jordan Smith")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "person-1", result.Identifier)
	assert.True(t, result.HasClinical)
	assert.True(t, result.HasSystem)
	assert.True(t, result.HasCoverage)

	// Demographic and coverage fields are flattened
	assert.Equal(t, "Jordan Smith", result.Fields["name"])
	assert.Equal(t, "1985-03-12", result.Fields["date_of_birth"])
	assert.Equal(t, "M123", result.Fields["member_id"])

	// Clinical data is retained in the raw record, not flattened
	assert.NotContains(t, result.Fields, "conditions")
	record, ok := result.Fields[profile.RecordKey].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, record, "clinical")
}

func TestEnricher_Fetch_NoMatches(t *testing.T) {
	server := newDirectoryServer(t, []string{}, nil)
	defer server.Close()

	e := profile.NewEnricher(profile.NewHTTPDirectory(server.URL), nil)

	result, err := e.Fetch(context.Background(), "Nobody Here")
	require.NoError(t, err)
	assert.Nil(t, result, "no matches is not an error")
}

func TestEnricher_Fetch_SearchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := profile.NewEnricher(profile.NewHTTPDirectory(server.URL), nil)

	_, err := e.Fetch(context.Background(), "Jordan Smith")
	require.Error(t, err, "a search transport failure propagates")
}

func TestEnricher_Fetch_PartialViews(t *testing.T) {
	// Only the system view exists; clinical and coverage 404
	server := newDirectoryServer(t, []string{"person-1"}, map[string]map[string]any{
		"system": {"name": "Jordan Smith", "phone": "555-0100"},
	})
	defer server.Close()

	e := profile.NewEnricher(profile.NewHTTPDirectory(server.URL), nil)

	result, err := e.Fetch(context.Background(), "Jordan Smith")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.HasClinical)
	assert.True(t, result.HasSystem)
	assert.False(t, result.HasCoverage)
	assert.Equal(t, "555-0100", result.Fields["phone"])
}

func TestEnricher_Fetch_FirstMatchWins(t *testing.T) {
	server := newDirectoryServer(t, []string{"person-1", "person-2"}, map[string]map[string]any{
		"system": {"name": "Jordan Smith"},
	})
	defer server.Close()

	e := profile.NewEnricher(profile.NewHTTPDirectory(server.URL), nil)

	result, err := e.Fetch(context.Background(), "Jordan")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "person-1", result.Identifier)
}

func TestHTTPDirectory_FetchView_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := profile.NewHTTPDirectory(server.URL)
	_, err := d.FetchView(context.Background(), "person-1", "clinical")
	assert.ErrorIs(t, err, profile.ErrViewNotFound)
}
