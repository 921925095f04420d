package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogURL(t *testing.T) {
	tests := []struct {
		name       string
		baseURL    string
		lang       string
		channel    Channel
		apiVersion string
		expected   string
	}{
		{
			name:       "stable channel",
			baseURL:    "https://store.example.com",
			lang:       "en",
			channel:    ChannelStable,
			apiVersion: "2024.1.0",
			expected:   "https://store.example.com/en/stable/2024.1.0.json",
		},
		{
			name:       "trailing slash trimmed",
			baseURL:    "https://store.example.com/",
			lang:       "de",
			channel:    ChannelBeta,
			apiVersion: LatestAPIVersion,
			expected:   "https://store.example.com/de/beta/latest.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.baseURL, nil)
			got, err := c.CatalogURL(tt.lang, tt.channel, tt.apiVersion)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("beta")
	require.NoError(t, err)
	assert.Equal(t, ChannelBeta, ch)

	_, err = ParseChannel("nightly")
	require.Error(t, err)
}

func TestCacheHashURL(t *testing.T) {
	c := NewClient("https://store.example.com", nil)
	got, err := c.CacheHashURL()
	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/cacheHash.json", got)
}

func TestFetchCatalog(t *testing.T) {
	catalogJSON := `[
		{"id": "calc", "displayName": "Calculator", "version": "1.2.0",
		 "URL": "https://store.example.com/files/calc.addon",
		 "sha256": "abc123", "channel": "stable", "minAPIVersion": "2023.1.0"},
		{"id": "notes", "displayName": "Notes", "version": "0.9.1",
		 "URL": "https://store.example.com/files/notes.addon", "sha256": "def456"}
	]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/en/stable/2024.1.0.json":
			_, _ = w.Write([]byte(catalogJSON))
		case "/cacheHash.json":
			_, _ = w.Write([]byte(`"3f786850e387550fdab836ed7e6dc881de23001b"`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	packages, cacheHash, err := c.FetchCatalog(context.Background(), "en", ChannelStable, "2024.1.0")
	require.NoError(t, err)

	assert.Equal(t, "3f786850e387550fdab836ed7e6dc881de23001b", cacheHash)
	require.Len(t, packages, 2)
	assert.Equal(t, "calc", packages[0].ID)
	assert.Equal(t, "Calculator", packages[0].DisplayName)
	assert.Equal(t, "https://store.example.com/files/calc.addon", packages[0].URL)
	assert.Equal(t, "notes", packages[1].ID)
}

func TestFetchCatalog_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	_, _, err := c.FetchCatalog(context.Background(), "en", ChannelStable, "2024.1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code")
}

func TestFetchCatalog_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cacheHash.json" {
			_, _ = w.Write([]byte(`"hash"`))
			return
		}
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	_, _, err := c.FetchCatalog(context.Background(), "en", ChannelAll, LatestAPIVersion)
	require.Error(t, err)
}
