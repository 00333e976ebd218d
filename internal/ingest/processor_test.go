package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctiworks/threatboard/internal/cache"
	"github.com/ctiworks/threatboard/internal/config"
	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/store"
)

const newsFixture = `{
	"status": "ok",
	"articles": [
		{
			"source": {"name": "The Wire"},
			"title": "LockBit ransomware cripples hospital network",
			"description": "Operators issued a ransom demand, C2 traffic seen from 203.0.113.7",
			"url": "https://example.com/lockbit-hospital",
			"publishedAt": "2026-08-20T09:30:00Z"
		},
		{
			"source": {"name": "The Wire"},
			"title": "Phishing wave spoofs government portal",
			"description": "A fake login page harvests citizen credentials",
			"url": "https://example.com/phishing-portal",
			"publishedAt": "2026-08-21T11:00:00Z"
		},
		{
			"source": {"name": "The Wire"},
			"title": "Duplicate entry",
			"description": "Same link as the first story",
			"url": "https://example.com/lockbit-hospital",
			"publishedAt": "2026-08-20T10:00:00Z"
		}
	]
}`

func newTestProcessor(t *testing.T, newsURL string) (*Processor, *store.Store) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := &config.Config{
		NewsAPIBaseURL: newsURL,
		NewsAPIKey:     "test-key",
		NewsQueries:    []string{"cybersecurity"},
		FetchBatchSize: 10,
		NVDBaseURL:     "http://127.0.0.1:0", // unreachable, lookups degrade to a warning
		CacheTTL:       time.Hour,
	}

	return NewProcessor(cfg, cache.NewMockClient("test:"), s), s
}

func TestProcessorRunStoresClassifiedArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		fmt.Fprint(w, newsFixture)
	}))
	defer srv.Close()

	p, s := newTestProcessor(t, srv.URL)

	stored, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	articles, err := s.AllArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	byURL := make(map[string]models.ThreatArticle)
	for _, a := range articles {
		byURL[a.URL] = a
	}

	lockbit := byURL["https://example.com/lockbit-hospital"]
	assert.Equal(t, "Ransomware", lockbit.Category)
	assert.Equal(t, models.SeverityHigh, lockbit.Severity)
	assert.Equal(t, "The Wire", lockbit.Source)
	assert.Equal(t, 2026, lockbit.PublishedDate.Year())

	assert.Equal(t, "Phishing", byURL["https://example.com/phishing-portal"].Category)
}

func TestProcessorRecordsActorsAndIndicators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsFixture)
	}))
	defer srv.Close()

	p, s := newTestProcessor(t, srv.URL)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	actor, err := s.ActorByName(context.Background(), "LockBit")
	require.NoError(t, err)
	assert.Equal(t, "LockBit", actor.Name)

	iocs, err := s.IndicatorsByType(context.Background(), models.IndicatorIP)
	require.NoError(t, err)
	require.Len(t, iocs, 1)
	assert.Equal(t, "203.0.113.7", iocs[0].Value)
}

func TestProcessorSkipsProcessedArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsFixture)
	}))
	defer srv.Close()

	p, _ := newTestProcessor(t, srv.URL)

	stored, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	// Second cycle sees the same feed; the cache short-circuits everything.
	stored, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stored)
}

func TestProcessorFailsWhenAllQueriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, _ := newTestProcessor(t, srv.URL)

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}
