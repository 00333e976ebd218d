package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/store"
)

type memoryArchiver struct {
	mu      sync.Mutex
	uploads map[string][]byte
}

func (a *memoryArchiver) Upload(_ context.Context, key string, body []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uploads == nil {
		a.uploads = make(map[string][]byte)
	}
	a.uploads[key] = body
	return "snapshots/" + key, nil
}

func newScanFixture(t *testing.T, retention time.Duration) (*Manager, *store.Store, *memoryArchiver, string) {
	t.Helper()

	phishing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, phishingPage)
	}))
	t.Cleanup(phishing.Close)

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, phishingPage)
	}))
	t.Cleanup(target.Close)

	s, err := store.Open(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	phishingHost, err := url.Parse(phishing.URL)
	require.NoError(t, err)

	checker := NewChecker(CheckerConfig{
		TargetDomain:  phishingHost.Hostname(),
		TargetBaseURL: target.URL,
		IPInfoBaseURL: "http://127.0.0.1:0",
	})

	archiver := &memoryArchiver{}
	m := NewManager(ManagerConfig{
		TargetDomain:     "www.tamm.abudhabi",
		PersistThreshold: 50,
		Retention:        retention,
		Concurrency:      2,
	}, s, checker, archiver)

	return m, s, archiver, phishing.URL
}

func waitTerminal(t *testing.T, m *Manager, scanID string) models.ScanProgress {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := m.Get(scanID); ok && p.Terminal() {
			return p
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("scan did not reach a terminal state")
	return models.ScanProgress{}
}

func TestScanLifecycle(t *testing.T) {
	m, s, archiver, candidateURL := newScanFixture(t, time.Minute)

	noTypo := false
	progress := m.Start(context.Background(), models.ScanRequest{
		URLs:               []string{candidateURL + "/login"},
		CheckTyposquatting: &noTypo,
	})

	assert.Contains(t, progress.ScanID, "scan-")
	assert.Equal(t, models.ScanStatusStarting, progress.Status)
	assert.NotNil(t, progress.EstimatedCompletion)

	final := waitTerminal(t, m, progress.ScanID)
	assert.Equal(t, models.ScanStatusCompleted, final.Status)
	assert.Equal(t, 100.0, final.Progress)
	assert.Equal(t, 1, final.SitesFound)

	site, err := s.SiteByURL(context.Background(), candidateURL+"/login")
	require.NoError(t, err)
	assert.Contains(t, site.ID, "ps-")
	assert.Equal(t, PageLogin, site.TargetPage)
	assert.Equal(t, models.SiteStatusActive, site.Status)
	assert.True(t, site.HasLoginForm)
	assert.Greater(t, site.SimilarityScore, 65.0)

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	require.Len(t, archiver.uploads, 1)
	assert.Equal(t, "snapshots/"+site.ID+".html", site.SnapshotKey)
}

func TestScanTouchesKnownSites(t *testing.T) {
	m, s, _, candidateURL := newScanFixture(t, time.Minute)

	noTypo := false
	req := models.ScanRequest{URLs: []string{candidateURL + "/login"}, CheckTyposquatting: &noTypo}

	first := m.Start(context.Background(), req)
	waitTerminal(t, m, first.ScanID)

	// Re-scanning a known URL refreshes it instead of recounting it.
	second := m.Start(context.Background(), req)
	final := waitTerminal(t, m, second.ScanID)
	assert.Equal(t, 0, final.SitesFound)

	total, _, err := s.ListSites(context.Background(), store.SiteFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestScanCancellation(t *testing.T) {
	m, _, _, candidateURL := newScanFixture(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	noTypo := false
	progress := m.Start(ctx, models.ScanRequest{
		URLs:               []string{candidateURL},
		CheckTyposquatting: &noTypo,
	})

	final := waitTerminal(t, m, progress.ScanID)
	assert.Equal(t, models.ScanStatusError, final.Status)
	assert.NotEmpty(t, final.Error)
}

func TestScanExpiry(t *testing.T) {
	m, _, _, candidateURL := newScanFixture(t, 50*time.Millisecond)

	noTypo := false
	progress := m.Start(context.Background(), models.ScanRequest{
		URLs:               []string{candidateURL},
		CheckTyposquatting: &noTypo,
	})
	waitTerminal(t, m, progress.ScanID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Get(progress.ScanID); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan entry never expired")
}

func TestZeroRetentionKeepsCompletedScanQueryable(t *testing.T) {
	m, _, _, candidateURL := newScanFixture(t, 0)
	assert.Equal(t, 30*time.Minute, m.cfg.Retention)

	noTypo := false
	progress := m.Start(context.Background(), models.ScanRequest{
		URLs:               []string{candidateURL},
		CheckTyposquatting: &noTypo,
	})
	waitTerminal(t, m, progress.ScanID)

	// The terminal snapshot must survive completion for late pollers.
	got, ok := m.Get(progress.ScanID)
	require.True(t, ok)
	assert.Equal(t, models.ScanStatusCompleted, got.Status)
}

func TestScanUnknownID(t *testing.T) {
	m, _, _, _ := newScanFixture(t, time.Minute)
	_, ok := m.Get("scan-deadbeef")
	assert.False(t, ok)
}
