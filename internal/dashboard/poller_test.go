package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctiworks/threatboard/internal/models"
)

// scanServer serves a fixed sequence of progress snapshots, one per poll.
func scanServer(t *testing.T, snapshots []models.ScanProgress) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		idx := int(n) - 1
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		_ = json.NewEncoder(w).Encode(snapshots[idx])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestPollerStopsAtCompletedWithOneRefresh(t *testing.T) {
	srv, calls := scanServer(t, []models.ScanProgress{
		{ScanID: "scan-abc", Status: models.ScanStatusRunning, Progress: 10},
		{ScanID: "scan-abc", Status: models.ScanStatusRunning, Progress: 60},
		{ScanID: "scan-abc", Status: models.ScanStatusCompleted, Progress: 100, SitesFound: 3},
	})

	var updates []models.ScanProgress
	refreshes := 0

	p := NewPoller(NewClient(srv.URL, ""), 10*time.Millisecond)
	final, err := p.Watch(context.Background(), "scan-abc",
		func(pr models.ScanProgress) { updates = append(updates, pr) },
		func() { refreshes++ },
	)
	require.NoError(t, err)

	assert.Equal(t, models.ScanStatusCompleted, final.Status)
	assert.Equal(t, 3, final.SitesFound)
	assert.Equal(t, 1, refreshes)
	require.Len(t, updates, 3)
	assert.Equal(t, models.ScanStatusRunning, updates[0].Status)
	assert.Equal(t, models.ScanStatusCompleted, updates[2].Status)

	// No polls after the terminal snapshot.
	polled := atomic.LoadInt32(calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polled, atomic.LoadInt32(calls))
}

func TestPollerNoRefreshOnError(t *testing.T) {
	srv, _ := scanServer(t, []models.ScanProgress{
		{ScanID: "scan-abc", Status: models.ScanStatusRunning, Progress: 10},
		{ScanID: "scan-abc", Status: models.ScanStatusError, Error: "upstream gone"},
	})

	refreshes := 0
	p := NewPoller(NewClient(srv.URL, ""), 10*time.Millisecond)
	final, err := p.Watch(context.Background(), "scan-abc", nil, func() { refreshes++ })
	require.NoError(t, err)

	assert.Equal(t, models.ScanStatusError, final.Status)
	assert.Equal(t, "upstream gone", final.Error)
	assert.Equal(t, 0, refreshes)
}

func TestPollerStopsOnPollFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	p := NewPoller(NewClient(srv.URL, ""), 10*time.Millisecond)
	_, err := p.Watch(context.Background(), "scan-gone", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPollerContextCancellation(t *testing.T) {
	srv, _ := scanServer(t, []models.ScanProgress{
		{ScanID: "scan-abc", Status: models.ScanStatusRunning},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	p := NewPoller(NewClient(srv.URL, ""), 10*time.Millisecond)
	go func() {
		_, err := p.Watch(ctx, "scan-abc", nil, nil)
		done <- err
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancellation")
	}
}
