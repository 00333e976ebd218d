package dashboard

import (
	"context"
	"time"

	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/models"
)

// Poller watches a scan until it reaches a terminal status.
type Poller struct {
	client   *Client
	interval time.Duration
}

func NewPoller(c *Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{client: c, interval: interval}
}

// Watch polls the scan on a fixed interval. onUpdate receives every
// snapshot, including the terminal one. onRefresh runs exactly once, and
// only when the scan completes successfully. Watch returns the terminal
// snapshot, or an error when a poll fails or ctx is cancelled.
func (p *Poller) Watch(ctx context.Context, scanID string, onUpdate func(models.ScanProgress), onRefresh func()) (models.ScanProgress, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return models.ScanProgress{}, ctx.Err()
		case <-ticker.C:
		}

		progress, err := p.client.ScanStatus(ctx, scanID)
		if err != nil {
			return models.ScanProgress{}, err
		}

		if onUpdate != nil {
			onUpdate(progress)
		}

		if !progress.Terminal() {
			continue
		}

		if progress.Status == models.ScanStatusCompleted && onRefresh != nil {
			onRefresh()
		}
		if progress.Status == models.ScanStatusError {
			logger.Get().Warn().
				Str("scan_id", scanID).
				Str("error", progress.Error).
				Msg("Scan finished with error")
		}
		return progress, nil
	}
}
