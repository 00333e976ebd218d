package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/store"
)

// Archiver stores HTML evidence snapshots and returns the storage key.
type Archiver interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

// ManagerConfig tunes the scan lifecycle.
type ManagerConfig struct {
	TargetDomain     string
	PersistThreshold float64
	Retention        time.Duration
	Concurrency      int
}

type scanState struct {
	progress models.ScanProgress
	cancel   context.CancelFunc
}

// Manager starts phishing sweeps and tracks their progress until a
// retention window after completion.
type Manager struct {
	cfg      ManagerConfig
	store    *store.Store
	checker  *Checker
	archiver Archiver

	mu    sync.Mutex
	scans map[string]*scanState
}

func NewManager(cfg ManagerConfig, s *store.Store, checker *Checker, archiver Archiver) *Manager {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	// A completed scan must stay queryable long enough for pollers to see
	// the terminal snapshot.
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * time.Minute
	}
	return &Manager{
		cfg:      cfg,
		store:    s,
		checker:  checker,
		archiver: archiver,
		scans:    make(map[string]*scanState),
	}
}

// Start launches a background sweep over the requested URLs plus, unless
// disabled, typosquat variations of the protected domain. It returns the
// initial progress snapshot immediately.
func (m *Manager) Start(ctx context.Context, req models.ScanRequest) models.ScanProgress {
	scanID := "scan-" + uuid.New().String()[:8]

	urls := append([]string(nil), req.URLs...)
	if req.CheckTyposquatting == nil || *req.CheckTyposquatting {
		for _, domain := range Typosquats(m.cfg.TargetDomain) {
			urls = append(urls, "http://"+domain, "https://"+domain)
		}
	}

	started := time.Now().UTC()
	estimated := started.Add(time.Duration(len(urls)/10+1) * time.Minute)

	progress := models.ScanProgress{
		ScanID:              scanID,
		Status:              models.ScanStatusStarting,
		Progress:            0,
		SitesFound:          0,
		StartedAt:           started,
		EstimatedCompletion: &estimated,
	}

	scanCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.scans[scanID] = &scanState{progress: progress, cancel: cancel}
	m.mu.Unlock()

	go m.run(scanCtx, scanID, urls)

	return progress
}

// Get returns the progress snapshot for a scan, or false when the scan is
// unknown or already expired.
func (m *Manager) Get(scanID string) (models.ScanProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.scans[scanID]
	if !ok {
		return models.ScanProgress{}, false
	}
	return state.progress, true
}

// Shutdown cancels every in-flight scan.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, state := range m.scans {
		state.cancel()
	}
}

func (m *Manager) run(ctx context.Context, scanID string, urls []string) {
	log := logger.Get()
	log.Info().Str("scan_id", scanID).Int("candidates", len(urls)).Msg("Started phishing scan")

	m.update(scanID, func(p *models.ScanProgress) {
		p.Status = models.ScanStatusRunning
	})

	sem := make(chan struct{}, m.cfg.Concurrency)
	var wg sync.WaitGroup
	var processed int

	total := len(urls)
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(rawURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := m.checkOne(ctx, scanID, rawURL); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Str("url", rawURL).Msg("Candidate check failed")
			}

			m.update(scanID, func(p *models.ScanProgress) {
				processed++
				if total > 0 {
					p.Progress = float64(processed) / float64(total) * 100
				}
			})
		}(rawURL)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		m.update(scanID, func(p *models.ScanProgress) {
			p.Status = models.ScanStatusError
			p.Error = err.Error()
		})
	} else {
		m.update(scanID, func(p *models.ScanProgress) {
			p.Status = models.ScanStatusCompleted
			p.Progress = 100
		})
	}

	final, _ := m.Get(scanID)
	log.Info().
		Str("scan_id", scanID).
		Str("status", final.Status).
		Int("sites_found", final.SitesFound).
		Msg("Finished phishing scan")

	time.AfterFunc(m.cfg.Retention, func() { m.expire(scanID) })
}

// checkOne probes a single candidate. Known URLs only get their
// last-checked stamp refreshed; new ones above the persist threshold are
// stored with an archived snapshot.
func (m *Manager) checkOne(ctx context.Context, scanID, rawURL string) error {
	existing, err := m.store.SiteByURL(ctx, rawURL)
	if err == nil {
		return m.store.TouchSite(ctx, existing.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	result, err := m.checker.CheckSite(ctx, rawURL, "")
	if err != nil {
		return err
	}

	if result.Site.SimilarityScore <= m.cfg.PersistThreshold {
		return nil
	}

	if m.archiver != nil && result.HTML != "" {
		key, err := m.archiver.Upload(ctx, result.Site.ID+".html", []byte(result.HTML))
		if err != nil {
			logger.Get().Warn().Err(err).Str("url", rawURL).Msg("Snapshot archive failed")
		} else {
			result.Site.SnapshotKey = key
		}
	}

	if err := m.store.SaveSite(ctx, &result.Site); err != nil {
		return err
	}

	m.update(scanID, func(p *models.ScanProgress) {
		p.SitesFound++
	})
	return nil
}

func (m *Manager) update(scanID string, fn func(*models.ScanProgress)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.scans[scanID]; ok {
		fn(&state.progress)
	}
}

func (m *Manager) expire(scanID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.scans[scanID]; ok {
		state.cancel()
		delete(m.scans, scanID)
	}
}
