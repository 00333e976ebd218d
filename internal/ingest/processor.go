package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ctiworks/threatboard/internal/cache"
	"github.com/ctiworks/threatboard/internal/config"
	"github.com/ctiworks/threatboard/internal/intel"
	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/store"
	"github.com/ctiworks/threatboard/internal/utils"
)

// Processor runs the fetch → classify → enrich → persist pipeline.
type Processor struct {
	cfg     *config.Config
	fetcher *Fetcher
	cache   cache.Cache
	store   *store.Store
	cvss    *intel.CVSSClient
}

func NewProcessor(cfg *config.Config, c cache.Cache, s *store.Store) *Processor {
	return &Processor{
		cfg:     cfg,
		fetcher: NewFetcher(cfg.NewsAPIBaseURL, cfg.NewsAPIKey, cfg.FetchBatchSize),
		cache:   c,
		store:   s,
		cvss:    intel.NewCVSSClient(cfg.NVDBaseURL),
	}
}

// Run executes one full ingest cycle and returns the number of articles
// stored.
func (p *Processor) Run(ctx context.Context) (int, error) {
	log := logger.Get()
	start := time.Now()

	raw, err := p.fetcher.FetchAll(ctx, p.cfg.NewsQueries)
	if err != nil {
		return 0, fmt.Errorf("error fetching news: %w", err)
	}

	log.Info().
		Int("fetched", len(raw)).
		Dur("fetch_duration", time.Since(start)).
		Msg("Fetched news articles")

	stored := 0
	for _, article := range raw {
		select {
		case <-ctx.Done():
			log.Warn().
				Int("stored", stored).
				Msg("Ingest cancelled")
			return stored, ctx.Err()
		default:
		}

		saved, err := p.processOne(ctx, article)
		if err != nil {
			log.Error().
				Err(err).
				Str("url", article.URL).
				Msg("Error processing article")
			continue
		}
		if saved {
			stored++
		}
	}

	log.Info().
		Int("stored", stored).
		Int("fetched", len(raw)).
		Dur("total_duration", time.Since(start)).
		Msg("Finished ingest cycle")

	return stored, nil
}

func (p *Processor) processOne(ctx context.Context, raw RawArticle) (bool, error) {
	log := logger.Get()

	hash := utils.Hash(raw.URL)
	processed, err := p.cache.IsProcessed(ctx, hash)
	if err != nil {
		// A cache failure must not stall ingest; the store still dedups
		// by URL.
		log.Warn().Err(err).Str("url", raw.URL).Msg("Cache check failed")
	} else if processed {
		return false, nil
	}

	analysis := Classify(raw.Title, raw.Description)

	published := time.Now().UTC()
	if t, ok := parsePublishedAt(raw.PublishedAt); ok {
		published = t
	}

	article := &models.ThreatArticle{
		Title:         raw.Title,
		Summary:       raw.Description,
		URL:           raw.URL,
		Source:        sourceName(raw),
		Category:      analysis.Category,
		Severity:      analysis.Severity,
		SeverityScore: analysis.SeverityScore,
		Confidence:    analysis.Confidence,
		CVE:           analysis.CVE,
		PublishedDate: published,
	}

	if analysis.CVE != "" {
		if score, err := p.cvss.Score(ctx, analysis.CVE); err != nil {
			log.Warn().Err(err).Str("cve", analysis.CVE).Msg("CVSS lookup failed")
		} else {
			article.CVSSScore = score
		}
	}

	created, err := p.store.SaveArticle(ctx, article)
	if err != nil {
		return false, err
	}

	if created {
		p.recordEnrichments(ctx, raw, analysis, published)
	}

	if err := p.cache.MarkProcessed(ctx, hash, p.cfg.CacheTTL); err != nil {
		log.Warn().Err(err).Str("url", raw.URL).Msg("Failed to mark article processed")
	}

	return created, nil
}

func (p *Processor) recordEnrichments(ctx context.Context, raw RawArticle, analysis Analysis, seenAt time.Time) {
	log := logger.Get()

	for _, actor := range analysis.Actors {
		desc := fmt.Sprintf("Threat actor mentioned in relation to %q", raw.Title)
		if err := p.store.RecordActorSighting(ctx, actor, desc, seenAt); err != nil {
			log.Error().Err(err).Str("actor", actor).Msg("Failed to record actor sighting")
		}
	}

	iocs := intel.ExtractIOCs(raw.Title + " " + raw.Description)
	if iocs.Empty() {
		return
	}

	typed := map[string][]string{
		models.IndicatorIP:     iocs.IPAddresses,
		models.IndicatorURL:    iocs.URLs,
		models.IndicatorHash:   iocs.Hashes,
		models.IndicatorEmail:  iocs.Emails,
		models.IndicatorDomain: iocs.Domains,
	}
	for iocType, values := range typed {
		for _, value := range values {
			ioc := models.Indicator{
				Type:       iocType,
				Value:      value,
				Confidence: analysis.Confidence,
				Context:    "Extracted from: " + raw.Title,
				FirstSeen:  seenAt,
				LastSeen:   seenAt,
			}
			if err := p.store.RecordIndicator(ctx, ioc); err != nil {
				log.Error().Err(err).Str("value", value).Msg("Failed to record indicator")
			}
		}
	}
}

func parsePublishedAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func sourceName(raw RawArticle) string {
	if raw.Source.Name == "" {
		return "Unknown"
	}
	return raw.Source.Name
}
