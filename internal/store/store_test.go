package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctiworks/threatboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func article(url, category, severity string, score float64, published time.Time) *models.ThreatArticle {
	return &models.ThreatArticle{
		Title:         "Article about " + url,
		Summary:       "summary",
		URL:           url,
		Source:        "UnitTest Wire",
		Category:      category,
		Severity:      severity,
		SeverityScore: score,
		Confidence:    0.8,
		PublishedDate: published,
	}
}

func TestSaveArticleSkipsDuplicateURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.SaveArticle(ctx, article("https://example.com/a", "Malware", "High", 7, time.Now().UTC()))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.SaveArticle(ctx, article("https://example.com/a", "Malware", "High", 7, time.Now().UTC()))
	require.NoError(t, err)
	assert.False(t, created)

	total, _, err := s.ListThreats(ctx, ThreatFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListThreatsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []*models.ThreatArticle{
		article("https://example.com/1", "Ransomware", "Critical", 9.1, now.AddDate(0, 0, -1)),
		article("https://example.com/2", "Ransomware", "Low", 2.0, now.AddDate(0, 0, -2)),
		article("https://example.com/3", "Phishing", "Critical", 8.0, now.AddDate(0, 0, -20)),
		article("https://example.com/4", "Malware", "High", 7.5, now.AddDate(0, 0, -3)),
	}
	seed[3].CVE = "CVE-2024-1111"
	for _, a := range seed {
		_, err := s.SaveArticle(ctx, a)
		require.NoError(t, err)
	}

	total, got, err := s.ListThreats(ctx, ThreatFilters{Category: "ransomware"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	// Newest first.
	assert.Equal(t, "https://example.com/1", got[0].URL)

	total, _, err = s.ListThreats(ctx, ThreatFilters{Severity: "Critical", Days: 7}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	minScore := 7.0
	total, _, err = s.ListThreats(ctx, ThreatFilters{MinSeverityScore: &minScore}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	total, got, err = s.ListThreats(ctx, ThreatFilters{CVE: "CVE-2024-1111"}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "https://example.com/4", got[0].URL)

	total, _, err = s.ListThreats(ctx, ThreatFilters{Search: "example.com/3"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total) // search spans title/summary/content, not URL

	total, _, err = s.ListThreats(ctx, ThreatFilters{Search: "Article about"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestListThreatsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 7; i++ {
		_, err := s.SaveArticle(ctx, article(
			"https://example.com/p"+string(rune('a'+i)), "Malware", "Medium", 5,
			now.Add(-time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	total, page1, err := s.ListThreats(ctx, ThreatFilters{}, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Len(t, page1, 3)

	_, page3, err := s.ListThreats(ctx, ThreatFilters{}, 3, 3)
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	_, page9, err := s.ListThreats(ctx, ThreatFilters{}, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, page9)
}

func TestSevereThreatsOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.SaveArticle(ctx, article("https://example.com/low", "Malware", "Low", 2, now))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, article("https://example.com/high", "Malware", "High", 7, now))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, article("https://example.com/crit", "Malware", "Critical", 9.8, now))
	require.NoError(t, err)

	got, err := s.SevereThreats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/crit", got[0].URL)
	assert.Equal(t, "https://example.com/high", got[1].URL)
}

func TestThreatStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.SaveArticle(ctx, article("https://example.com/1", "Ransomware", "Critical", 9, now))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, article("https://example.com/2", "Ransomware", "High", 7, now))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, article("https://example.com/3", "Phishing", "High", 7, now))
	require.NoError(t, err)
	require.NoError(t, s.RecordIndicator(ctx, models.Indicator{Type: models.IndicatorIP, Value: "10.0.0.1", Confidence: 0.9}))

	stats, err := s.ThreatStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalArticles)
	assert.Equal(t, int64(1), stats.CriticalThreats)
	assert.Equal(t, int64(2), stats.HighThreats)
	assert.Equal(t, int64(2), stats.CategoryDistribution["Ransomware"])
	assert.Equal(t, int64(1), stats.TotalIndicators)
	assert.NotEmpty(t, stats.DailyTrend)
}

func TestRecordActorSighting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordActorSighting(ctx, "FIN7", "seen in carding campaign", first))
	require.NoError(t, s.RecordActorSighting(ctx, "FIN7", "seen again", later))
	// Out-of-order sighting must not move last_seen backwards.
	require.NoError(t, s.RecordActorSighting(ctx, "FIN7", "old report", first))

	actor, err := s.ActorByName(ctx, "FIN7")
	require.NoError(t, err)
	require.NotNil(t, actor.FirstSeen)
	require.NotNil(t, actor.LastSeen)
	assert.True(t, actor.FirstSeen.Equal(first))
	assert.True(t, actor.LastSeen.Equal(later))

	_, err = s.ActorByName(ctx, "NoSuchGroup")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordIndicatorUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordIndicator(ctx, models.Indicator{
		Type: models.IndicatorDomain, Value: "bad.example.com", Confidence: 0.4,
	}))
	require.NoError(t, s.RecordIndicator(ctx, models.Indicator{
		Type: models.IndicatorDomain, Value: "bad.example.com", Confidence: 0.9,
	}))

	got, err := s.IndicatorsByType(ctx, models.IndicatorDomain)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Confidence)

	high, err := s.HighConfidenceIndicators(ctx, 0.7)
	require.NoError(t, err)
	assert.Len(t, high, 1)
}

func site(id, url, status string, score float64, detected time.Time) *models.PhishingSite {
	return &models.PhishingSite{
		ID:              id,
		URL:             url,
		Domain:          "clone.example.com",
		TargetPage:      "login",
		Status:          status,
		SimilarityScore: score,
		CountryCode:     "XX",
		FirstDetected:   detected,
		LastChecked:     detected,
	}
}

func TestListSitesFiltersAndSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveSite(ctx, site("ps-1", "http://a.example", models.SiteStatusActive, 90, now.AddDate(0, 0, -1))))
	require.NoError(t, s.SaveSite(ctx, site("ps-2", "http://b.example", models.SiteStatusMonitoring, 55, now.AddDate(0, 0, -10))))
	require.NoError(t, s.SaveSite(ctx, site("ps-3", "http://c.example", models.SiteStatusTakenDown, 75, now.AddDate(0, 0, -40))))

	total, got, err := s.ListSites(ctx, SiteFilters{Status: models.SiteStatusActive}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "ps-1", got[0].ID)

	minSim := 70.0
	total, _, err = s.ListSites(ctx, SiteFilters{MinSimilarity: &minSim}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, _, err = s.ListSites(ctx, SiteFilters{Days: 7}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, got, err = s.ListSites(ctx, SiteFilters{SortBy: "similarity_score", SortOrder: "asc"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "ps-2", got[0].ID)

	// Unknown sort column falls back to first_detected descending.
	_, got, err = s.ListSites(ctx, SiteFilters{SortBy: "1;DROP TABLE"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "ps-1", got[0].ID)
}

func TestUpdateSiteTakenDownStampsDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSite(ctx, site("ps-9", "http://x.example", models.SiteStatusActive, 80, time.Now().UTC())))

	status := models.SiteStatusTakenDown
	notes := "registrar confirmed removal"
	updated, err := s.UpdateSite(ctx, "ps-9", models.SiteUpdate{Status: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.SiteStatusTakenDown, updated.Status)
	assert.NotNil(t, updated.TakenDownDate)
	assert.Equal(t, notes, updated.Notes)

	_, err = s.UpdateSite(ctx, "ps-missing", models.SiteUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportSite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSite(ctx, site("ps-7", "http://y.example", models.SiteStatusActive, 66, time.Now().UTC())))

	reported, err := s.ReportSite(ctx, "ps-7", models.JSONMap{"contact": "abuse@host.example"})
	require.NoError(t, err)
	assert.True(t, reported.IsReported)

	got, err := s.GetSite(ctx, "ps-7")
	require.NoError(t, err)
	assert.Equal(t, "abuse@host.example", got.ReportDetails["contact"])
}

func TestPhishingStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveSite(ctx, site("ps-1", "http://a.example", models.SiteStatusActive, 90, now)))
	require.NoError(t, s.SaveSite(ctx, site("ps-2", "http://b.example", models.SiteStatusActive, 70, now)))
	require.NoError(t, s.SaveSite(ctx, site("ps-3", "http://c.example", models.SiteStatusTakenDown, 50, now)))

	stats, err := s.PhishingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSites)
	assert.Equal(t, int64(2), stats.ActiveSites)
	assert.Equal(t, int64(1), stats.TakenDownSites)
	assert.InDelta(t, 70.0, stats.AverageSimilarity, 0.01)
	assert.Equal(t, int64(3), stats.ByTargetPage["login"])
	assert.Equal(t, int64(2), stats.ByStatus[models.SiteStatusActive])
	assert.NotEmpty(t, stats.DetectionTrend)
}
