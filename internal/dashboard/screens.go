package dashboard

import (
	"context"
	"time"

	"github.com/ctiworks/threatboard/internal/filter"
	"github.com/ctiworks/threatboard/internal/models"
)

// Screen is one dashboard view: it fetches its records once, keeps its own
// copy, and answers filter and pagination queries locally. All screens
// share the one filter implementation and differ only in configuration.
type Screen[T any] struct {
	Name        string
	View        filter.View[T]
	DefaultSort filter.Sort

	fetch   func(ctx context.Context) ([]T, error)
	records []T
	loaded  bool
}

// Load fetches the screen's data if it has not been loaded yet.
func (s *Screen[T]) Load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh refetches the screen's data unconditionally.
func (s *Screen[T]) Refresh(ctx context.Context) error {
	records, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.records = records
	s.loaded = true
	return nil
}

// Apply filters, sorts and paginates the loaded records. The screen's
// default sort is used when sort is the zero value.
func (s *Screen[T]) Apply(c filter.Criteria, sort filter.Sort, page, pageSize int) ([]T, int) {
	if sort == (filter.Sort{}) {
		sort = s.DefaultSort
	}
	return filter.Apply(s.records, s.View, c, sort, page, pageSize)
}

// Len reports how many records are loaded, before filtering.
func (s *Screen[T]) Len() int {
	return len(s.records)
}

func articleView() filter.View[models.ThreatArticle] {
	return filter.View[models.ThreatArticle]{
		Title:    func(a models.ThreatArticle) string { return a.Title },
		URL:      func(a models.ThreatArticle) string { return a.URL },
		Summary:  func(a models.ThreatArticle) string { return a.Summary },
		Category: func(a models.ThreatArticle) string { return a.Category },
		Severity: func(a models.ThreatArticle) string { return a.Severity },
		Tag:      func(a models.ThreatArticle) string { return a.CVE },
		Score:    func(a models.ThreatArticle) float64 { return a.SeverityScore },
		Time: func(a models.ThreatArticle) (time.Time, bool) {
			return a.PublishedDate, !a.PublishedDate.IsZero()
		},
	}
}

// NewsScreen lists articles newest first with only text filtering.
func NewsScreen(c *Client) *Screen[models.ThreatArticle] {
	view := articleView()
	view.Category = nil
	view.Severity = nil
	view.Tag = nil
	return &Screen[models.ThreatArticle]{
		Name:        "news",
		View:        view,
		DefaultSort: filter.Sort{Field: filter.FieldTime},
		fetch:       c.AllThreats,
	}
}

// ThreatScreen filters the full article corpus by category, severity, CVE
// tag, text and time window.
func ThreatScreen(c *Client) *Screen[models.ThreatArticle] {
	return &Screen[models.ThreatArticle]{
		Name:        "threats",
		View:        articleView(),
		DefaultSort: filter.Sort{Field: filter.FieldTime},
		fetch:       c.AllThreats,
	}
}

// PhishingScreen filters detected sites by target page, status and
// similarity.
func PhishingScreen(c *Client) *Screen[models.PhishingSite] {
	return &Screen[models.PhishingSite]{
		Name: "phishing",
		View: filter.View[models.PhishingSite]{
			Title:    func(s models.PhishingSite) string { return s.Domain },
			URL:      func(s models.PhishingSite) string { return s.URL },
			Category: func(s models.PhishingSite) string { return s.TargetPage },
			Tag:      func(s models.PhishingSite) string { return s.Status },
			Score:    func(s models.PhishingSite) float64 { return s.SimilarityScore },
			Time: func(s models.PhishingSite) (time.Time, bool) {
				return s.FirstDetected, !s.FirstDetected.IsZero()
			},
		},
		DefaultSort: filter.Sort{Field: filter.FieldScore},
		fetch:       c.AllPhishingSites,
	}
}

// IndicatorScreen filters IOCs by type, confidence and last-seen window.
func IndicatorScreen(c *Client) *Screen[models.Indicator] {
	return &Screen[models.Indicator]{
		Name: "indicators",
		View: filter.View[models.Indicator]{
			Title:    func(i models.Indicator) string { return i.Value },
			Summary:  func(i models.Indicator) string { return i.Context },
			Category: func(i models.Indicator) string { return i.Type },
			Score:    func(i models.Indicator) float64 { return i.Confidence },
			Time: func(i models.Indicator) (time.Time, bool) {
				return i.LastSeen, !i.LastSeen.IsZero()
			},
		},
		DefaultSort: filter.Sort{Field: filter.FieldTime},
		fetch:       c.Indicators,
	}
}
