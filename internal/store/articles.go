package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctiworks/threatboard/internal/models"
	"gorm.io/gorm"
)

// ThreatFilters narrows a threats listing. Zero values disable a clause.
type ThreatFilters struct {
	Category         string
	Severity         string
	MinSeverityScore *float64
	Days             int
	CVE              string
	Search           string
}

// ListThreats returns one page of articles matching f, newest first, along
// with the total match count.
func (s *Store) ListThreats(ctx context.Context, f ThreatFilters, page, pageSize int) (int64, []models.ThreatArticle, error) {
	q := s.db.WithContext(ctx).Model(&models.ThreatArticle{})

	if f.Category != "" {
		q = q.Where("category = ? COLLATE NOCASE", f.Category)
	}
	if f.Severity != "" {
		q = q.Where("severity = ? COLLATE NOCASE", f.Severity)
	}
	if f.MinSeverityScore != nil {
		q = q.Where("severity_score >= ?", *f.MinSeverityScore)
	}
	if f.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -f.Days)
		q = q.Where("published_date >= ?", cutoff)
	}
	if f.CVE != "" {
		q = q.Where("cve = ?", f.CVE)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR summary LIKE ? OR content LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count threats: %w", err)
	}

	if page < 1 {
		page = 1
	}
	var articles []models.ThreatArticle
	err := q.Order("published_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&articles).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list threats: %w", err)
	}

	return total, articles, nil
}

// RecentThreats returns the latest articles by published date.
func (s *Store) RecentThreats(ctx context.Context, limit int) ([]models.ThreatArticle, error) {
	var articles []models.ThreatArticle
	err := s.db.WithContext(ctx).
		Order("published_date DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent threats: %w", err)
	}
	return articles, nil
}

// SevereThreats returns Critical and High articles ordered by severity
// score, then recency.
func (s *Store) SevereThreats(ctx context.Context, limit int) ([]models.ThreatArticle, error) {
	var articles []models.ThreatArticle
	err := s.db.WithContext(ctx).
		Where("severity IN ?", []string{models.SeverityCritical, models.SeverityHigh}).
		Order("severity_score DESC, published_date DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list severe threats: %w", err)
	}
	return articles, nil
}

// ThreatsByCVE lists every article tagged with the given CVE.
func (s *Store) ThreatsByCVE(ctx context.Context, cveID string) ([]models.ThreatArticle, error) {
	var articles []models.ThreatArticle
	err := s.db.WithContext(ctx).
		Where("cve = ?", cveID).
		Order("published_date DESC").
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list threats for %s: %w", cveID, err)
	}
	return articles, nil
}

// AllArticles returns the whole corpus newest first; it backs the legacy
// /news endpoint.
func (s *Store) AllArticles(ctx context.Context) ([]models.ThreatArticle, error) {
	var articles []models.ThreatArticle
	err := s.db.WithContext(ctx).Order("published_date DESC").Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// SaveArticle inserts an article; articles with an already-known URL are
// skipped and reported via the bool.
func (s *Store) SaveArticle(ctx context.Context, article *models.ThreatArticle) (bool, error) {
	var existing models.ThreatArticle
	err := s.db.WithContext(ctx).Where("url = ?", article.URL).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check for existing article: %w", err)
	}

	if article.DiscoveredDate.IsZero() {
		article.DiscoveredDate = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return false, fmt.Errorf("failed to save article: %w", err)
	}
	return true, nil
}

// ThreatStats aggregates the article corpus for the stats endpoint.
func (s *Store) ThreatStats(ctx context.Context) (models.ThreatStats, error) {
	db := s.db.WithContext(ctx)
	stats := models.ThreatStats{}

	if err := db.Model(&models.ThreatArticle{}).Count(&stats.TotalArticles).Error; err != nil {
		return stats, fmt.Errorf("failed to count articles: %w", err)
	}
	if err := db.Model(&models.ThreatActor{}).Count(&stats.TotalActors).Error; err != nil {
		return stats, fmt.Errorf("failed to count actors: %w", err)
	}
	if err := db.Model(&models.Indicator{}).Count(&stats.TotalIndicators).Error; err != nil {
		return stats, fmt.Errorf("failed to count indicators: %w", err)
	}

	var bySeverity []countRow
	err := db.Model(&models.ThreatArticle{}).
		Select("severity AS key, COUNT(*) AS count").
		Group("severity").
		Scan(&bySeverity).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate severities: %w", err)
	}
	stats.SeverityDistribution = rowsToMap(bySeverity)
	stats.CriticalThreats = stats.SeverityDistribution[models.SeverityCritical]
	stats.HighThreats = stats.SeverityDistribution[models.SeverityHigh]

	var byCategory []countRow
	err = db.Model(&models.ThreatArticle{}).
		Select("category AS key, COUNT(*) AS count").
		Group("category").
		Scan(&byCategory).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	stats.CategoryDistribution = rowsToMap(byCategory)

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	var trend []countRow
	err = db.Model(&models.ThreatArticle{}).
		Select("date(published_date) AS key, COUNT(*) AS count").
		Where("published_date >= ?", cutoff).
		Group("date(published_date)").
		Scan(&trend).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate daily trend: %w", err)
	}
	stats.DailyTrend = rowsToMap(trend)

	return stats, nil
}
