package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctiworks/threatboard/internal/models"
	"gorm.io/gorm"
)

// SiteFilters narrows a phishing-sites listing.
type SiteFilters struct {
	Status        string
	TargetPage    string
	MinSimilarity *float64
	Days          int
	Search        string
	SortBy        string
	SortOrder     string
}

// Allowed sort columns; anything else falls back to first_detected.
var siteSortColumns = map[string]string{
	"first_detected":   "first_detected",
	"last_checked":     "last_checked",
	"similarity_score": "similarity_score",
	"url":              "url",
	"domain":           "domain",
	"status":           "status",
}

// ListSites returns one page of phishing sites matching f plus the total.
func (s *Store) ListSites(ctx context.Context, f SiteFilters, page, pageSize int) (int64, []models.PhishingSite, error) {
	q := s.db.WithContext(ctx).Model(&models.PhishingSite{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TargetPage != "" {
		q = q.Where("target_page = ?", f.TargetPage)
	}
	if f.MinSimilarity != nil {
		q = q.Where("similarity_score >= ?", *f.MinSimilarity)
	}
	if f.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -f.Days)
		q = q.Where("first_detected >= ?", cutoff)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("url LIKE ? OR domain LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count phishing sites: %w", err)
	}

	column, ok := siteSortColumns[f.SortBy]
	if !ok {
		column = "first_detected"
	}
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}

	if page < 1 {
		page = 1
	}
	var sites []models.PhishingSite
	err := q.Order(column + " " + direction).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sites).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list phishing sites: %w", err)
	}

	return total, sites, nil
}

// GetSite fetches one phishing site by id.
func (s *Store) GetSite(ctx context.Context, id string) (*models.PhishingSite, error) {
	var site models.PhishingSite
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch site %s: %w", id, err)
	}
	return &site, nil
}

// SiteByURL fetches one phishing site by URL.
func (s *Store) SiteByURL(ctx context.Context, url string) (*models.PhishingSite, error) {
	var site models.PhishingSite
	err := s.db.WithContext(ctx).Where("url = ?", url).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch site by url: %w", err)
	}
	return &site, nil
}

// SaveSite inserts a newly detected phishing site.
func (s *Store) SaveSite(ctx context.Context, site *models.PhishingSite) error {
	now := time.Now().UTC()
	if site.FirstDetected.IsZero() {
		site.FirstDetected = now
	}
	if site.LastChecked.IsZero() {
		site.LastChecked = now
	}
	if err := s.db.WithContext(ctx).Create(site).Error; err != nil {
		return fmt.Errorf("failed to save site %s: %w", site.URL, err)
	}
	return nil
}

// TouchSite updates last_checked on an already-known site.
func (s *Store) TouchSite(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&models.PhishingSite{}).
		Where("id = ?", id).
		Update("last_checked", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to touch site %s: %w", id, err)
	}
	return nil
}

// UpdateSite applies the mutable fields of upd to the site and returns the
// updated record. Setting status to taken-down stamps taken_down_date.
func (s *Store) UpdateSite(ctx context.Context, id string, upd models.SiteUpdate) (*models.PhishingSite, error) {
	site, err := s.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if upd.Status != nil {
		site.Status = *upd.Status
		if *upd.Status == models.SiteStatusTakenDown {
			site.TakenDownDate = &now
		}
	}
	if upd.IsReported != nil {
		site.IsReported = *upd.IsReported
	}
	if upd.Blocked != nil {
		site.Blocked = *upd.Blocked
	}
	if upd.Notes != nil {
		site.Notes = *upd.Notes
	}
	site.LastChecked = now

	if err := s.db.WithContext(ctx).Save(site).Error; err != nil {
		return nil, fmt.Errorf("failed to update site %s: %w", id, err)
	}
	return site, nil
}

// ReportSite marks the site reported and stores the report details.
func (s *Store) ReportSite(ctx context.Context, id string, details models.JSONMap) (*models.PhishingSite, error) {
	site, err := s.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}

	site.IsReported = true
	site.ReportDetails = details
	site.LastChecked = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(site).Error; err != nil {
		return nil, fmt.Errorf("failed to report site %s: %w", id, err)
	}
	return site, nil
}

// PhishingStats aggregates the detected sites for the stats endpoint.
func (s *Store) PhishingStats(ctx context.Context) (models.PhishingStats, error) {
	db := s.db.WithContext(ctx)
	stats := models.PhishingStats{}

	if err := db.Model(&models.PhishingSite{}).Count(&stats.TotalSites).Error; err != nil {
		return stats, fmt.Errorf("failed to count sites: %w", err)
	}
	err := db.Model(&models.PhishingSite{}).
		Where("status = ?", models.SiteStatusActive).
		Count(&stats.ActiveSites).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count active sites: %w", err)
	}
	err = db.Model(&models.PhishingSite{}).
		Where("status = ?", models.SiteStatusTakenDown).
		Count(&stats.TakenDownSites).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count taken-down sites: %w", err)
	}

	var avg *float64
	err = db.Model(&models.PhishingSite{}).
		Select("AVG(similarity_score)").
		Scan(&avg).Error
	if err != nil {
		return stats, fmt.Errorf("failed to average similarity: %w", err)
	}
	if avg != nil {
		stats.AverageSimilarity = *avg
	}

	var byPage []countRow
	err = db.Model(&models.PhishingSite{}).
		Select("target_page AS key, COUNT(*) AS count").
		Group("target_page").
		Scan(&byPage).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate target pages: %w", err)
	}
	stats.ByTargetPage = rowsToMap(byPage)

	var byCountry []countRow
	err = db.Model(&models.PhishingSite{}).
		Select("country_code AS key, COUNT(*) AS count").
		Group("country_code").
		Scan(&byCountry).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate countries: %w", err)
	}
	stats.ByCountry = rowsToMap(byCountry)

	var byStatus []countRow
	err = db.Model(&models.PhishingSite{}).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate statuses: %w", err)
	}
	stats.ByStatus = rowsToMap(byStatus)

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	var trend []countRow
	err = db.Model(&models.PhishingSite{}).
		Select("date(first_detected) AS key, COUNT(*) AS count").
		Where("first_detected >= ?", cutoff).
		Group("date(first_detected)").
		Scan(&trend).Error
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate detection trend: %w", err)
	}
	stats.DetectionTrend = rowsToMap(trend)

	return stats, nil
}

// RecentDetections returns the newest phishing detections for the combined
// dashboard.
func (s *Store) RecentDetections(ctx context.Context, limit int) ([]models.PhishingSite, error) {
	var sites []models.PhishingSite
	err := s.db.WithContext(ctx).
		Order("first_detected DESC").
		Limit(limit).
		Find(&sites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent detections: %w", err)
	}
	return sites, nil
}
