package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctiworks/threatboard/internal/models"
	"gorm.io/gorm"
)

// ListIndicators returns IOCs seen within the last `days` days, optionally
// restricted to one type.
func (s *Store) ListIndicators(ctx context.Context, typeFilter string, days int) ([]models.Indicator, error) {
	q := s.db.WithContext(ctx).Model(&models.Indicator{})

	if typeFilter != "" {
		q = q.Where("type = ?", typeFilter)
	}
	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		q = q.Where("last_seen >= ?", cutoff)
	}

	var indicators []models.Indicator
	if err := q.Order("last_seen DESC").Find(&indicators).Error; err != nil {
		return nil, fmt.Errorf("failed to list indicators: %w", err)
	}
	return indicators, nil
}

// HighConfidenceIndicators returns IOCs at or above the confidence
// threshold.
func (s *Store) HighConfidenceIndicators(ctx context.Context, threshold float64) ([]models.Indicator, error) {
	var indicators []models.Indicator
	err := s.db.WithContext(ctx).
		Where("confidence >= ?", threshold).
		Order("confidence DESC").
		Find(&indicators).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list high confidence indicators: %w", err)
	}
	return indicators, nil
}

// IndicatorsByType returns every IOC of one type.
func (s *Store) IndicatorsByType(ctx context.Context, iocType string) ([]models.Indicator, error) {
	var indicators []models.Indicator
	err := s.db.WithContext(ctx).
		Where("type = ?", iocType).
		Order("last_seen DESC").
		Find(&indicators).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s indicators: %w", iocType, err)
	}
	return indicators, nil
}

// RecordIndicator creates the IOC if new, otherwise bumps last_seen and
// keeps the higher confidence.
func (s *Store) RecordIndicator(ctx context.Context, ioc models.Indicator) error {
	var existing models.Indicator
	err := s.db.WithContext(ctx).Where("value = ?", ioc.Value).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		if ioc.FirstSeen.IsZero() {
			ioc.FirstSeen = now
		}
		if ioc.LastSeen.IsZero() {
			ioc.LastSeen = now
		}
		if err := s.db.WithContext(ctx).Create(&ioc).Error; err != nil {
			return fmt.Errorf("failed to create indicator %s: %w", ioc.Value, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up indicator %s: %w", ioc.Value, err)
	}

	existing.LastSeen = time.Now().UTC()
	if ioc.Confidence > existing.Confidence {
		existing.Confidence = ioc.Confidence
	}
	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update indicator %s: %w", ioc.Value, err)
	}
	return nil
}
