package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctiworks/threatboard/internal/models"
	"gorm.io/gorm"
)

// ListActors returns every tracked threat actor.
func (s *Store) ListActors(ctx context.Context) ([]models.ThreatActor, error) {
	var actors []models.ThreatActor
	if err := s.db.WithContext(ctx).Order("name").Find(&actors).Error; err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	return actors, nil
}

// RecentActors returns the most recently observed actors.
func (s *Store) RecentActors(ctx context.Context, limit int) ([]models.ThreatActor, error) {
	var actors []models.ThreatActor
	err := s.db.WithContext(ctx).
		Order("last_seen DESC").
		Limit(limit).
		Find(&actors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent actors: %w", err)
	}
	return actors, nil
}

// ActorByName fetches one actor by exact name.
func (s *Store) ActorByName(ctx context.Context, name string) (*models.ThreatActor, error) {
	var actor models.ThreatActor
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&actor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch actor %s: %w", name, err)
	}
	return &actor, nil
}

// RecordActorSighting creates the actor if unknown, or advances last_seen
// when the sighting is newer than what is stored.
func (s *Store) RecordActorSighting(ctx context.Context, name, description string, seenAt time.Time) error {
	var actor models.ThreatActor
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&actor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		actor = models.ThreatActor{
			Name:           name,
			Description:    description,
			Motivation:     "Unknown",
			Sophistication: "Unknown",
			FirstSeen:      &seenAt,
			LastSeen:       &seenAt,
		}
		if err := s.db.WithContext(ctx).Create(&actor).Error; err != nil {
			return fmt.Errorf("failed to create actor %s: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up actor %s: %w", name, err)
	}

	if actor.LastSeen == nil || seenAt.After(*actor.LastSeen) {
		actor.LastSeen = &seenAt
		if err := s.db.WithContext(ctx).Save(&actor).Error; err != nil {
			return fmt.Errorf("failed to update actor %s: %w", name, err)
		}
	}
	return nil
}
