package models

import "time"

// ThreatActor is a tracked adversary group or campaign operator.
type ThreatActor struct {
	ID             uint       `json:"-" gorm:"primaryKey"`
	Name           string     `json:"name" gorm:"uniqueIndex"`
	Description    string     `json:"description"`
	Aliases        StringList `json:"aliases" gorm:"type:text"`
	Motivation     string     `json:"motivation"`
	Sophistication string     `json:"sophistication"`
	TTPs           StringList `json:"ttps,omitempty" gorm:"type:text"`
	FirstSeen      *time.Time `json:"first_seen"`
	LastSeen       *time.Time `json:"last_seen" gorm:"index"`
	CreatedAt      time.Time  `json:"-"`
	UpdatedAt      time.Time  `json:"-"`
}
