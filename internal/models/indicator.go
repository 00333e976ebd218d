package models

import "time"

// Indicator types as extracted from article content.
const (
	IndicatorIP     = "ip"
	IndicatorDomain = "domain"
	IndicatorURL    = "url"
	IndicatorHash   = "hash"
	IndicatorEmail  = "email"
)

// Indicator is an indicator of compromise (IOC) observed in analyzed content.
type Indicator struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	Type       string    `json:"type" gorm:"index"`
	Value      string    `json:"value" gorm:"uniqueIndex"`
	Confidence float64   `json:"confidence"`
	Context    string    `json:"context"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen" gorm:"index"`
	CreatedAt  time.Time `json:"-"`
}
