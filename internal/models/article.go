package models

import "time"

// Severity levels used across articles and screens.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// ThreatArticle is an analyzed cybersecurity news article.
type ThreatArticle struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	Title   string `json:"title" gorm:"index"`
	Summary string `json:"summary"`
	Content string `json:"-"`
	URL     string `json:"url" gorm:"uniqueIndex"`
	Source  string `json:"source" gorm:"index"`

	Category      string  `json:"category" gorm:"index"`
	Severity      string  `json:"severity" gorm:"index"`
	SeverityScore float64 `json:"severity_score"` // 0-10
	Confidence    float64 `json:"confidence"`     // 0-1

	CVE             string     `json:"cve,omitempty" gorm:"index"`
	CVSSScore       *float64   `json:"cvss_score,omitempty"`
	AffectedSystems StringList `json:"affected_systems,omitempty" gorm:"type:text"`
	MitreTactics    StringList `json:"mitre_tactics,omitempty" gorm:"type:text"`
	MitreTechniques StringList `json:"mitre_techniques,omitempty" gorm:"type:text"`

	PublishedDate  time.Time `json:"published_date" gorm:"index"`
	DiscoveredDate time.Time `json:"discovered_date"`
	UpdatedAt      time.Time `json:"-"`
}

// ThreatPage is a paginated threats response.
type ThreatPage struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Results  []ThreatArticle `json:"results"`
}
