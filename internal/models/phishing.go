package models

import "time"

// Phishing site lifecycle statuses.
const (
	SiteStatusActive     = "active"
	SiteStatusMonitoring = "monitoring"
	SiteStatusTakenDown  = "taken-down"
)

// Scan statuses. Completed and Error are terminal.
const (
	ScanStatusStarting  = "starting"
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusError     = "error"
)

// PhishingSite is a suspected clone of the protected site.
type PhishingSite struct {
	ID         string `json:"id" gorm:"primaryKey"`
	URL        string `json:"url" gorm:"uniqueIndex"`
	Domain     string `json:"domain" gorm:"index"`
	TargetPage string `json:"target_page" gorm:"index"`
	Status     string `json:"status" gorm:"index"`

	// Technical information
	IPAddress        string     `json:"ip_address,omitempty"`
	CountryCode      string     `json:"country_code,omitempty"`
	HostingProvider  string     `json:"hosting_provider,omitempty"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`

	// Analysis metrics
	SimilarityScore   float64 `json:"similarity_score"`
	URLSimilarity     float64 `json:"url_similarity"`
	ContentSimilarity float64 `json:"content_similarity"`
	MLConfidence      float64 `json:"ml_confidence"`

	FeaturesDetected StringList `json:"features_detected" gorm:"type:text"`
	HasLoginForm     bool       `json:"has_login_form"`
	HasTargetLogo    bool       `json:"has_target_logo"`
	FormTargets      StringList `json:"form_targets,omitempty" gorm:"type:text"`

	// Evidence
	SnapshotKey string `json:"snapshot_key,omitempty"`

	// Actions and mitigations
	IsReported    bool       `json:"is_reported"`
	ReportDetails JSONMap    `json:"report_details,omitempty" gorm:"type:text"`
	Blocked       bool       `json:"blocked"`
	Notes         string     `json:"notes,omitempty"`
	TakenDownDate *time.Time `json:"taken_down_date,omitempty"`

	FirstDetected time.Time `json:"first_detected" gorm:"index"`
	LastChecked   time.Time `json:"last_checked"`
}

// SiteUpdate is the mutable subset of a phishing site record.
type SiteUpdate struct {
	Status     *string `json:"status" validate:"omitempty,oneof=active monitoring taken-down"`
	IsReported *bool   `json:"is_reported"`
	Blocked    *bool   `json:"blocked"`
	Notes      *string `json:"notes"`
}

// ScanRequest starts a phishing sweep.
type ScanRequest struct {
	URLs               []string `json:"urls" validate:"omitempty,dive,url"`
	CheckTyposquatting *bool    `json:"check_typosquatting"`
	Depth              int      `json:"depth" validate:"omitempty,min=1,max=3"`
}

// ScanProgress is a point-in-time snapshot of a running scan.
type ScanProgress struct {
	ScanID              string     `json:"scan_id"`
	Status              string     `json:"status"`
	Progress            float64    `json:"progress"`
	SitesFound          int        `json:"sites_found"`
	StartedAt           time.Time  `json:"started_at"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// Terminal reports whether the scan has reached a final state.
func (p ScanProgress) Terminal() bool {
	return p.Status == ScanStatusCompleted || p.Status == ScanStatusError
}
