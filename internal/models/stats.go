package models

// ThreatStats summarizes the article corpus.
type ThreatStats struct {
	TotalArticles        int64            `json:"total_articles"`
	SeverityDistribution map[string]int64 `json:"severity_distribution"`
	CategoryDistribution map[string]int64 `json:"category_distribution"`
	DailyTrend           map[string]int64 `json:"daily_trend"`
	TotalActors          int64            `json:"total_actors"`
	TotalIndicators      int64            `json:"total_indicators"`
	CriticalThreats      int64            `json:"critical_threats"`
	HighThreats          int64            `json:"high_threats"`
}

// PhishingStats summarizes detected phishing sites.
type PhishingStats struct {
	TotalSites        int64            `json:"total_sites"`
	ActiveSites       int64            `json:"active_sites"`
	TakenDownSites    int64            `json:"taken_down_sites"`
	AverageSimilarity float64          `json:"average_similarity"`
	ByTargetPage      map[string]int64 `json:"by_target_page"`
	ByCountry         map[string]int64 `json:"by_country"`
	ByStatus          map[string]int64 `json:"by_status"`
	DetectionTrend    map[string]int64 `json:"detection_trend"`
}

// DashboardStats is the combined view served to the dashboard landing screen.
type DashboardStats struct {
	Threats  ThreatStats      `json:"threats"`
	Phishing PhishingSnapshot `json:"phishing"`
}

// PhishingSnapshot is the condensed phishing block of the dashboard.
type PhishingSnapshot struct {
	TotalSites       int64             `json:"total_sites"`
	ActiveSites      int64             `json:"active_sites"`
	TakenDownSites   int64             `json:"taken_down_sites"`
	RecentDetections []RecentDetection `json:"recent_detections"`
}

// RecentDetection is one row of the dashboard's latest-detections list.
type RecentDetection struct {
	URL             string  `json:"url"`
	SimilarityScore float64 `json:"similarity_score"`
	DetectedDate    string  `json:"detected_date"`
	Status          string  `json:"status"`
}
