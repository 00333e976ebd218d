package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ctiworks/threatboard/internal/config"
	"github.com/ctiworks/threatboard/internal/ingest"
	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/middleware"
	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/scan"
	"github.com/ctiworks/threatboard/internal/store"
)

type Handlers struct {
	config    *config.Config
	store     *store.Store
	processor *ingest.Processor
	scans     *scan.Manager
	checker   *scan.Checker
	validator *middleware.Validator
}

func NewHandlers(cfg *config.Config, s *store.Store, p *ingest.Processor, m *scan.Manager, checker *scan.Checker) *Handlers {
	return &Handlers{
		config:    cfg,
		store:     s,
		processor: p,
		scans:     m,
		checker:   checker,
		validator: middleware.NewValidator(),
	}
}

// Root handles GET / with a service banner.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "threatboard",
		"status":  "operational",
		"endpoints": []string{
			"/news",
			"/api/threats",
			"/api/actors",
			"/api/indicators",
			"/api/stats",
			"/api/dashboard",
			"/api/phishing/sites",
			"/api/phishing/scan",
			"/api/phishing/stats",
		},
	})
}

// HealthCheck handles the /api/v1/health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// GetNews handles GET /news, the legacy flat article list. It returns a
// bare array of every article, newest first, with no pagination envelope.
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	articles, err := h.store.AllArticles(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting news")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get news",
		})
	}

	if articles == nil {
		articles = []models.ThreatArticle{}
	}
	return c.JSON(articles)
}

// GetThreats handles GET /api/threats
func (h *Handlers) GetThreats(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	filters := store.ThreatFilters{
		Category: queryFilter(c, "category"),
		Severity: queryFilter(c, "severity"),
		Days:     queryInt(c, "days", 0),
		CVE:      c.Query("cve"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("min_severity_score"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filters.MinSeverityScore = &v
		}
	}

	total, articles, err := h.store.ListThreats(c.Context(), filters, page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing threats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list threats",
		})
	}

	return c.JSON(models.ThreatPage{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Results:  articles,
	})
}

// GetRecentThreats handles GET /api/threats/recent
func (h *Handlers) GetRecentThreats(c *fiber.Ctx) error {
	articles, err := h.store.RecentThreats(c.Context(), queryInt(c, "limit", 10))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting recent threats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recent threats",
		})
	}
	return c.JSON(articles)
}

// GetSevereThreats handles GET /api/threats/severe
func (h *Handlers) GetSevereThreats(c *fiber.Ctx) error {
	articles, err := h.store.SevereThreats(c.Context(), queryInt(c, "limit", 10))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting severe threats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get severe threats",
		})
	}
	return c.JSON(articles)
}

// GetThreatsByCVE handles GET /api/threats/cve/:cve_id
func (h *Handlers) GetThreatsByCVE(c *fiber.Ctx) error {
	cveID := c.Params("cve_id")
	if cveID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "CVE ID is required",
		})
	}

	articles, err := h.store.ThreatsByCVE(c.Context(), cveID)
	if err != nil {
		logger.Get().Error().Err(err).Str("cve", cveID).Msg("Error getting threats by CVE")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get threats",
		})
	}
	return c.JSON(articles)
}

// TriggerFetch handles POST|GET /api/threats/fetch. The ingest cycle runs
// in the background, like the feed processor it replaced.
func (h *Handlers) TriggerFetch(c *fiber.Ctx) error {
	log := logger.Get()
	log.Info().Str("ip", c.IP()).Msg("Received threat fetch request")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if _, err := h.processor.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Background ingest failed")
		}
	}()

	return c.JSON(fiber.Map{
		"status":  "started",
		"message": "Threat feed ingest started in the background",
	})
}

// GetActors handles GET /api/actors
func (h *Handlers) GetActors(c *fiber.Ctx) error {
	actors, err := h.store.ListActors(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing actors")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list actors",
		})
	}
	return c.JSON(actors)
}

// GetRecentActors handles GET /api/actors/recent
func (h *Handlers) GetRecentActors(c *fiber.Ctx) error {
	actors, err := h.store.RecentActors(c.Context(), queryInt(c, "limit", 10))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting recent actors")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recent actors",
		})
	}
	return c.JSON(actors)
}

// GetActorByName handles GET /api/actors/:name
func (h *Handlers) GetActorByName(c *fiber.Ctx) error {
	name := c.Params("name")

	actor, err := h.store.ActorByName(c.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Actor not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("name", name).Msg("Error getting actor")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get actor",
		})
	}
	return c.JSON(actor)
}

// GetIndicators handles GET /api/indicators
func (h *Handlers) GetIndicators(c *fiber.Ctx) error {
	iocs, err := h.store.ListIndicators(c.Context(), queryFilter(c, "type"), queryInt(c, "days", 0))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing indicators")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list indicators",
		})
	}
	return c.JSON(iocs)
}

// GetHighConfidenceIndicators handles GET /api/indicators/high-confidence
func (h *Handlers) GetHighConfidenceIndicators(c *fiber.Ctx) error {
	threshold := 0.8
	if raw := c.Query("threshold"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			threshold = v
		}
	}

	iocs, err := h.store.HighConfidenceIndicators(c.Context(), threshold)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting high-confidence indicators")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get indicators",
		})
	}
	return c.JSON(iocs)
}

// GetIndicatorsByType handles GET /api/indicators/type/:ioc_type
func (h *Handlers) GetIndicatorsByType(c *fiber.Ctx) error {
	iocs, err := h.store.IndicatorsByType(c.Context(), c.Params("ioc_type"))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting indicators by type")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get indicators",
		})
	}
	return c.JSON(iocs)
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.ThreatStats(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error computing threat stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}
	return c.JSON(stats)
}

// GetDashboard handles GET /api/dashboard
func (h *Handlers) GetDashboard(c *fiber.Ctx) error {
	threats, err := h.store.ThreatStats(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error computing threat stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute dashboard stats",
		})
	}

	phishing, err := h.store.PhishingStats(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error computing phishing stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute dashboard stats",
		})
	}

	recent, err := h.store.RecentDetections(c.Context(), 5)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error getting recent detections")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute dashboard stats",
		})
	}

	detections := make([]models.RecentDetection, 0, len(recent))
	for _, site := range recent {
		detections = append(detections, models.RecentDetection{
			URL:             site.URL,
			SimilarityScore: site.SimilarityScore,
			DetectedDate:    site.FirstDetected.Format(time.RFC3339),
			Status:          site.Status,
		})
	}

	return c.JSON(models.DashboardStats{
		Threats: threats,
		Phishing: models.PhishingSnapshot{
			TotalSites:       phishing.TotalSites,
			ActiveSites:      phishing.ActiveSites,
			TakenDownSites:   phishing.TakenDownSites,
			RecentDetections: detections,
		},
	})
}

// pagination parses 1-indexed page parameters with the usual caps.
func pagination(c *fiber.Ctx) (page, pageSize int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	pageSize = queryInt(c, "page_size", 20)
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}
	return page, pageSize
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

// queryFilter treats "all" the same as an absent filter.
func queryFilter(c *fiber.Ctx, key string) string {
	v := c.Query(key)
	if v == "all" {
		return ""
	}
	return v
}
