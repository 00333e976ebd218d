package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/middleware"
	"github.com/ctiworks/threatboard/internal/models"
	"github.com/ctiworks/threatboard/internal/store"
)

// ListPhishingSites handles GET /api/phishing/sites
func (h *Handlers) ListPhishingSites(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	filters := store.SiteFilters{
		Status:     queryFilter(c, "status"),
		TargetPage: queryFilter(c, "target_page"),
		Days:       queryInt(c, "days", 0),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("min_similarity"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filters.MinSimilarity = &v
		}
	}

	total, sites, err := h.store.ListSites(c.Context(), filters, page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing phishing sites")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list phishing sites",
		})
	}

	return c.JSON(fiber.Map{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   sites,
	})
}

// GetPhishingSite handles GET /api/phishing/sites/:id
func (h *Handlers) GetPhishingSite(c *fiber.Ctx) error {
	id := c.Params("id")

	site, err := h.store.GetSite(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Phishing site not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("id", id).Msg("Error getting phishing site")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get phishing site",
		})
	}
	return c.JSON(site)
}

// UpdatePhishingSite handles POST /api/phishing/sites/:id
func (h *Handlers) UpdatePhishingSite(c *fiber.Ctx) error {
	id := c.Params("id")

	var upd models.SiteUpdate
	if !middleware.ParseAndValidate(c, h.validator, &upd) {
		return nil
	}

	site, err := h.store.UpdateSite(c.Context(), id, upd)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Phishing site not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("id", id).Msg("Error updating phishing site")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update phishing site",
		})
	}

	logger.Get().Info().Str("id", id).Msg("Updated phishing site")
	return c.JSON(site)
}

// ReportPhishingSite handles POST /api/phishing/report/:id
func (h *Handlers) ReportPhishingSite(c *fiber.Ctx) error {
	id := c.Params("id")

	details := models.JSONMap{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&details); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	site, err := h.store.ReportSite(c.Context(), id, details)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Phishing site not found",
		})
	}
	if err != nil {
		logger.Get().Error().Err(err).Str("id", id).Msg("Error reporting phishing site")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to report phishing site",
		})
	}

	logger.Get().Info().Str("id", id).Str("url", site.URL).Msg("Phishing site reported")
	return c.JSON(fiber.Map{
		"status": "reported",
		"site":   site,
	})
}

// StartScan handles POST /api/phishing/scan
func (h *Handlers) StartScan(c *fiber.Ctx) error {
	var req models.ScanRequest
	if !middleware.ParseAndValidate(c, h.validator, &req) {
		return nil
	}

	// The sweep outlives the request, so it must not inherit its context.
	progress := h.scans.Start(context.Background(), req)

	logger.Get().Info().
		Str("scan_id", progress.ScanID).
		Int("urls", len(req.URLs)).
		Msg("Phishing scan started")

	return c.Status(fiber.StatusAccepted).JSON(progress)
}

// GetScanStatus handles GET /api/phishing/scan/:scan_id
func (h *Handlers) GetScanStatus(c *fiber.Ctx) error {
	scanID := c.Params("scan_id")

	progress, ok := h.scans.Get(scanID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scan not found",
		})
	}
	return c.JSON(progress)
}

type checkRequest struct {
	URL        string `json:"url" validate:"required,url"`
	TargetPage string `json:"target_page"`
}

// CheckURL handles POST /api/phishing/check, a synchronous single-URL
// analysis that does not persist anything.
func (h *Handlers) CheckURL(c *fiber.Ctx) error {
	var req checkRequest
	if !middleware.ParseAndValidate(c, h.validator, &req) {
		return nil
	}

	result, err := h.checker.CheckSite(c.Context(), req.URL, req.TargetPage)
	if err != nil {
		logger.Get().Error().Err(err).Str("url", req.URL).Msg("Error checking URL")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check URL",
		})
	}
	return c.JSON(result.Site)
}

// GetPhishingStats handles GET /api/phishing/stats
func (h *Handlers) GetPhishingStats(c *fiber.Ctx) error {
	stats, err := h.store.PhishingStats(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error computing phishing stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute phishing stats",
		})
	}
	return c.JSON(stats)
}
