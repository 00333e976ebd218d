// Package dashboard is the typed client side of the service: an HTTP
// client for every endpoint, screen configurations that filter fetched
// data locally, and a scan-progress poller.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ctiworks/threatboard/internal/models"
)

// Client talks to the threatboard HTTP API.
type Client struct {
	http *resty.Client
	base string
}

func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &Client{
		http: client,
		base: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	return decode(path, resp, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(c.base + path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	return decode(path, resp, out)
}

func decode(path string, resp *resty.Response, out interface{}) error {
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode(), resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// ErrNotFound is returned for any 404 from the API.
var ErrNotFound = errors.New("not found")

// Threats fetches one page of threat articles.
func (c *Client) Threats(ctx context.Context, page, pageSize int) (models.ThreatPage, error) {
	var out models.ThreatPage
	err := c.get(ctx, "/api/threats", map[string]string{
		"page":      fmt.Sprintf("%d", page),
		"page_size": fmt.Sprintf("%d", pageSize),
	}, &out)
	return out, err
}

// AllThreats pages through the API until the full corpus is local.
func (c *Client) AllThreats(ctx context.Context) ([]models.ThreatArticle, error) {
	var all []models.ThreatArticle
	for page := 1; ; page++ {
		batch, err := c.Threats(ctx, page, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, batch.Results...)
		if len(all) >= int(batch.Total) || len(batch.Results) == 0 {
			return all, nil
		}
	}
}

func (c *Client) RecentThreats(ctx context.Context, limit int) ([]models.ThreatArticle, error) {
	var out []models.ThreatArticle
	err := c.get(ctx, "/api/threats/recent", map[string]string{"limit": fmt.Sprintf("%d", limit)}, &out)
	return out, err
}

func (c *Client) SevereThreats(ctx context.Context, limit int) ([]models.ThreatArticle, error) {
	var out []models.ThreatArticle
	err := c.get(ctx, "/api/threats/severe", map[string]string{"limit": fmt.Sprintf("%d", limit)}, &out)
	return out, err
}

func (c *Client) ThreatsByCVE(ctx context.Context, cveID string) ([]models.ThreatArticle, error) {
	var out []models.ThreatArticle
	err := c.get(ctx, "/api/threats/cve/"+cveID, nil, &out)
	return out, err
}

// TriggerFetch starts a background ingest cycle on the server.
func (c *Client) TriggerFetch(ctx context.Context) error {
	return c.post(ctx, "/api/threats/fetch", nil, nil)
}

func (c *Client) Actors(ctx context.Context) ([]models.ThreatActor, error) {
	var out []models.ThreatActor
	err := c.get(ctx, "/api/actors", nil, &out)
	return out, err
}

func (c *Client) ActorByName(ctx context.Context, name string) (models.ThreatActor, error) {
	var out models.ThreatActor
	err := c.get(ctx, "/api/actors/"+name, nil, &out)
	return out, err
}

func (c *Client) Indicators(ctx context.Context) ([]models.Indicator, error) {
	var out []models.Indicator
	err := c.get(ctx, "/api/indicators", nil, &out)
	return out, err
}

func (c *Client) IndicatorsByType(ctx context.Context, iocType string) ([]models.Indicator, error) {
	var out []models.Indicator
	err := c.get(ctx, "/api/indicators/type/"+iocType, nil, &out)
	return out, err
}

func (c *Client) HighConfidenceIndicators(ctx context.Context, threshold float64) ([]models.Indicator, error) {
	var out []models.Indicator
	err := c.get(ctx, "/api/indicators/high-confidence", map[string]string{
		"threshold": fmt.Sprintf("%g", threshold),
	}, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (models.ThreatStats, error) {
	var out models.ThreatStats
	err := c.get(ctx, "/api/stats", nil, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	var out models.DashboardStats
	err := c.get(ctx, "/api/dashboard", nil, &out)
	return out, err
}

type sitePage struct {
	Total   int64                 `json:"total"`
	Results []models.PhishingSite `json:"results"`
}

// AllPhishingSites pages through the phishing site list.
func (c *Client) AllPhishingSites(ctx context.Context) ([]models.PhishingSite, error) {
	var all []models.PhishingSite
	for page := 1; ; page++ {
		var batch sitePage
		err := c.get(ctx, "/api/phishing/sites", map[string]string{
			"page":      fmt.Sprintf("%d", page),
			"page_size": "100",
		}, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch.Results...)
		if len(all) >= int(batch.Total) || len(batch.Results) == 0 {
			return all, nil
		}
	}
}

func (c *Client) PhishingSite(ctx context.Context, id string) (models.PhishingSite, error) {
	var out models.PhishingSite
	err := c.get(ctx, "/api/phishing/sites/"+id, nil, &out)
	return out, err
}

func (c *Client) UpdatePhishingSite(ctx context.Context, id string, upd models.SiteUpdate) (models.PhishingSite, error) {
	var out models.PhishingSite
	err := c.post(ctx, "/api/phishing/sites/"+id, upd, &out)
	return out, err
}

func (c *Client) ReportPhishingSite(ctx context.Context, id string, details map[string]interface{}) error {
	return c.post(ctx, "/api/phishing/report/"+id, details, nil)
}

func (c *Client) StartScan(ctx context.Context, req models.ScanRequest) (models.ScanProgress, error) {
	var out models.ScanProgress
	err := c.post(ctx, "/api/phishing/scan", req, &out)
	return out, err
}

func (c *Client) ScanStatus(ctx context.Context, scanID string) (models.ScanProgress, error) {
	var out models.ScanProgress
	err := c.get(ctx, "/api/phishing/scan/"+scanID, nil, &out)
	return out, err
}

func (c *Client) CheckURL(ctx context.Context, rawURL, targetPage string) (models.PhishingSite, error) {
	var out models.PhishingSite
	err := c.post(ctx, "/api/phishing/check", map[string]string{
		"url":         rawURL,
		"target_page": targetPage,
	}, &out)
	return out, err
}

func (c *Client) PhishingStats(ctx context.Context) (models.PhishingStats, error) {
	var out models.PhishingStats
	err := c.get(ctx, "/api/phishing/stats", nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/api/v1/health", nil, nil)
}
