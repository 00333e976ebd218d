package scan

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/ctiworks/threatboard/internal/logger"
	"github.com/ctiworks/threatboard/internal/models"
)

const probeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

// Target pages a phishing clone may impersonate.
const (
	PageMain             = "main"
	PageLogin            = "login"
	PageBusinessServices = "business-services"
	PagePayments         = "payments"
)

// Default protected-site fingerprints, matched case-insensitively in page
// text.
var DefaultFingerprints = []string{
	"Abu Dhabi Government Services",
	"Tamm",
	"Smart Abu Dhabi",
	"Digital Government",
}

// Default brand markers used for logo and layout detection.
var DefaultBrandTerms = []string{"tamm", "abu dhabi", "abudhabi"}

// CheckerConfig describes the protected site.
type CheckerConfig struct {
	TargetDomain  string
	TargetBaseURL string
	IPInfoBaseURL string
	BrandTerms    []string
	Fingerprints  []string
}

// Checker probes candidate URLs and scores them against the protected site.
type Checker struct {
	cfg      CheckerConfig
	client   *resty.Client
	analyzer *Analyzer
	lookup   func(host string) ([]string, error)

	mu         sync.Mutex
	targetHTML map[string]string // page name → cached protected-page HTML
}

func NewChecker(cfg CheckerConfig) *Checker {
	brand := cfg.BrandTerms
	if len(brand) == 0 {
		brand = DefaultBrandTerms
	}
	fingerprints := cfg.Fingerprints
	if len(fingerprints) == 0 {
		fingerprints = DefaultFingerprints
	}
	return &Checker{
		cfg: cfg,
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetHeader("User-Agent", probeUserAgent),
		analyzer:   NewAnalyzer(brand, fingerprints),
		lookup:     net.LookupHost,
		targetHTML: make(map[string]string),
	}
}

// targetPageURL maps a page name to its URL on the protected site.
func (c *Checker) targetPageURL(page string) string {
	base := strings.TrimRight(c.cfg.TargetBaseURL, "/")
	switch page {
	case PageLogin:
		return base + "/en/login"
	case PageBusinessServices:
		return base + "/en/business-services"
	case PagePayments:
		return base + "/en/payments"
	default:
		return base + "/"
	}
}

// InferTargetPage guesses which protected page a candidate URL imitates.
func InferTargetPage(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "login"):
		return PageLogin
	case strings.Contains(lower, "business"):
		return PageBusinessServices
	case strings.Contains(lower, "payment"):
		return PagePayments
	default:
		return PageMain
	}
}

type domainInfo struct {
	Domain          string
	IPAddress       string
	CountryCode     string
	HostingProvider string
}

type ipinfoResponse struct {
	Country string `json:"country"`
	Org     string `json:"org"`
}

// domainInfo resolves the candidate host and enriches it with country and
// hosting data from ipinfo. Lookup failures leave the fields empty.
func (c *Checker) domainInfo(ctx context.Context, rawURL string) domainInfo {
	log := logger.Get()

	info := domainInfo{Domain: hostOf(rawURL)}
	if info.Domain == "" {
		return info
	}

	addrs, err := c.lookup(info.Domain)
	if err != nil || len(addrs) == 0 {
		return info
	}
	info.IPAddress = addrs[0]

	resp, err := c.client.R().
		SetContext(ctx).
		Get(strings.TrimRight(c.cfg.IPInfoBaseURL, "/") + "/" + info.IPAddress + "/json")
	if err != nil || resp.StatusCode() != http.StatusOK {
		log.Debug().Str("ip", info.IPAddress).Msg("ipinfo lookup failed")
		return info
	}

	var parsed ipinfoResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err == nil {
		info.CountryCode = parsed.Country
		info.HostingProvider = parsed.Org
	}
	return info
}

// fetchHTML retrieves a page body, tolerating TLS and HTTP errors by
// returning an empty string.
func (c *Checker) fetchHTML(ctx context.Context, rawURL string) string {
	resp, err := c.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return ""
	}
	return string(resp.Body())
}

// targetPageHTML fetches and caches the protected page used for content
// comparison.
func (c *Checker) targetPageHTML(ctx context.Context, page string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if html, ok := c.targetHTML[page]; ok {
		return html
	}
	html := c.fetchHTML(ctx, c.targetPageURL(page))
	c.targetHTML[page] = html
	return html
}

// CheckResult is the full verdict for one candidate URL.
type CheckResult struct {
	Site models.PhishingSite
	HTML string
}

// CheckSite probes a candidate URL and scores it against the protected
// site. The overall score weighs URL similarity at 0.4 and content
// similarity at 0.6.
func (c *Checker) CheckSite(ctx context.Context, rawURL, targetPage string) (CheckResult, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return CheckResult{}, err
	}
	if targetPage == "" {
		targetPage = InferTargetPage(rawURL)
	}

	info := c.domainInfo(ctx, rawURL)
	urlSim := URLSimilarity(rawURL, c.cfg.TargetDomain)

	html := c.fetchHTML(ctx, rawURL)
	content := c.analyzer.Analyze(html, c.targetPageHTML(ctx, targetPage))

	score := urlSim*0.4 + content.Similarity*0.6
	confidence := clamp(score/100*1.2, 0, 1)

	status := models.SiteStatusMonitoring
	if score > 65 {
		status = models.SiteStatusActive
	}

	now := time.Now().UTC()
	site := models.PhishingSite{
		ID:                "ps-" + uuid.New().String()[:8],
		URL:               rawURL,
		Domain:            info.Domain,
		TargetPage:        targetPage,
		Status:            status,
		IPAddress:         info.IPAddress,
		CountryCode:       info.CountryCode,
		HostingProvider:   info.HostingProvider,
		SimilarityScore:   score,
		URLSimilarity:     urlSim,
		ContentSimilarity: content.Similarity,
		MLConfidence:      confidence,
		FeaturesDetected:  content.Features,
		HasLoginForm:      content.HasLoginForm,
		HasTargetLogo:     content.HasLogo,
		FormTargets:       content.FormTargets,
		FirstDetected:     now,
		LastChecked:       now,
	}

	return CheckResult{Site: site, HTML: html}, nil
}
