package scan

import (
	"net/url"
	"regexp"
	"strings"
)

// Levenshtein returns the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min3(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// URLSimilarity scores how close rawURL's host is to the protected domain,
// on a 0-100 scale based on edit distance.
func URLSimilarity(rawURL, targetDomain string) float64 {
	host := hostOf(rawURL)
	if host == "" {
		return 0
	}

	distance := Levenshtein(host, strings.ToLower(targetDomain))
	maxLen := len([]rune(host))
	if l := len([]rune(targetDomain)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	return (1 - float64(distance)/float64(maxLen)) * 100
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(parsed.Hostname())
}

// Phishing feature labels attached to analyzed pages.
const (
	FeatureFakeLogin      = "fake-login"
	FeatureLogoClone      = "logo-clone"
	FeatureSSLEmphasis    = "ssl-emphasis"
	FeatureSimilarLayout  = "similar-layout"
	FeatureDataHarvesting = "data-harvesting"
	FeaturePaymentForm    = "payment-form"
	FeatureDocumentUpload = "document-upload"
	FeatureSSLValid       = "ssl-valid"
	FeatureSSLMissing     = "ssl-missing"
)

// ContentAnalysis is the verdict for one fetched page body.
type ContentAnalysis struct {
	Similarity   float64
	HasLogo      bool
	Features     []string
	HasLoginForm bool
	FormTargets  []string
}

var (
	tagRe          = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9-]*)`)
	passwordRe     = regexp.MustCompile(`(?i)<input[^>]+type=["']?password`)
	formRe         = regexp.MustCompile(`(?i)<form[^>]*>`)
	formActionRe   = regexp.MustCompile(`(?i)action=["']?([^"'\s>]+)`)
	formMethodRe   = regexp.MustCompile(`(?i)method=["']?([a-zA-Z]+)`)
	imgRe          = regexp.MustCompile(`(?i)<img[^>]*>`)
	tagStripRe     = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	paymentTerms   = []string{"payment", "credit card", "debit card", "card number", "expiry", "cvv"}
	uploadTerms    = []string{"upload", "file", "document"}
	harvestAnchors = []string{"password", "login"}
)

// Analyzer scores page content against the protected site.
type Analyzer struct {
	brandTerms   []string
	fingerprints []string
}

// NewAnalyzer builds a content analyzer for the given brand terms (matched
// in image and link markup to spot logo cloning) and text fingerprints
// (distinctive phrases from the protected site).
func NewAnalyzer(brandTerms, fingerprints []string) *Analyzer {
	return &Analyzer{brandTerms: brandTerms, fingerprints: fingerprints}
}

// Analyze compares the candidate HTML with the protected page's HTML and
// detects phishing features. targetHTML may be empty when the protected
// page could not be fetched; structural comparison then contributes zero.
func (a *Analyzer) Analyze(html, targetHTML string) ContentAnalysis {
	lower := strings.ToLower(html)

	textSim := jaccardSimilarity(visibleText(html), visibleText(targetHTML)) * 100
	tagSim := tagStructureSimilarity(lower, strings.ToLower(targetHTML))
	fingerprintScore := a.fingerprintScore(lower)

	analysis := ContentAnalysis{
		Similarity:  clamp(textSim*0.4+tagSim*0.3+fingerprintScore*0.3, 0, 100),
		HasLogo:     a.hasLogo(lower),
		FormTargets: formTargets(html),
	}
	analysis.Features = a.detectFeatures(lower, analysis.HasLogo)
	analysis.HasLoginForm = contains(analysis.Features, FeatureFakeLogin)
	return analysis
}

func (a *Analyzer) fingerprintScore(lower string) float64 {
	score := 0.0
	for _, fp := range a.fingerprints {
		if strings.Contains(lower, strings.ToLower(fp)) {
			score += 25
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// hasLogo looks for brand terms inside image tags or obvious logo markup.
func (a *Analyzer) hasLogo(lower string) bool {
	for _, img := range imgRe.FindAllString(lower, -1) {
		for _, term := range a.brandTerms {
			if strings.Contains(img, strings.ToLower(term)) {
				return true
			}
		}
	}
	for _, marker := range []string{`class="logo`, `id="logo`, "brand-logo", "site-logo"} {
		if !strings.Contains(lower, marker) {
			continue
		}
		for _, term := range a.brandTerms {
			if strings.Contains(lower, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}

func (a *Analyzer) detectFeatures(lower string, hasLogo bool) []string {
	var features []string

	if passwordRe.MatchString(lower) {
		features = append(features, FeatureFakeLogin)
	}
	if hasLogo {
		features = append(features, FeatureLogoClone)
	}
	if strings.Contains(lower, "secure") || strings.Contains(lower, "ssl") {
		features = append(features, FeatureSSLEmphasis)
	}
	for _, term := range a.brandTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			features = append(features, FeatureSimilarLayout)
			break
		}
	}
	if strings.Contains(lower, "email") && containsAny(lower, harvestAnchors) {
		features = append(features, FeatureDataHarvesting)
	}
	if containsAny(lower, paymentTerms) {
		features = append(features, FeaturePaymentForm)
	}
	if containsAny(lower, uploadTerms) {
		features = append(features, FeatureDocumentUpload)
	}
	if strings.Contains(lower, "https://") {
		features = append(features, FeatureSSLValid)
	} else {
		features = append(features, FeatureSSLMissing)
	}

	return features
}

// formTargets lists every form's submission target as "METHOD action".
// Forms without an action submit to themselves.
func formTargets(html string) []string {
	var targets []string
	for _, form := range formRe.FindAllString(html, -1) {
		action := "self"
		if m := formActionRe.FindStringSubmatch(form); m != nil {
			action = m[1]
		}
		method := "GET"
		if m := formMethodRe.FindStringSubmatch(form); m != nil {
			method = strings.ToUpper(m[1])
		}
		targets = append(targets, method+" "+action)
	}
	return targets
}

// visibleText strips markup and collapses whitespace into a token stream.
func visibleText(html string) []string {
	text := tagStripRe.ReplaceAllString(html, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	return strings.Split(text, " ")
}

// jaccardSimilarity measures word-set overlap between two token streams.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// tagStructureSimilarity compares tag-count distributions of two documents
// on a 0-100 scale.
func tagStructureSimilarity(a, b string) float64 {
	countsA := tagCounts(a)
	countsB := tagCounts(b)
	if len(countsA) == 0 && len(countsB) == 0 {
		return 0
	}

	all := make(map[string]struct{})
	for tag := range countsA {
		all[tag] = struct{}{}
	}
	for tag := range countsB {
		all[tag] = struct{}{}
	}

	sum := 0.0
	for tag := range all {
		ca, cb := countsA[tag], countsB[tag]
		maxCount := ca
		if cb > maxCount {
			maxCount = cb
		}
		if maxCount > 0 {
			diff := ca - cb
			if diff < 0 {
				diff = -diff
			}
			sum += 1 - float64(diff)/float64(maxCount)
		}
	}
	return sum / float64(len(all)) * 100
}

func tagCounts(html string) map[string]int {
	counts := make(map[string]int)
	for _, m := range tagRe.FindAllStringSubmatch(html, -1) {
		counts[m[1]]++
	}
	return counts
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
