package ingest

import (
	"strings"

	"github.com/ctiworks/threatboard/internal/intel"
	"github.com/ctiworks/threatboard/internal/models"
)

// Analysis is the classifier verdict for one article.
type Analysis struct {
	Category      string
	Severity      string
	SeverityScore float64
	Confidence    float64
	CVE           string
	Actors        []string
}

type categoryRule struct {
	name     string
	keywords []string
}

// Ordered by specificity; the first rule with a hit that no later rule
// beats on hit count wins.
var categoryRules = []categoryRule{
	{"Ransomware", []string{"ransomware", "ransom demand", "encrypted files", "lockbit", "blackcat", "alphv", "cl0p", "extortion"}},
	{"Phishing", []string{"phishing", "credential harvesting", "spoofed site", "fake login", "smishing", "business email compromise"}},
	{"Zero-Day Exploit", []string{"zero-day", "zero day", "0-day", "unpatched vulnerability", "actively exploited"}},
	{"Supply Chain Attack", []string{"supply chain", "dependency confusion", "compromised package", "software supply"}},
	{"Data Breach", []string{"data breach", "records exposed", "leaked database", "stolen data", "data leak"}},
	{"DDoS", []string{"ddos", "denial of service", "denial-of-service", "botnet flood"}},
	{"Nation-State Attack", []string{"nation-state", "state-sponsored", "apt group", "cyber espionage"}},
	{"Cryptojacking", []string{"cryptojacking", "coin miner", "cryptomining malware"}},
	{"Vulnerability", []string{"vulnerability", "cve-", "security flaw", "patch tuesday", "remote code execution", "privilege escalation"}},
	{"Malware", []string{"malware", "trojan", "backdoor", "spyware", "infostealer", "rootkit", "worm"}},
}

var criticalTerms = []string{
	"actively exploited", "mass exploitation", "zero-day", "zero day",
	"critical vulnerability", "emergency patch", "wormable",
}

var highTerms = []string{
	"ransomware", "data breach", "remote code execution", "supply chain",
	"nation-state", "state-sponsored", "credential theft",
}

var lowTerms = []string{
	"patched", "researcher", "proof of concept", "disclosed responsibly",
	"advisory",
}

// Known adversary groups matched verbatim in article text.
var knownActors = []string{
	"LockBit", "BlackCat", "ALPHV", "Cl0p", "Lazarus Group", "APT28",
	"APT29", "FIN7", "Scattered Spider", "Sandworm", "Volt Typhoon",
	"Midnight Blizzard", "Kimsuky", "MuddyWater",
}

// Classify derives category, severity and actor mentions from article text
// with keyword rules. It replaces a model call with deterministic rules, so
// identical input always yields identical classification.
func Classify(title, description string) Analysis {
	text := strings.ToLower(title + " " + description)

	category, hits := classifyCategory(text)
	severity, score := classifySeverity(text)

	confidence := 0.35 + 0.15*float64(hits)
	if confidence > 0.95 {
		confidence = 0.95
	}
	if category == "Other" {
		confidence = 0.3
	}

	analysis := Analysis{
		Category:      category,
		Severity:      severity,
		SeverityScore: score,
		Confidence:    confidence,
		Actors:        matchActors(title + " " + description),
	}

	if cves := intel.ExtractCVEs(strings.ToUpper(title + " " + description)); len(cves) > 0 {
		analysis.CVE = cves[0]
	}

	return analysis
}

func classifyCategory(text string) (string, int) {
	best := "Other"
	bestHits := 0
	for _, rule := range categoryRules {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = rule.name
			bestHits = hits
		}
	}
	return best, bestHits
}

func classifySeverity(text string) (string, float64) {
	for _, term := range criticalTerms {
		if strings.Contains(text, term) {
			return models.SeverityCritical, 9.0
		}
	}
	for _, term := range highTerms {
		if strings.Contains(text, term) {
			return models.SeverityHigh, 7.0
		}
	}
	for _, term := range lowTerms {
		if strings.Contains(text, term) {
			return models.SeverityLow, 3.0
		}
	}
	return models.SeverityMedium, 5.0
}

func matchActors(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, actor := range knownActors {
		if strings.Contains(lower, strings.ToLower(actor)) {
			found = append(found, actor)
		}
	}
	return found
}
