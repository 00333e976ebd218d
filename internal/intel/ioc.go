// Package intel extracts indicators of compromise from article content and
// enriches CVE references with CVSS scores from the NVD.
package intel

import "regexp"

var (
	ipPattern     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	domainPattern = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
	urlPattern    = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+`)
	md5Pattern    = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	sha1Pattern   = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	sha256Pattern = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	cvePattern    = regexp.MustCompile(`\bCVE-\d{4}-\d{4,}\b`)
)

// IOCSet groups the indicators found in a block of text, deduplicated.
type IOCSet struct {
	IPAddresses []string `json:"ip_addresses"`
	Domains     []string `json:"domains"`
	URLs        []string `json:"urls"`
	Hashes      []string `json:"hashes"`
	Emails      []string `json:"emails"`
}

// ExtractIOCs scans text for IP addresses, domains, URLs, file hashes and
// email addresses.
func ExtractIOCs(text string) IOCSet {
	hashes := append(md5Pattern.FindAllString(text, -1), sha1Pattern.FindAllString(text, -1)...)
	hashes = append(hashes, sha256Pattern.FindAllString(text, -1)...)

	return IOCSet{
		IPAddresses: dedupe(ipPattern.FindAllString(text, -1)),
		Domains:     dedupe(domainPattern.FindAllString(text, -1)),
		URLs:        dedupe(urlPattern.FindAllString(text, -1)),
		Hashes:      dedupe(hashes),
		Emails:      dedupe(emailPattern.FindAllString(text, -1)),
	}
}

// ExtractCVEs returns the unique CVE identifiers mentioned in text.
func ExtractCVEs(text string) []string {
	return dedupe(cvePattern.FindAllString(text, -1))
}

// Empty reports whether the set holds no indicators.
func (s IOCSet) Empty() bool {
	return len(s.IPAddresses) == 0 && len(s.Domains) == 0 && len(s.URLs) == 0 &&
		len(s.Hashes) == 0 && len(s.Emails) == 0
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
