// Package scan implements the phishing sweep engine: typosquat candidate
// generation, site probing, similarity scoring and scan lifecycle tracking.
package scan

import "strings"

const typoAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"

var swapTLDs = []string{".com", ".org", ".net", ".co", ".info", ".site", ".xyz"}

// Visually confusable substitutes, including Cyrillic look-alikes used in
// homograph attacks.
var homographs = map[rune][]string{
	'a': {"à", "á", "â", "ã", "ä", "å", "а"},
	'b': {"ḅ", "ḇ", "б"},
	'c': {"ç", "ć", "ĉ", "с"},
	'd': {"ď", "đ", "ɗ", "ḍ", "ḏ"},
	'e': {"è", "é", "ê", "ë", "ē", "е", "ё"},
	'i': {"í", "ì", "ï", "î", "ι"},
	'o': {"ó", "ò", "ô", "õ", "ö", "ø", "о"},
	'm': {"м"},
	'n': {"ń", "ñ", "ň", "ṇ", "ṅ"},
	'p': {"р"},
	's': {"ś", "š", "ṣ"},
	't': {"ť", "ṭ", "ţ", "т"},
	'u': {"ú", "ù", "û", "ü", "ū"},
	'w': {"ѡ", "ԝ"},
	'y': {"ý", "ÿ", "у"},
}

var lurePrefixes = []string{"secure", "login", "portal", "my", "account", "signin", "service"}

// Typosquats generates candidate look-alike domains for the protected
// domain: single-character substitutions, insertions, deletions and
// transpositions, homograph swaps, alternate TLDs and lure prefixes.
// The result is deduplicated but otherwise unordered.
func Typosquats(domain string) []string {
	base, suffix := splitDomain(domain)
	if base == "" {
		return nil
	}

	seen := make(map[string]struct{})
	add := func(candidate string) {
		if candidate == base+suffix {
			return
		}
		seen[candidate] = struct{}{}
	}

	for i := 0; i < len(base); i++ {
		for _, c := range typoAlphabet {
			if string(c) != string(base[i]) {
				add(base[:i] + string(c) + base[i+1:] + suffix)
			}
			add(base[:i] + string(c) + base[i:] + suffix)
		}
		add(base[:i] + base[i+1:] + suffix)
	}

	for i := 0; i < len(base)-1; i++ {
		add(base[:i] + string(base[i+1]) + string(base[i]) + base[i+2:] + suffix)
	}

	for _, tld := range swapTLDs {
		if tld != suffix {
			add(base + tld)
		}
	}

	for i, char := range base {
		subs, ok := homographs[char]
		if !ok {
			continue
		}
		for _, sub := range subs {
			add(base[:i] + sub + base[i+len(string(char)):] + suffix)
		}
	}

	for _, prefix := range lurePrefixes {
		add(prefix + "-" + base + suffix)
		add(prefix + base + suffix)
	}

	out := make([]string, 0, len(seen))
	for candidate := range seen {
		out = append(out, candidate)
	}
	return out
}

// splitDomain strips a leading www label and splits the remainder into
// the base label and its dotted suffix.
func splitDomain(domain string) (base, suffix string) {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	if domain == "" {
		return "", ""
	}
	if i := strings.Index(domain, "."); i > 0 {
		return domain[:i], domain[i:]
	}
	return domain, ""
}
