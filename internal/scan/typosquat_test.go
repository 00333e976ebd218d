package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTyposquatsVariationKinds(t *testing.T) {
	variations := Typosquats("www.tamm.abudhabi")
	require := map[string]string{
		"substitution":  "tamn.abudhabi",
		"insertion":     "xtamm.abudhabi",
		"deletion":      "tam.abudhabi",
		"transposition": "atmm.abudhabi",
		"tld swap":      "tamm.com",
		"homograph":     "taмm.abudhabi", // Cyrillic м
		"lure prefix":   "secure-tamm.abudhabi",
		"plain prefix":  "logintamm.abudhabi",
	}

	set := make(map[string]struct{}, len(variations))
	for _, v := range variations {
		set[v] = struct{}{}
	}

	for kind, want := range require {
		_, ok := set[want]
		assert.True(t, ok, "missing %s variation %q", kind, want)
	}
}

func TestTyposquatsExcludesOriginal(t *testing.T) {
	for _, v := range Typosquats("www.tamm.abudhabi") {
		assert.NotEqual(t, "tamm.abudhabi", v)
	}
}

func TestTyposquatsDeduplicated(t *testing.T) {
	variations := Typosquats("www.tamm.abudhabi")
	seen := make(map[string]struct{}, len(variations))
	for _, v := range variations {
		_, dup := seen[v]
		assert.False(t, dup, "duplicate variation %q", v)
		seen[v] = struct{}{}
	}
}

func TestTyposquatsEmptyDomain(t *testing.T) {
	assert.Nil(t, Typosquats(""))
	assert.Nil(t, Typosquats("www."))
}
