package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CVSSClient looks up CVSS base scores for CVE identifiers against the NVD
// REST API.
type CVSSClient struct {
	client  *resty.Client
	baseURL string
}

func NewCVSSClient(baseURL string) *CVSSClient {
	return &CVSSClient{
		client: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type nvdResponse struct {
	Result struct {
		CVEItems []struct {
			Impact struct {
				BaseMetricV3 *struct {
					CVSSV3 struct {
						BaseScore float64 `json:"baseScore"`
					} `json:"cvssV3"`
				} `json:"baseMetricV3"`
				BaseMetricV2 *struct {
					CVSSV2 struct {
						BaseScore float64 `json:"baseScore"`
					} `json:"cvssV2"`
				} `json:"baseMetricV2"`
			} `json:"impact"`
		} `json:"CVE_Items"`
	} `json:"result"`
}

// Score fetches the CVSS base score for cveID, preferring v3 over v2.
// A nil score with nil error means the NVD has no rating for the CVE.
func (c *CVSSClient) Score(ctx context.Context, cveID string) (*float64, error) {
	if !strings.HasPrefix(cveID, "CVE-") {
		return nil, fmt.Errorf("invalid CVE id %q", cveID)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + "/rest/json/cve/1.0/" + cveID)
	if err != nil {
		return nil, fmt.Errorf("nvd request for %s failed: %w", cveID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("nvd returned status %d for %s", resp.StatusCode(), cveID)
	}

	var parsed nvdResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse nvd response for %s: %w", cveID, err)
	}

	if len(parsed.Result.CVEItems) == 0 {
		return nil, nil
	}
	impact := parsed.Result.CVEItems[0].Impact
	if impact.BaseMetricV3 != nil {
		score := impact.BaseMetricV3.CVSSV3.BaseScore
		return &score, nil
	}
	if impact.BaseMetricV2 != nil {
		score := impact.BaseMetricV2.CVSSV2.BaseScore
		return &score, nil
	}
	return nil, nil
}
