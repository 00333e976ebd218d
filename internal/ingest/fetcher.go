// Package ingest pulls security news from a NewsAPI-compatible upstream,
// classifies it and lands it in the store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RawArticle is the upstream news schema before analysis.
type RawArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type newsResponse struct {
	Status   string       `json:"status"`
	Articles []RawArticle `json:"articles"`
}

// Fetcher retrieves raw articles from the news upstream.
type Fetcher struct {
	client   *resty.Client
	baseURL  string
	apiKey   string
	pageSize int
}

func NewFetcher(baseURL, apiKey string, pageSize int) *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: pageSize,
	}
}

// Fetch runs one search query against the upstream.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]RawArticle, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"language": "en",
			"pageSize": fmt.Sprintf("%d", f.pageSize),
			"apiKey":   f.apiKey,
		}).
		Get(f.baseURL + "/everything")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %q: %w", query, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d fetching news for %q", resp.StatusCode(), query)
	}

	var parsed newsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}

	return parsed.Articles, nil
}

// FetchAll runs every query and deduplicates the combined result by URL.
// Partial failures are tolerated; an error is returned only when every
// query fails.
func (f *Fetcher) FetchAll(ctx context.Context, queries []string) ([]RawArticle, error) {
	var all []RawArticle
	var errs []error

	for _, q := range queries {
		articles, err := f.Fetch(ctx, q)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, articles...)
	}

	if len(errs) == len(queries) && len(queries) > 0 {
		return nil, fmt.Errorf("all %d news queries failed, first error: %w", len(queries), errs[0])
	}

	seen := make(map[string]struct{}, len(all))
	unique := all[:0]
	for _, a := range all {
		if a.URL == "" || a.Title == "" || a.Description == "" {
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		unique = append(unique, a)
	}

	return unique, nil
}
