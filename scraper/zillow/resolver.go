package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"home-scraper/models"
	"home-scraper/utils"
)

// Fetcher is the single-GET primitive both HTTPFetcher and BrowserFetcher satisfy.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
}

// detailURLRe matches the detail-page field embedded in index-page JSON.
var detailURLRe = regexp.MustCompile(`"detailUrl"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// ResolverOptions bounds the index-page search.
type ResolverOptions struct {
	Attempts     int
	MaxIndexPage int
}

// Resolver samples city index pages until one yields a detail-page URL.
type Resolver struct {
	base     *url.URL
	fetcher  Fetcher
	rng      utils.Rand
	attempts int
	maxPage  int
	logger   *utils.Logger
}

// NewResolver parses baseURL and applies defaults of 8 attempts over pages 1..5.
func NewResolver(baseURL string, fetcher Fetcher, rng utils.Rand, opts ResolverOptions, logger *utils.Logger) (*Resolver, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("zillow: invalid base URL %q", baseURL)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 8
	}
	if opts.MaxIndexPage <= 0 {
		opts.MaxIndexPage = 5
	}
	return &Resolver{
		base:     base,
		fetcher:  fetcher,
		rng:      rng,
		attempts: opts.Attempts,
		maxPage:  opts.MaxIndexPage,
		logger:   logger,
	}, nil
}

// Resolve returns one detail-page URL, or false once every attempt came up empty.
// Each attempt draws a fresh city and page; failed fetches move on without waiting.
func (r *Resolver) Resolve(ctx context.Context, cities []string) (string, bool) {
	if len(cities) == 0 {
		return "", false
	}

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if ctx.Err() != nil {
			return "", false
		}

		city := utils.Pick(r.rng, cities)
		page := r.rng.Intn(r.maxPage) + 1
		indexURL := r.IndexURL(city, page)

		res := r.fetcher.Fetch(ctx, indexURL)
		if !res.Succeeded {
			r.logger.Debug("[resolver] Attempt %d/%d: %s returned %d", attempt, r.attempts, indexURL, res.StatusCode)
			continue
		}

		refs := r.DetailURLs(res.Body)
		if len(refs) == 0 {
			r.logger.Debug("[resolver] Attempt %d/%d: no detail URLs on %s", attempt, r.attempts, indexURL)
			continue
		}

		ref := utils.Pick(r.rng, refs)
		r.logger.Debug("[resolver] Picked %s out of %d on %s", ref, len(refs), indexURL)
		return ref, true
	}

	r.logger.Warn("[resolver] No detail URL found after %d attempts", r.attempts)
	return "", false
}

// IndexURL builds the listing-index URL for city. Page 1 has no page segment.
func (r *Resolver) IndexURL(city string, page int) string {
	u := *r.base
	segment := strings.Trim(strings.TrimSpace(city), "/")
	if page <= 1 {
		u.Path = fmt.Sprintf("%s/%s/", u.Path, segment)
	} else {
		u.Path = fmt.Sprintf("%s/%s/%d_p/", u.Path, segment, page)
	}
	return u.String()
}

// DetailURLs returns every detail URL embedded in body, absolute and in document order.
func (r *Resolver) DetailURLs(body string) []string {
	matches := detailURLRe.FindAllStringSubmatch(body, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		var raw string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &raw); err != nil {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		ref, err := url.Parse(raw)
		if err != nil {
			continue
		}
		refs = append(refs, r.base.ResolveReference(ref).String())
	}
	return refs
}
