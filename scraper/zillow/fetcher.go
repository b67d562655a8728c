package zillow

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"home-scraper/models"
	"home-scraper/utils"
)

const (
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer      = "https://www.google.com/"
	maxBodyBytes = 8 << 20
)

// HTTPFetcher performs one plain GET per call with a fixed browser identity.
// Redirects are never followed and responses are never cached.
type HTTPFetcher struct {
	client *http.Client
	logger *utils.Logger
}

// NewHTTPFetcher builds a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, logger *utils.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Content-Encoding is decoded by hand so brotli is covered too.
		DisableCompression: true,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Fetch never returns an error: transport failures come back as
// FetchResult{Succeeded: false, StatusCode: 0}.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) models.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Warn("[fetcher] Bad request for %s: %v", url, err)
		return models.FetchResult{}
	}
	setBrowserHeaders(req.Header)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("[fetcher] GET %s failed: %v", url, err)
		return models.FetchResult{}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		f.logger.Warn("[fetcher] Reading %s failed: %v", url, err)
		return models.FetchResult{}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		f.logger.Debug("[fetcher] GET %s returned %d", url, resp.StatusCode)
	}
	return models.FetchResult{Succeeded: ok, StatusCode: resp.StatusCode, Body: body}
}

func setBrowserHeaders(h http.Header) {
	h.Set("User-Agent", userAgent)
	h.Set("Referer", referer)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
}

// readBody decodes the response and truncates it at maxBodyBytes.
func readBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
