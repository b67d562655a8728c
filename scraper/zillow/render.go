package zillow

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"home-scraper/models"
	"home-scraper/utils"
)

// BrowserFetcher loads pages in headless Chrome and returns the rendered DOM.
// It is used when the plain HTTP identity is being served a challenge page.
type BrowserFetcher struct {
	execPath string
	timeout  time.Duration
	settle   time.Duration
	logger   *utils.Logger
}

// NewBrowserFetcher locates a Chrome binary, preferring chromeBin when set.
func NewBrowserFetcher(chromeBin string, timeout time.Duration, logger *utils.Logger) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	bin := findChromeBinary(chromeBin)
	if bin == "" {
		logger.Warn("[browser] No Chrome binary found, relying on chromedp defaults")
	} else {
		logger.Info("[browser] Using browser binary: %s", bin)
	}
	return &BrowserFetcher{
		execPath: bin,
		timeout:  timeout,
		settle:   2 * time.Second,
		logger:   logger,
	}
}

// Fetch renders url once. chromedp exposes no status code, so a successful
// navigation is reported as 200 and any failure as {false, 0}.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) models.FetchResult {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		b.logger.Warn("[browser] Render of %s failed: %v", url, err)
		return models.FetchResult{}
	}

	if len(html) > maxBodyBytes {
		html = html[:maxBodyBytes]
	}
	return models.FetchResult{Succeeded: true, StatusCode: 200, Body: html}
}

// findChromeBinary searches for a Chrome or Chromium binary on the system.
func findChromeBinary(preferred string) string {
	if preferred != "" {
		return preferred
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
