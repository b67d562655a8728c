package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"home-scraper/models"
	"home-scraper/utils"
)

type fakeScraper struct {
	mu      sync.Mutex
	result  *models.Property
	err     error
	markets []models.Market
	ctxErr  error
}

func (f *fakeScraper) Run(ctx context.Context, _ []string, market models.Market) (*models.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets = append(f.markets, market)
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testMarket(canada bool) models.Market {
	if canada {
		return models.Market{Region: models.RegionCA, CitiesFile: "ca.txt", Partition: "properties_ca"}
	}
	return models.Market{Region: models.RegionUS, CitiesFile: "us.txt", Partition: "properties"}
}

func okCatalog(string) ([]string, error) { return []string{"laveen-az"}, nil }

func newTestServer(s Scraper, cooldown time.Duration, loader func(string) ([]string, error)) *Server {
	return NewServer(":0", Deps{
		Scraper:     s,
		Limiter:     utils.NewRateLimiter(cooldown),
		LoadCatalog: loader,
		Market:      testMarket,
		MaxAttempts: 5,
		Now:         func() time.Time { return fixedNow },
	}, utils.NewNopLogger())
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeScraper{}, 0, okCatalog)
	rr := doGet(t, srv.Handler(), "/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" || body["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestScrapeSuccess(t *testing.T) {
	fs := &fakeScraper{result: &models.Property{
		ID:               "abc",
		URLs:             []string{"u1", "u2", "u3"},
		Value:            375000,
		Beds:             "4",
		Baths:            "2",
		SquareFootage:    "2,139",
		Address:          "4933 W Melody Ln",
		CityStateZipcode: "Laveen, AZ 85339",
		DetailURL:        "https://www.zillow.com/homedetails/1_zpid/",
		Version:          models.FormatVersion,
	}}
	srv := newTestServer(fs, 0, okCatalog)
	rr := doGet(t, srv.Handler(), "/api/scrape")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}
	body := decodeBody(t, rr)
	for _, key := range []string{"urls", "value", "beds", "baths", "square_footage", "address", "city_state_zipcode", "detailUrl"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing field %q in %v", key, body)
		}
	}
	for _, key := range []string{"_id", "id", "scraped_at", "version"} {
		if _, ok := body[key]; ok {
			t.Errorf("unexpected field %q in response", key)
		}
	}
	if body["value"] != 375000.0 {
		t.Errorf("value: got %v", body["value"])
	}
	if fs.markets[0].Region != models.RegionUS {
		t.Errorf("market: got %v, want us", fs.markets[0].Region)
	}
}

func TestScrapeCanadaFlag(t *testing.T) {
	tests := []struct {
		query string
		want  models.Region
	}{
		{"?canada=true", models.RegionCA},
		{"?canada=1", models.RegionCA},
		{"?canada=YES", models.RegionCA},
		{"?canada=on", models.RegionCA},
		{"?canada=false", models.RegionUS},
		{"?canada=", models.RegionUS},
		{"", models.RegionUS},
	}
	for _, tt := range tests {
		fs := &fakeScraper{result: &models.Property{}}
		srv := newTestServer(fs, 0, okCatalog)
		doGet(t, srv.Handler(), "/api/scrape"+tt.query)
		if len(fs.markets) != 1 || fs.markets[0].Region != tt.want {
			t.Errorf("query %q: got markets %v, want %s", tt.query, fs.markets, tt.want)
		}
	}
}

func TestScrapeRateLimited(t *testing.T) {
	fs := &fakeScraper{result: &models.Property{}}
	srv := newTestServer(fs, 5*time.Second, okCatalog)

	if rr := doGet(t, srv.Handler(), "/api/scrape"); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	rr := doGet(t, srv.Handler(), "/api/scrape")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if msg, _ := decodeBody(t, rr)["error"].(string); msg == "" {
		t.Error("expected error message in 429 body")
	}
	if len(fs.markets) != 1 {
		t.Errorf("scraper runs: got %d, want 1", len(fs.markets))
	}
}

func TestScrapeCatalogUnavailable(t *testing.T) {
	fs := &fakeScraper{}
	srv := newTestServer(fs, 0, func(string) ([]string, error) { return nil, errors.New("missing") })
	rr := doGet(t, srv.Handler(), "/api/scrape")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected degraded 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Catalog-Status") != "unavailable" {
		t.Errorf("missing X-Catalog-Status header")
	}
	body := decodeBody(t, rr)
	if body["address"] != "Unknown" || body["city_state_zipcode"] != "Unknown" || body["value"] != 0.0 || body["beds"] != "0" {
		t.Errorf("unexpected placeholder: %v", body)
	}
	if len(fs.markets) != 0 {
		t.Error("scraper should not run without a catalog")
	}
}

func TestScrapeExhausted(t *testing.T) {
	fs := &fakeScraper{err: &utils.ExhaustedError{Operation: "scrape", Attempts: 3, Last: errors.New("boom")}}
	srv := newTestServer(fs, 0, okCatalog)
	rr := doGet(t, srv.Handler(), "/api/scrape")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "failed to scrape a property after 3 attempts" {
		t.Errorf("error: got %v", body["error"])
	}
	if len(body) != 1 {
		t.Errorf("expected only the error field, got %v", body)
	}
}

func TestScrapeRunSurvivesClientCancel(t *testing.T) {
	fs := &fakeScraper{result: &models.Property{}}
	srv := newTestServer(fs, 0, okCatalog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/scrape", nil).WithContext(ctx)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if fs.ctxErr != nil {
		t.Errorf("run context was cancelled: %v", fs.ctxErr)
	}
}

func TestScrapeMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeScraper{}, 0, okCatalog)
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
