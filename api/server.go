package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"home-scraper/models"
	"home-scraper/utils"
)

// Scraper produces one fresh property for a market.
type Scraper interface {
	Run(ctx context.Context, cities []string, market models.Market) (*models.Property, error)
}

// Deps are the collaborators behind the scrape endpoint.
type Deps struct {
	Scraper     Scraper
	Limiter     *utils.RateLimiter
	LoadCatalog func(path string) ([]string, error)
	Market      func(canada bool) models.Market
	// MaxAttempts is only used to word failures that carry no attempt count.
	MaxAttempts int
	Now         func() time.Time
}

// Server exposes the scrape pipeline over HTTP.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *utils.Logger
}

// NewServer builds the router and the underlying http.Server listening on addr.
func NewServer(addr string, deps Deps, logger *utils.Logger) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/scrape", s.handleScrape)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("[api] Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("[api] Shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.deps.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Limiter.Admit(s.deps.Now()) {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("rate limit exceeded, try again in %s", s.deps.Limiter.Cooldown()))
		return
	}

	market := s.deps.Market(isTruthy(r.URL.Query().Get("canada")))
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()), "market", string(market.Region))

	cities, err := s.deps.LoadCatalog(market.CitiesFile)
	if err != nil {
		logger.Error("[api] City catalog unavailable: %v", err)
		w.Header().Set("X-Catalog-Status", "unavailable")
		writeJSON(w, http.StatusOK, models.Placeholder())
		return
	}

	// The run outlives a disconnected client.
	ctx := context.WithoutCancel(r.Context())
	p, err := s.deps.Scraper.Run(ctx, cities, market)
	if err != nil {
		writeError(w, http.StatusBadGateway, s.failureMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) failureMessage(err error) string {
	attempts := s.deps.MaxAttempts
	var ex *utils.ExhaustedError
	if errors.As(err, &ex) {
		attempts = ex.Attempts
	}
	return fmt.Sprintf("failed to scrape a property after %d attempts", attempts)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
