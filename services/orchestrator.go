package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"home-scraper/models"
	"home-scraper/storage"
	"home-scraper/utils"
)

var (
	ErrNoDetailReference  = errors.New("no detail reference found")
	ErrTransport          = errors.New("page fetch failed")
	ErrDuplicateReference = errors.New("detail reference already stored")
	ErrPersistence        = errors.New("persistence failure")
	ErrAttemptsExhausted  = utils.ErrAttemptsExhausted
)

// ExhaustedError is returned by Orchestrator.Run when every attempt failed.
type ExhaustedError = utils.ExhaustedError

// Resolver finds one detail-page reference for any of the given cities.
type Resolver interface {
	Resolve(ctx context.Context, cities []string) (string, bool)
}

// PageFetcher performs a single outbound GET.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) models.FetchResult
}

// PropertyExtractor turns markup into a Property or an error wrapping ErrNoRecord.
type PropertyExtractor interface {
	Extract(markup string, region models.Region) (*models.Property, error)
}

// OrchestratorOptions tunes the attempt loop.
type OrchestratorOptions struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep and Now default to utils.Sleep and time.Now.
	Sleep utils.SleepFunc
	Now   func() time.Time
}

// Orchestrator drives resolve, fetch, extract, dedupe and persist until one record is produced.
type Orchestrator struct {
	resolver  Resolver
	fetcher   PageFetcher
	extractor PropertyExtractor
	store     storage.PropertyStore
	logger    *utils.Logger
	retry     utils.RetryConfig
	now       func() time.Time
}

// NewOrchestrator wires the collaborators of one scrape run.
func NewOrchestrator(
	resolver Resolver,
	fetcher PageFetcher,
	extractor PropertyExtractor,
	store storage.PropertyStore,
	logger *utils.Logger,
	opts OrchestratorOptions,
) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		logger:    logger,
		retry: utils.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			Delay:       opts.Delay,
			Sleep:       opts.Sleep,
		},
		now: now,
	}
}

// Run returns the first record that was extracted and not already stored for market.
// Once all attempts fail it returns an *ExhaustedError wrapping ErrAttemptsExhausted.
func (o *Orchestrator) Run(ctx context.Context, cities []string, market models.Market) (*models.Property, error) {
	logger := o.logger.With("run_id", uuid.NewString(), "market", string(market.Region))
	logger.Info("[orchestrator] Starting run over %d cities (partition %s)", len(cities), market.Partition)

	retry := o.retry
	retry.Logger = logger

	var result *models.Property
	err := retry.Do(ctx, "scrape", func(attempt int) error {
		p, err := o.attempt(ctx, logger.With("attempt", attempt), cities, market)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		logger.Error("[orchestrator] Run failed: %v", err)
		return nil, err
	}

	logger.Info("[orchestrator] Run succeeded: %s", result.DetailURL)
	return result, nil
}

func (o *Orchestrator) attempt(ctx context.Context, logger *utils.Logger, cities []string, market models.Market) (*models.Property, error) {
	ref, ok := o.resolver.Resolve(ctx, cities)
	if !ok {
		return nil, ErrNoDetailReference
	}
	logger.Debug("[orchestrator] Resolved detail reference %s", ref)

	res := o.fetcher.Fetch(ctx, ref)
	if !res.Succeeded {
		return nil, fmt.Errorf("%w: %s (status %d)", ErrTransport, ref, res.StatusCode)
	}

	p, err := o.extractor.Extract(res.Body, market.Region)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ref, err)
	}

	exists, err := o.store.Exists(ctx, ref, market.Partition)
	if err != nil {
		return nil, fmt.Errorf("%w: existence check for %s: %w", ErrPersistence, ref, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateReference, ref)
	}

	p.DetailURL = ref
	p.ScrapedAt = o.now().UTC()
	p.Version = models.FormatVersion

	id, err := o.store.Insert(ctx, p, market.Partition)
	if err != nil {
		// The record is still returned; only the storage copy is lost.
		logger.Error("[orchestrator] Insert into %s failed for %s: %v", market.Partition, ref, err)
		return p, nil
	}
	p.ID = id
	logger.Debug("[orchestrator] Stored %s as %s", ref, id)
	return p, nil
}
