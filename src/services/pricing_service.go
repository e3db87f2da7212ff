package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pricefolio/src/catalog"
	"github.com/username/pricefolio/src/database"
	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/models"
	"github.com/username/pricefolio/src/pricing"
)

// ckPriceResult keys one memoized calculation by series, article,
// configuration hash and query date. The cache belongs to the calculation
// session: a catalog reload flushes it entirely.
const ckPriceResult = "res_price_%s_%s_%s_%s_%s"

type pricingServiceImpl struct {
	loader *catalog.Loader
	engine *pricing.Engine

	mu       sync.RWMutex
	snapshot *catalog.Snapshot

	resultCache *cache.Cache
}

// NewPricingService wires the loader, engine and memoization cache into a
// PricingService. Call Reload once at startup to build the first snapshot.
func NewPricingService(loader *catalog.Loader, engine *pricing.Engine, resultCache *cache.Cache) PricingService {
	return &pricingServiceImpl{
		loader:      loader,
		engine:      engine,
		resultCache: resultCache,
	}
}

// Reload rescans the catalog root, swaps in the new immutable snapshot,
// drains the memoization cache and persists the load-level warning stream.
func (s *pricingServiceImpl) Reload(ctx context.Context) error {
	startTime := time.Now()
	logger.L.Info("Catalog reload START")

	snap, err := s.loader.Scan(ctx)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	s.resultCache.Flush()

	database.InsertWarnings("", "", snap.Warnings())
	for _, name := range snap.SeriesNames() {
		if sd, ok := snap.Series(name[0], name[1]); ok {
			database.InsertWarnings(name[0], name[1], sd.Warnings)
		}
	}

	logger.L.Info("Catalog reload END", "seriesCount", snap.SeriesCount(), "duration", time.Since(startTime))
	return nil
}

// Snapshot returns the current catalog snapshot, nil before the first load.
func (s *pricingServiceImpl) Snapshot() *catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Calculate answers one pricing query, memoizing the immutable result.
func (s *pricingServiceImpl) Calculate(input CalculationInput) (*models.PriceResult, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrCatalogNotLoaded
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	cacheKey := fmt.Sprintf(ckPriceResult, input.Manufacturer, input.Series, input.ArticleNr,
		input.Configuration.Hash(), date.Format("2006-01-02"))
	if input.Taxes == nil {
		if cached, found := s.resultCache.Get(cacheKey); found {
			logger.L.Debug("Cache hit for price calculation", "article", input.ArticleNr)
			return cached.(*models.PriceResult), nil
		}
	}

	sd, ok := snap.Series(input.Manufacturer, input.Series)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownSeries, input.Manufacturer, input.Series)
	}

	result := s.engine.Calculate(sd.Index, sd.Meta, input.ArticleNr, input.Configuration, date, input.Taxes)

	// The per-query warnings go to the diagnostics sink; the result also
	// carries the series' load warnings so callers see the full picture.
	database.InsertWarnings(input.Manufacturer, input.Series, result.Warnings)
	result.Warnings = append(result.Warnings, sd.Warnings...)

	database.InsertQueryAudit(input.Manufacturer, input.Series, input.ArticleNr,
		input.Configuration.Hash(), result.TotalPrice.String(), result.Currency, result.OnRequest)

	if input.Taxes == nil {
		s.resultCache.Set(cacheKey, result, cache.DefaultExpiration)
	}

	logger.L.Info("Price calculated", "manufacturer", input.Manufacturer, "series", input.Series,
		"article", input.ArticleNr, "total", result.TotalPrice.String(), "currency", result.Currency,
		"warningCount", len(result.Warnings))
	return result, nil
}

// Export runs the calculation and wraps it into the structured document.
func (s *pricingServiceImpl) Export(input CalculationInput) (*models.ExportDocument, error) {
	result, err := s.Calculate(input)
	if err != nil {
		return nil, err
	}
	return BuildExportDocument(input, result, time.Now()), nil
}
