package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/pricefolio/src/catalog"
	"github.com/username/pricefolio/src/models"
)

var (
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
	ErrUnknownSeries    = errors.New("unknown manufacturer or series")
)

// CalculationInput identifies one pricing query: a configured article of a
// manufacturer series on a date, with optional caller-supplied tax schemes.
type CalculationInput struct {
	Manufacturer  string
	Series        string
	ArticleNr     string
	Configuration models.Configuration
	Date          time.Time
	Taxes         []models.TaxScheme
}

// PricingService answers pricing queries against the loaded catalog
// snapshot and serializes results for export.
type PricingService interface {
	Calculate(input CalculationInput) (*models.PriceResult, error)
	Export(input CalculationInput) (*models.ExportDocument, error)
	Reload(ctx context.Context) error
	Snapshot() *catalog.Snapshot
}
