package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/username/pricefolio/src/models"
)

// BuildExportDocument serializes a PriceResult together with the query that
// produced it into the structured export document.
func BuildExportDocument(input CalculationInput, result *models.PriceResult, exportedAt time.Time) *models.ExportDocument {
	cfg := input.Configuration
	if cfg == nil {
		cfg = models.Configuration{}
	}
	return &models.ExportDocument{
		ArticleNr:     input.ArticleNr,
		Manufacturer:  input.Manufacturer,
		Series:        input.Series,
		Configuration: cfg,
		Pricing: models.ExportPricing{
			Base:       result.BasePrice,
			Surcharges: result.Surcharges,
			Discounts:  result.Discounts,
			Net:        result.NetPrice,
			Taxes:      result.Taxes,
			Total:      result.TotalPrice,
			Currency:   result.Currency,
		},
		Warnings:   result.Warnings,
		ExportedAt: exportedAt.UTC(),
	}
}

// MarshalExportDocument renders the document as indented JSON.
func MarshalExportDocument(doc *models.ExportDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling export document: %w", err)
	}
	return data, nil
}

// ParseExportDocument restores a previously exported document.
func ParseExportDocument(data []byte) (*models.ExportDocument, error) {
	var doc models.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing export document: %w", err)
	}
	return &doc, nil
}
