package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/pricefolio/src/models"
)

func sampleResult() *models.PriceResult {
	return &models.PriceResult{
		BasePrice: decimal.NewFromInt(599),
		Surcharges: []models.PriceComponent{
			{VarCond: "S_166", Description: "Product group option", Amount: decimal.NewFromInt(44)},
		},
		Discounts: []models.PriceComponent{},
		NetPrice:  decimal.NewFromInt(643),
		Taxes: []models.TaxLine{
			{Name: "VAT", Rate: decimal.NewFromInt(25), Amount: decimal.NewFromFloat(160.75)},
		},
		TotalPrice: decimal.NewFromFloat(803.75),
		Currency:   "EUR",
		Warnings:   []models.DataWarning{},
	}
}

func TestBuildExportDocument(t *testing.T) {
	input := CalculationInput{
		Manufacturer:  "acme",
		Series:        "alpha",
		ArticleNr:     "AI-121",
		Configuration: models.Configuration{"option": "166"},
	}
	exportedAt := time.Date(2023, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	doc := BuildExportDocument(input, sampleResult(), exportedAt)

	if doc.ArticleNr != "AI-121" || doc.Manufacturer != "acme" || doc.Series != "alpha" {
		t.Errorf("identity fields wrong: %+v", doc)
	}
	if !doc.Pricing.Total.Equal(decimal.NewFromFloat(803.75)) {
		t.Errorf("total = %s, want 803.75", doc.Pricing.Total)
	}
	if doc.ExportedAt.Location() != time.UTC {
		t.Errorf("exported_at not normalized to UTC: %v", doc.ExportedAt)
	}
}

func TestBuildExportDocumentNilConfiguration(t *testing.T) {
	doc := BuildExportDocument(CalculationInput{ArticleNr: "X"}, sampleResult(), time.Now())
	if doc.Configuration == nil {
		t.Error("nil configuration not replaced with an empty map")
	}
}

func TestExportDocumentRoundTrip(t *testing.T) {
	input := CalculationInput{
		Manufacturer:  "acme",
		Series:        "alpha",
		ArticleNr:     "AI-121",
		Configuration: models.Configuration{"option": "166", "finish": "OAK"},
	}
	doc := BuildExportDocument(input, sampleResult(), time.Now())

	data, err := MarshalExportDocument(doc)
	if err != nil {
		t.Fatalf("MarshalExportDocument: %v", err)
	}

	parsed, err := ParseExportDocument(data)
	if err != nil {
		t.Fatalf("ParseExportDocument: %v", err)
	}

	if !parsed.Pricing.Total.Equal(doc.Pricing.Total) {
		t.Errorf("total changed across the round trip: %s vs %s", parsed.Pricing.Total, doc.Pricing.Total)
	}
	if !parsed.Pricing.Net.Equal(doc.Pricing.Net) {
		t.Errorf("net changed across the round trip: %s vs %s", parsed.Pricing.Net, doc.Pricing.Net)
	}
	if len(parsed.Pricing.Surcharges) != 1 || parsed.Pricing.Surcharges[0].VarCond != "S_166" {
		t.Errorf("surcharges lost: %+v", parsed.Pricing.Surcharges)
	}
	if parsed.Configuration["finish"] != "OAK" {
		t.Errorf("configuration lost: %+v", parsed.Configuration)
	}

	if _, err := ParseExportDocument([]byte("{broken")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
