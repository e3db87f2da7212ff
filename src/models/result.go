package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceComponent is one surcharge or discount line of a PriceResult.
type PriceComponent struct {
	VarCond     string          `json:"var_cond"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// TaxScheme is a named percentage tax supplied by the caller.
type TaxScheme struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// TaxLine is one applied tax of a PriceResult.
type TaxLine struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceResult is the outcome of one price calculation. It is created fresh
// per calculation and never mutated after construction.
type PriceResult struct {
	BasePrice  decimal.Decimal  `json:"base_price"`
	Surcharges []PriceComponent `json:"surcharges"`
	Discounts  []PriceComponent `json:"discounts"`
	NetPrice   decimal.Decimal  `json:"net_price"`
	Taxes      []TaxLine        `json:"taxes"`
	TotalPrice decimal.Decimal  `json:"total_price"`
	Currency   string           `json:"currency"`
	Warnings   []DataWarning    `json:"warnings"`

	// OnRequest marks the "price on request" sentinel returned when no price
	// data is available at all for the query.
	OnRequest bool `json:"on_request,omitempty"`
}

// ExportPricing is the pricing block of an ExportDocument.
type ExportPricing struct {
	Base       decimal.Decimal  `json:"base"`
	Surcharges []PriceComponent `json:"surcharges"`
	Discounts  []PriceComponent `json:"discounts"`
	Net        decimal.Decimal  `json:"net"`
	Taxes      []TaxLine        `json:"taxes"`
	Total      decimal.Decimal  `json:"total"`
	Currency   string           `json:"currency"`
}

// ExportDocument is the structured serialization of a PriceResult together
// with the query that produced it.
type ExportDocument struct {
	ArticleNr     string        `json:"article_nr"`
	Manufacturer  string        `json:"manufacturer"`
	Series        string        `json:"series"`
	Configuration Configuration `json:"configuration"`
	Pricing       ExportPricing `json:"pricing"`
	Warnings      []DataWarning `json:"warnings"`
	ExportedAt    time.Time     `json:"exported_at"`
}
