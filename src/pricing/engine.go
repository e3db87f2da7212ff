package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/pricefolio/src/models"
)

var hundred = decimal.NewFromInt(100)

// Engine computes the final price of a configured article from an indexed
// record set. Calculate is a pure function of (index, meta, query); loaded
// catalogs are immutable, so it is safe to call concurrently without locking.
type Engine struct {
	DefaultCurrency string
}

// NewEngine creates a calculation engine.
func NewEngine(defaultCurrency string) *Engine {
	return &Engine{DefaultCurrency: defaultCurrency}
}

// Calculate runs the two-pass base lookup, the surcharge and discount scans,
// and the decimal aggregation for one configured article on one date.
func (e *Engine) Calculate(ix *RecordIndex, meta *models.SeriesMeta, articleNr string, cfg models.Configuration, date time.Time, taxes []models.TaxScheme) *models.PriceResult {
	result := &models.PriceResult{
		BasePrice:  decimal.Zero,
		Surcharges: []models.PriceComponent{},
		Discounts:  []models.PriceComponent{},
		Taxes:      []models.TaxLine{},
		Warnings:   []models.DataWarning{},
	}

	matcher := NewMatcher(meta, ix.Shape())

	// Base, pass 1 (exact) then pass 2 (wildcard). A date-valid exact match
	// always outranks a wildcard; the wildcard sentinel is never a base price
	// unless no exact row exists at all.
	base := e.selectBase(ix.Records(articleNr, models.LevelBase), matcher, cfg, date)
	if base == nil {
		base = e.selectBase(ix.Records(models.WildcardArticle, models.LevelBase), matcher, cfg, date)
	}

	if base != nil {
		result.BasePrice = base.Price
		result.Currency = base.Currency
	} else {
		severity := models.SeverityWarning
		if ix.SurchargeOnly() {
			severity = models.SeverityInfo
		}
		result.Warnings = append(result.Warnings, models.NewWarning(severity, models.WarnNoBasePrice,
			fmt.Sprintf("no base price for article %q on %s", articleNr, date.Format("2006-01-02"))))
	}
	if result.Currency == "" {
		result.Currency = e.DefaultCurrency
	}

	// Surcharges and discounts scan both the exact article and the wildcard
	// bucket. Every activating record contributes: duplicated activations of
	// distinct rows are deliberately not deduplicated, mirroring the richer
	// reference behavior.
	result.Surcharges = e.collect(ix, meta, matcher, models.LevelSurcharge, articleNr, cfg, date, result)
	result.Discounts = e.collect(ix, meta, matcher, models.LevelDiscount, articleNr, cfg, date, result)

	net := result.BasePrice
	for _, s := range result.Surcharges {
		net = net.Add(s.Amount)
	}
	for _, d := range result.Discounts {
		net = net.Sub(d.Amount)
	}
	result.NetPrice = net

	total := net
	for _, scheme := range taxes {
		amount := net.Mul(scheme.Rate).Div(hundred)
		result.Taxes = append(result.Taxes, models.TaxLine{Name: scheme.Name, Rate: scheme.Rate, Amount: amount})
		total = total.Add(amount)
	}
	result.TotalPrice = total

	if base == nil && len(result.Surcharges) == 0 && len(result.Discounts) == 0 && e.noDataFor(ix, articleNr) {
		result.OnRequest = true
		result.Warnings = append(result.Warnings, models.NewWarning(models.SeverityInfo, models.WarnNoPriceData,
			fmt.Sprintf("no price data for article %q, price on request", articleNr)))
	}

	return result
}

// selectBase picks the activating base row: among date-valid matches the
// longest (most specific) var_cond wins, ties broken by the latest date_from.
func (e *Engine) selectBase(records []*models.PriceRecord, matcher *Matcher, cfg models.Configuration, date time.Time) *models.PriceRecord {
	var best *models.PriceRecord
	for _, r := range records {
		if !r.IsValidOn(date) {
			continue
		}
		if !matcher.Matches(r.VarCond, cfg, BaseLookup) {
			continue
		}
		if best == nil || moreSpecific(r, best) {
			best = r
		}
	}
	return best
}

// moreSpecific orders candidate base rows: longer var_cond first, then later
// date_from.
func moreSpecific(a, b *models.PriceRecord) bool {
	la, lb := len(a.VarCondKey()), len(b.VarCondKey())
	if la != lb {
		return la > lb
	}
	return dateFromOf(a).After(dateFromOf(b))
}

func dateFromOf(r *models.PriceRecord) time.Time {
	if r.DateFrom == nil {
		return time.Time{}
	}
	return *r.DateFrom
}

// collect gathers every activating surcharge or discount row for the exact
// article and the wildcard bucket, converting percentage rows against the
// base price and reconciling currencies (the base's currency wins).
func (e *Engine) collect(ix *RecordIndex, meta *models.SeriesMeta, matcher *Matcher, level models.PriceLevel, articleNr string, cfg models.Configuration, date time.Time, result *models.PriceResult) []models.PriceComponent {
	components := []models.PriceComponent{}
	buckets := [][]*models.PriceRecord{
		ix.Records(articleNr, level),
		ix.Records(models.WildcardArticle, level),
	}
	for _, records := range buckets {
		for _, r := range records {
			if !r.IsValidOn(date) {
				continue
			}
			if !matcher.Matches(r.VarCond, cfg, SurchargeLookup) {
				continue
			}

			amount := r.Price
			if !r.IsFix {
				amount = result.BasePrice.Mul(r.Price).Div(hundred)
			}

			if r.Currency != "" && r.Currency != result.Currency {
				result.Warnings = append(result.Warnings, models.NewWarning(models.SeverityWarning, models.WarnCurrencyMismatch,
					fmt.Sprintf("record currency %s differs from %s, keeping %s", r.Currency, result.Currency, result.Currency)))
			}

			components = append(components, models.PriceComponent{
				VarCond:     r.VarCond,
				Description: e.describe(meta, r),
				Amount:      amount,
			})
		}
	}
	return components
}

func (e *Engine) describe(meta *models.SeriesMeta, r *models.PriceRecord) string {
	if meta == nil || meta.PriceTexts == nil {
		return ""
	}
	return meta.PriceTexts[r.PriceTextRef]
}

// noDataFor reports whether the index holds no rows at all for the article,
// neither exact nor wildcard, at any level.
func (e *Engine) noDataFor(ix *RecordIndex, articleNr string) bool {
	for _, level := range []models.PriceLevel{models.LevelBase, models.LevelSurcharge, models.LevelDiscount} {
		if len(ix.Records(articleNr, level)) > 0 || len(ix.Records(models.WildcardArticle, level)) > 0 {
			return false
		}
	}
	return true
}
