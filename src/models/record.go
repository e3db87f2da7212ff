package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WildcardArticle is the sentinel article number meaning "applies to every
// article in this series". Only meaningful for surcharges and discounts.
const WildcardArticle = "*"

// catalogDateLayout is the date layout used inside EBase tables (YYYYMMDD).
const catalogDateLayout = "20060102"

// FieldKind identifies the wire type of one decoded field.
type FieldKind uint8

const (
	FieldUInt32 FieldKind = iota
	FieldFloat32
	FieldStringRef
)

// FieldValue is one decoded field of a RawRecord. Exactly one of U, F, S is
// meaningful, selected by Kind.
type FieldValue struct {
	Name string
	Kind FieldKind
	U    uint32
	F    float32
	S    string
}

// RawRecord is the ordered list of typed field values decoded at one byte
// offset of a table blob. It is owned transiently by the decoder and consumed
// immediately into a typed record.
type RawRecord struct {
	Table  string
	Index  int // zero-based row index within the table
	Offset int // byte offset the row was decoded at
	Shift  int // trial shift applied during corruption recovery, 0 if clean
	Fields []FieldValue
}

// Field returns the named field, or a zero FieldValue if absent.
func (r RawRecord) Field(name string) FieldValue {
	for _, f := range r.Fields {
		if f.Name == name {
			return f
		}
	}
	return FieldValue{}
}

// Locator identifies the row for diagnostics, e.g. "prices#42".
func (r RawRecord) Locator() string {
	return fmt.Sprintf("%s#%d", r.Table, r.Index)
}

// PriceLevel partitions all processed price records and dictates aggregation
// order: Base, then Surcharge, then Discount.
type PriceLevel string

const (
	LevelBase      PriceLevel = "BASE"
	LevelSurcharge PriceLevel = "SURCHARGE"
	LevelDiscount  PriceLevel = "DISCOUNT"
)

// ParsePriceLevel maps the raw level token of a price row to a PriceLevel.
// Vendors encode the same concept with different tokens; unrecognized values
// are reported to the caller, never guessed.
func ParsePriceLevel(raw string) (PriceLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "B", "BASE", "G":
		return LevelBase, true
	case "S", "A", "SURCHARGE":
		return LevelSurcharge, true
	case "D", "R", "DISCOUNT":
		return LevelDiscount, true
	}
	return "", false
}

// PriceRecord is the normalized, immutable representation of one price row.
// Records are created once when a manufacturer's catalog is loaded and
// discarded when it is reloaded.
type PriceRecord struct {
	ArticleNr    string          `json:"article_nr"`
	VarCond      string          `json:"var_cond"`
	Level        PriceLevel      `json:"price_level"`
	Price        decimal.Decimal `json:"price"`
	IsFix        bool            `json:"is_fix"` // fixed amount vs. percentage-of-base
	Currency     string          `json:"currency"`
	DateFrom     *time.Time      `json:"date_from,omitempty"`
	DateTo       *time.Time      `json:"date_to,omitempty"`
	PriceTextRef uint32          `json:"price_text_ref,omitempty"`
	ScaleQty     float64         `json:"scale_quantity,omitempty"`
	RoundingID   uint32          `json:"rounding_id,omitempty"`

	// InvalidRange marks a row whose date_to precedes date_from. Such rows
	// are kept and treated as always valid.
	InvalidRange bool `json:"-"`
}

// IsWildcard reports whether the record applies to every article of its series.
func (r *PriceRecord) IsWildcard() bool {
	return r.ArticleNr == WildcardArticle
}

// VarCondKey returns the variant condition normalized for comparison.
// The original casing stays on VarCond for display.
func (r *PriceRecord) VarCondKey() string {
	return strings.ToUpper(strings.TrimSpace(r.VarCond))
}

// IsValidOn reports whether the record applies on the given date. Absent
// bounds are open-ended; a malformed range (date_to before date_from) makes
// the record always valid.
func (r *PriceRecord) IsValidOn(date time.Time) bool {
	if r.InvalidRange {
		return true
	}
	if r.DateFrom != nil && date.Before(*r.DateFrom) {
		return false
	}
	if r.DateTo != nil && date.After(*r.DateTo) {
		return false
	}
	return true
}

// NormalizePriceRecord converts a decoded price-table row into a PriceRecord.
// A row with an unrecognized price level yields nil plus an
// UNKNOWN_PRICE_LEVEL warning; the row is excluded and counted, never coerced.
func NormalizePriceRecord(raw RawRecord) (*PriceRecord, []DataWarning) {
	var warnings []DataWarning

	levelRaw := raw.Field("price_level").S
	level, ok := ParsePriceLevel(levelRaw)
	if !ok {
		warnings = append(warnings, NewWarning(SeverityWarning, WarnUnknownPriceLevel,
			fmt.Sprintf("unrecognized price level %q, record excluded", levelRaw)).At(raw.Locator()))
		return nil, warnings
	}

	rec := &PriceRecord{
		ArticleNr:    strings.TrimSpace(raw.Field("article_nr").S),
		VarCond:      strings.TrimSpace(raw.Field("var_cond").S),
		Level:        level,
		Price:        decimal.NewFromFloat32(raw.Field("price").F),
		IsFix:        raw.Field("is_fix").U != 0,
		Currency:     strings.ToUpper(strings.TrimSpace(raw.Field("currency").S)),
		PriceTextRef: raw.Field("price_text_id").U,
		ScaleQty:     float64(raw.Field("scale_qty").F),
		RoundingID:   raw.Field("rounding_id").U,
	}

	rec.DateFrom = parseCatalogDate(raw.Field("date_from").S)
	rec.DateTo = parseCatalogDate(raw.Field("date_to").S)

	if rec.DateFrom != nil && rec.DateTo != nil && rec.DateTo.Before(*rec.DateFrom) {
		rec.InvalidRange = true
		warnings = append(warnings, NewWarning(SeverityWarning, WarnInvalidDateRange,
			fmt.Sprintf("date_to %s precedes date_from %s, treating record as always valid",
				rec.DateTo.Format(catalogDateLayout), rec.DateFrom.Format(catalogDateLayout))).At(raw.Locator()))
	}

	return rec, warnings
}

// parseCatalogDate parses an optional YYYYMMDD date field. Empty and
// unparseable values both mean "open-ended".
func parseCatalogDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return nil
	}
	t, err := time.Parse(catalogDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
