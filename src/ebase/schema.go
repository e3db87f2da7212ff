package ebase

import "github.com/username/pricefolio/src/models"

// FieldType is the wire type of one schema column.
type FieldType uint8

const (
	UInt32 FieldType = iota
	Float32
	StringRef // u32 absolute byte offset into the string pool
)

// Field describes one fixed-width column of a table record.
type Field struct {
	Name  string
	Type  FieldType
	Width int
}

// Schema is the ordered column layout of one fixed-size record. AmountField
// and KeyField drive corruption recovery: when AmountField is set, a record
// whose amount column decodes to an implausible value is re-decoded at the
// trial shifts, and a shift is accepted only if KeyField resolves to a
// non-empty printable string and the amount becomes finite and positive.
type Schema struct {
	Table       string
	Fields      []Field
	AmountField string
	KeyField    string
	TrialShifts []int // leading-byte shift widths to try; nil means DefaultTrialShifts
}

// DefaultTrialShifts are the corruption shift widths observed in vendor
// files so far. The decoder stays parameterized over them because other
// widths may exist in unexamined files.
var DefaultTrialShifts = []int{4, 8}

// RowSize returns the byte size of one well-formed record.
func (s *Schema) RowSize() int {
	size := 0
	for _, f := range s.Fields {
		size += f.Width
	}
	return size
}

func (s *Schema) trialShifts() []int {
	if len(s.TrialShifts) > 0 {
		return s.TrialShifts
	}
	return DefaultTrialShifts
}

func (s *Schema) kindOf(t FieldType) models.FieldKind {
	switch t {
	case Float32:
		return models.FieldFloat32
	case StringRef:
		return models.FieldStringRef
	}
	return models.FieldUInt32
}

// Table names inside a pdata.ebase container.
const (
	TablePrices     = "prices"
	TableArticles   = "articles"
	TableArtProps   = "artprops"
	TableProperties = "properties"
	TablePropValues = "propvalues"
	TablePriceTexts = "pricetexts"
	TableConditions = "conditions"
)

// PriceSchema is the price table layout. The leading identifier and label
// columns are exactly the 8 bytes the known corruption signature strips.
var PriceSchema = Schema{
	Table: TablePrices,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "label_ref", Type: StringRef, Width: 4},
		{Name: "article_nr", Type: StringRef, Width: 4},
		{Name: "var_cond", Type: StringRef, Width: 4},
		{Name: "price_level", Type: StringRef, Width: 4},
		{Name: "price", Type: Float32, Width: 4},
		{Name: "is_fix", Type: UInt32, Width: 4},
		{Name: "currency", Type: StringRef, Width: 4},
		{Name: "date_from", Type: StringRef, Width: 4},
		{Name: "date_to", Type: StringRef, Width: 4},
		{Name: "price_text_id", Type: UInt32, Width: 4},
		{Name: "scale_qty", Type: Float32, Width: 4},
		{Name: "rounding_id", Type: UInt32, Width: 4},
	},
	AmountField: "price",
	KeyField:    "article_nr",
}

// ArticleSchema is the article table layout.
var ArticleSchema = Schema{
	Table: TableArticles,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "nr", Type: StringRef, Width: 4},
		{Name: "description", Type: StringRef, Width: 4},
		{Name: "prop_class_id", Type: UInt32, Width: 4},
	},
}

// ArtPropSchema maps articles to their property class.
var ArtPropSchema = Schema{
	Table: TableArtProps,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "article_nr", Type: StringRef, Width: 4},
		{Name: "prop_class_id", Type: UInt32, Width: 4},
	},
}

// PropertySchema is the property definition table layout. Bit 0 of flags
// marks the selector property heading a cascading dependent chain.
var PropertySchema = Schema{
	Table: TableProperties,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "class_id", Type: UInt32, Width: 4},
		{Name: "key", Type: StringRef, Width: 4},
		{Name: "label", Type: StringRef, Width: 4},
		{Name: "flags", Type: UInt32, Width: 4},
		{Name: "dependent_of", Type: StringRef, Width: 4},
		{Name: "position", Type: UInt32, Width: 4},
	},
}

// PropValueSchema is the property value table layout.
var PropValueSchema = Schema{
	Table: TablePropValues,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "property_key", Type: StringRef, Width: 4},
		{Name: "value", Type: StringRef, Width: 4},
		{Name: "label", Type: StringRef, Width: 4},
	},
}

// PriceTextSchema is the price description table layout.
var PriceTextSchema = Schema{
	Table: TablePriceTexts,
	Fields: []Field{
		{Name: "text_id", Type: UInt32, Width: 4},
		{Name: "text", Type: StringRef, Width: 4},
	},
}

// ConditionSchema is the optional explicit property-value to var_cond
// mapping table.
var ConditionSchema = Schema{
	Table: TableConditions,
	Fields: []Field{
		{Name: "rec_id", Type: UInt32, Width: 4},
		{Name: "property_key", Type: StringRef, Width: 4},
		{Name: "value", Type: StringRef, Width: 4},
		{Name: "var_cond", Type: StringRef, Width: 4},
	},
}
