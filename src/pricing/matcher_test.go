package pricing

import (
	"testing"

	"github.com/username/pricefolio/src/models"
)

func TestMatcherBaseIndicators(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeTableComputed)
	cfg := models.Configuration{"color": "RED"}

	for _, cond := range []string{"", "S_PGX", "s_pgx", "BASE", "base", "STANDARD", " Standard "} {
		if !m.Matches(cond, cfg, BaseLookup) {
			t.Errorf("base indicator %q did not match in base lookup", cond)
		}
		if m.Matches(cond, cfg, SurchargeLookup) {
			t.Errorf("base indicator %q matched in surcharge lookup", cond)
		}
	}
}

func TestMatcherDirectValue(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeTableComputed)
	cfg := models.Configuration{"whiteboard": "PG_WHITEBOARD_EXTERIORS"}

	if !m.Matches("pg_whiteboard_exteriors", cfg, SurchargeLookup) {
		t.Error("case-insensitive direct value did not match")
	}
	if m.Matches("PG_GLASS_EXTERIORS", cfg, SurchargeLookup) {
		t.Error("unselected condition matched")
	}
}

func TestMatcherPrefixedNumeric(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeProductGroup)

	tests := []struct {
		cond  string
		value string
		want  bool
	}{
		{"S_166", "166", true},
		{"s_166", "166", true},
		{"S_166", "OPT166", true}, // suffix match
		{"S_166", "167", false},
		{"S_166", "16", false},
		{"PG_42", "42", true},
		{"K_7", "7", true},
		{"P_300", "300", true},
		{"X_166", "166", false}, // prefix outside the convention
	}
	for _, tc := range tests {
		cfg := models.Configuration{"option": tc.value}
		if got := m.Matches(tc.cond, cfg, SurchargeLookup); got != tc.want {
			t.Errorf("Matches(%q, value %q) = %v, want %v", tc.cond, tc.value, got, tc.want)
		}
	}
}

func TestMatcherPrefixedNumericSkippedForComplexCodeShape(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeComplexCode)
	cfg := models.Configuration{"option": "166"}
	if m.Matches("S_166", cfg, SurchargeLookup) {
		t.Error("prefixed-numeric heuristic ran despite a complex-code shape")
	}
}

func TestMatcherComposite(t *testing.T) {
	meta := &models.SeriesMeta{
		Properties: []models.PropertyDef{
			{Key: "model", IsSelector: true, Position: 1},
			{Key: "width", DependentOf: "model", Position: 2},
			{Key: "finish", DependentOf: "model", Position: 3},
		},
	}
	m := NewMatcher(meta, ShapeComplexCode)
	cfg := models.Configuration{"model": "TX", "width": "120", "finish": "OAK"}

	if !m.Matches("tx_120_oak", cfg, SurchargeLookup) {
		t.Error("synthesized composite did not match")
	}
	if m.Matches("TX_140_OAK", cfg, SurchargeLookup) {
		t.Error("composite with a different token matched")
	}

	// A single resolved token is not a composite, but the direct-value
	// strategy still applies.
	if !m.Matches("TX", models.Configuration{"model": "TX"}, SurchargeLookup) {
		t.Error("single selector value should still match via the direct strategy")
	}
}

func TestMatcherCompositeDelimiter(t *testing.T) {
	meta := &models.SeriesMeta{
		Delimiter: "-",
		Properties: []models.PropertyDef{
			{Key: "model", IsSelector: true, Position: 1},
			{Key: "width", DependentOf: "model", Position: 2},
		},
	}
	m := NewMatcher(meta, ShapeComplexCode)
	cfg := models.Configuration{"model": "TX", "width": "120"}

	if !m.Matches("TX-120", cfg, SurchargeLookup) {
		t.Error("vendor delimiter not honored")
	}
	if m.Matches("TX_120", cfg, SurchargeLookup) {
		t.Error("default delimiter matched despite a vendor override")
	}
}

func TestMatcherSubstringFallback(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeTableComputed)
	cfg := models.Configuration{"fabric": "WOOL_MELANGE_DARK"}

	if !m.Matches("MELANGE", cfg, SurchargeLookup) {
		t.Error("substring of a selected value did not match")
	}
	if m.Matches("VELVET", cfg, SurchargeLookup) {
		t.Error("unrelated condition matched via substring")
	}
}

func TestMatcherConditionTableShortCircuit(t *testing.T) {
	meta := &models.SeriesMeta{
		Conditions: models.ConditionTable{
			models.ConditionKey("color", "red"): "S_RED",
		},
	}
	m := NewMatcher(meta, ShapeTableComputed)
	cfg := models.Configuration{"color": "RED"}

	if !m.Matches("S_RED", cfg, SurchargeLookup) {
		t.Error("explicitly mapped condition did not match")
	}
	// "RED" would match heuristically (direct value), but the populated
	// table overrides the whole heuristic chain.
	if m.Matches("RED", cfg, SurchargeLookup) {
		t.Error("heuristic ran despite a populated condition table")
	}
	// The structural base-indicator check still applies.
	if !m.Matches("S_PGX", cfg, BaseLookup) {
		t.Error("base indicator rejected with a populated condition table")
	}
	if m.Matches("S_PGX", cfg, SurchargeLookup) {
		t.Error("base indicator matched as a surcharge")
	}
}

func TestMatcherEmptyConditionNeverMatchesViaSubstring(t *testing.T) {
	m := NewMatcher(&models.SeriesMeta{}, ShapeTableComputed)
	if m.Matches("   ", models.Configuration{"a": "X"}, SurchargeLookup) {
		t.Error("blank condition matched as a surcharge")
	}
}
