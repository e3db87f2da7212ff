package pricing

import (
	"regexp"
	"strings"

	"github.com/username/pricefolio/src/models"
)

// MatchContext tells the matcher whether a variant condition is being tested
// as a base-price identifier or as an option-driven surcharge trigger.
type MatchContext int

const (
	BaseLookup MatchContext = iota
	SurchargeLookup
)

// baseIndicators are the var_cond values that mark a row as a base price
// rather than an option-triggered surcharge. Compared case-insensitively;
// the empty condition counts too.
var baseIndicators = map[string]bool{
	"":         true,
	"S_PGX":    true,
	"BASE":     true,
	"STANDARD": true,
}

// prefixedNumericRe matches the {PREFIX}_{DIGITS} convention several vendors
// use for option surcharge codes, e.g. "S_166" or "PG_42".
var prefixedNumericRe = regexp.MustCompile(`(?i)^(S|P|PG|K)_([0-9]+)$`)

// Matcher decides whether a selected configuration activates a price row.
// It runs an ordered strategy chain; the ordering is a deliberate tie-break
// favoring structural and explicit evidence over loose heuristics, keeping
// false-positive surcharge activation low. The result is a plain boolean,
// never a partial-match score.
type Matcher struct {
	meta  *models.SeriesMeta
	shape Shape
}

// NewMatcher builds a matcher for one series. The shape is a fast path: it
// skips heuristics the sampled data does not use.
func NewMatcher(meta *models.SeriesMeta, shape Shape) *Matcher {
	return &Matcher{meta: meta, shape: shape}
}

// Matches reports whether the configuration activates the given variant
// condition in the given lookup context.
func (m *Matcher) Matches(varCond string, cfg models.Configuration, ctx MatchContext) bool {
	cond := strings.ToUpper(strings.TrimSpace(varCond))

	// 1. Explicit mapping table. When a vendor supplies one it overrides the
	// entire heuristic chain; only the structural base-indicator check still
	// applies afterwards.
	if m.meta != nil && len(m.meta.Conditions) > 0 {
		for prop, val := range cfg {
			if vc, ok := m.meta.Conditions.Lookup(prop, val); ok && strings.EqualFold(vc, varCond) {
				return true
			}
		}
		if baseIndicators[cond] {
			return ctx == BaseLookup
		}
		return false
	}

	// 2. Base-indicator check. Definitive in both directions: a base
	// indicator is never an option surcharge.
	if baseIndicators[cond] {
		return ctx == BaseLookup
	}

	// 3. Derived/composite match over the selector chain.
	if m.shape != ShapeProductGroup {
		if synth := m.synthesizeComposite(cfg); synth != "" && strings.EqualFold(synth, varCond) {
			return true
		}
	}

	// 4. Direct value match.
	for _, v := range cfg {
		if strings.EqualFold(strings.TrimSpace(v), cond) {
			return true
		}
	}

	// 5. Prefixed-numeric match.
	if m.shape != ShapeComplexCode {
		if sub := prefixedNumericRe.FindStringSubmatch(cond); sub != nil {
			digits := sub[2]
			for _, v := range cfg {
				v = strings.TrimSpace(v)
				if v == digits || strings.HasSuffix(v, digits) {
					return true
				}
			}
		}
	}

	// 6. Substring match over the concatenated selections.
	joined := strings.ToUpper(strings.Join(cfg.Values(), "|"))
	return cond != "" && strings.Contains(joined, cond)
}

// synthesizeComposite joins the resolved selector-chain tokens with the
// vendor's delimiter, yielding the var_cond a cascading selector vendor
// would have written for this configuration.
func (m *Matcher) synthesizeComposite(cfg models.Configuration) string {
	if m.meta == nil {
		return ""
	}
	chain := m.meta.SelectorChain()
	if len(chain) == 0 {
		return ""
	}
	delim := m.meta.Delimiter
	if delim == "" {
		delim = "_"
	}
	tokens := make([]string, 0, len(chain))
	for _, p := range chain {
		if v, ok := cfg[p.Key]; ok && strings.TrimSpace(v) != "" {
			tokens = append(tokens, strings.TrimSpace(v))
		}
	}
	if len(tokens) < 2 {
		return ""
	}
	return strings.Join(tokens, delim)
}
