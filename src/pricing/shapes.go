package pricing

import (
	"strings"

	"github.com/username/pricefolio/src/models"
)

// Shape is the pricing-shape variant of one loaded series. Shapes are
// selected by sampling the loaded data's var_cond values, never by
// manufacturer identity, so no vendor-specific code branch exists anywhere.
type Shape string

const (
	// ShapeEmptyBase: surcharge/discount rows carry only base-indicator or
	// empty conditions; pricing degenerates to the base row.
	ShapeEmptyBase Shape = "EMPTY_BASE"
	// ShapeProductGroup: conditions follow the {PREFIX}_{DIGITS} product
	// group convention.
	ShapeProductGroup Shape = "PRODUCT_GROUP"
	// ShapeComplexCode: conditions are multi-token composite codes built
	// from a selector chain.
	ShapeComplexCode Shape = "COMPLEX_CODE"
	// ShapeTableComputed: no dominant convention; every heuristic stays in
	// play.
	ShapeTableComputed Shape = "TABLE_COMPUTED"
)

// DetectShape samples the variant conditions of the non-base rows and
// classifies the series. A convention must carry a strict majority of the
// sampled rows to be selected; mixed data falls back to ShapeTableComputed.
func DetectShape(records []*models.PriceRecord) Shape {
	var sampled, prefixed, composite int
	for _, r := range records {
		if r.Level == models.LevelBase {
			continue
		}
		cond := r.VarCondKey()
		if baseIndicators[cond] {
			continue
		}
		sampled++
		if prefixedNumericRe.MatchString(cond) {
			prefixed++
			continue
		}
		if strings.Count(cond, "_") >= 2 {
			composite++
		}
	}

	if sampled == 0 {
		return ShapeEmptyBase
	}
	switch {
	case prefixed*2 > sampled:
		return ShapeProductGroup
	case composite*2 > sampled:
		return ShapeComplexCode
	}
	return ShapeTableComputed
}
