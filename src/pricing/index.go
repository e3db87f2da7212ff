package pricing

import (
	"github.com/username/pricefolio/src/models"
)

type recordKey struct {
	article string
	level   models.PriceLevel
}

// RecordIndex holds one series' records pre-indexed by (article_nr,
// price_level) so a query touches only the rows relevant to one article,
// never the full catalog. Built once at load time, read-only afterwards.
type RecordIndex struct {
	byKey         map[recordKey][]*models.PriceRecord
	shape         Shape
	surchargeOnly bool
	total         int
}

// NewRecordIndex indexes the records of one series and samples their shape.
func NewRecordIndex(records []*models.PriceRecord) *RecordIndex {
	ix := &RecordIndex{
		byKey: make(map[recordKey][]*models.PriceRecord),
		total: len(records),
	}
	baseCount := 0
	for _, r := range records {
		k := recordKey{article: r.ArticleNr, level: r.Level}
		ix.byKey[k] = append(ix.byKey[k], r)
		if r.Level == models.LevelBase {
			baseCount++
		}
	}
	ix.shape = DetectShape(records)
	ix.surchargeOnly = baseCount == 0 && len(records) > 0
	return ix
}

// Records returns the rows for one article at one level, in load order.
func (ix *RecordIndex) Records(article string, level models.PriceLevel) []*models.PriceRecord {
	return ix.byKey[recordKey{article: article, level: level}]
}

// Shape is the sampled pricing shape of the series.
func (ix *RecordIndex) Shape() Shape { return ix.shape }

// SurchargeOnly reports whether the series historically carries only
// surcharge rows. It softens the missing-base warning to Info.
func (ix *RecordIndex) SurchargeOnly() bool { return ix.surchargeOnly }

// Len is the number of indexed records.
func (ix *RecordIndex) Len() int { return ix.total }
