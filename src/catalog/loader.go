package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/username/pricefolio/src/ebase"
	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/models"
	"github.com/username/pricefolio/src/pricing"
)

// Loader scans a catalog root laid out as
// {manufacturer}/{series}/{region}/{version}/db/pdata.ebase and builds an
// immutable Snapshot. Manufacturers load in parallel and fail in isolation;
// the overall scan budget returns partial results rather than blocking on a
// slow or corrupt file.
type Loader struct {
	root        string
	maxParallel int
	timeout     time.Duration
}

// NewLoader creates a loader over the given catalog root.
func NewLoader(root string, maxParallel int, timeout time.Duration) *Loader {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Loader{root: root, maxParallel: maxParallel, timeout: timeout}
}

type manufacturerResult struct {
	name     string
	series   map[string]*seriesAccumulator
	warnings []models.DataWarning
	err      error
}

type seriesAccumulator struct {
	meta     *models.SeriesMeta
	records  []*models.PriceRecord
	articles map[string]models.Article
	warnings []models.DataWarning
}

// Scan discovers every manufacturer directory under the root and loads them
// on a bounded worker pool. Only an unreadable root is an error; everything
// below that degrades to warnings on the snapshot.
func (l *Loader) Scan(ctx context.Context) (*Snapshot, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading root %s: %w", l.root, err)
	}

	var manufacturers []string
	for _, e := range entries {
		if e.IsDir() {
			manufacturers = append(manufacturers, e.Name())
		}
	}

	scanCtx := ctx
	var cancel context.CancelFunc
	if l.timeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	results := make(chan manufacturerResult, len(manufacturers))
	sem := make(chan struct{}, l.maxParallel)
	for _, m := range manufacturers {
		go func(name string) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-scanCtx.Done():
				results <- manufacturerResult{name: name, err: scanCtx.Err()}
				return
			}
			res := l.loadManufacturer(scanCtx, name)
			results <- res
		}(m)
	}

	snap := &Snapshot{
		series:   make(map[seriesKey]*SeriesData),
		loadedAt: time.Now(),
	}

	pending := len(manufacturers)
	for pending > 0 {
		select {
		case res := <-results:
			pending--
			if res.err != nil {
				snap.warnings = append(snap.warnings, models.NewWarning(models.SeverityError, models.WarnManufacturerLoad,
					fmt.Sprintf("manufacturer %q failed to load: %v", res.name, res.err)))
				logger.L.Warn("Manufacturer load failed", "manufacturer", res.name, "error", res.err)
				continue
			}
			snap.warnings = append(snap.warnings, res.warnings...)
			for seriesName, acc := range res.series {
				ix := pricing.NewRecordIndex(acc.records)
				acc.meta.SurchargeOnly = ix.SurchargeOnly()
				snap.series[seriesKey{manufacturer: res.name, series: seriesName}] = &SeriesData{
					Meta:     acc.meta,
					Index:    ix,
					Articles: acc.articles,
					Warnings: acc.warnings,
				}
			}
			logger.L.Info("Manufacturer loaded", "manufacturer", res.name, "seriesCount", len(res.series))
		case <-scanCtx.Done():
			// Scan budget exhausted: keep what finished, flag the rest.
			snap.warnings = append(snap.warnings, models.NewWarning(models.SeverityError, models.WarnManufacturerLoad,
				fmt.Sprintf("catalog scan budget exhausted with %d manufacturer(s) outstanding, returning partial results", pending)))
			logger.L.Warn("Catalog scan budget exhausted", "outstanding", pending)
			pending = 0
		}
	}

	logger.L.Info("Catalog scan complete", "seriesCount", snap.SeriesCount(), "warningCount", len(snap.warnings))
	return snap, nil
}

// loadManufacturer loads every pdata.ebase of one manufacturer. A series may
// span more than one container file (regions, versions); their records merge
// into one index so a wildcard surcharge can live alongside another file's
// article rows.
func (l *Loader) loadManufacturer(ctx context.Context, name string) manufacturerResult {
	res := manufacturerResult{name: name, series: make(map[string]*seriesAccumulator)}

	pattern := filepath.Join(l.root, name, "*", "*", "*", "db", "pdata.ebase")
	files, err := filepath.Glob(pattern)
	if err != nil {
		res.err = err
		return res
	}
	if len(files) == 0 {
		res.err = fmt.Errorf("no pdata.ebase files under %s", filepath.Join(l.root, name))
		return res
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}

		rel, _ := filepath.Rel(filepath.Join(l.root, name), file)
		parts := strings.Split(filepath.ToSlash(rel), "/")
		seriesName := parts[0]

		acc, ok := res.series[seriesName]
		if !ok {
			acc = &seriesAccumulator{
				meta: &models.SeriesMeta{
					Manufacturer: name,
					Series:       seriesName,
					Conditions:   models.ConditionTable{},
					PriceTexts:   map[uint32]string{},
				},
				articles: make(map[string]models.Article),
			}
			res.series[seriesName] = acc
		}

		container, err := ebase.ReadContainerFile(file)
		if err != nil {
			acc.warnings = append(acc.warnings, models.NewWarning(models.SeverityError, models.WarnManufacturerLoad,
				fmt.Sprintf("skipping unreadable container %s: %v", file, err)))
			logger.L.Warn("Skipping unreadable container", "file", file, "error", err)
			continue
		}
		l.consumeContainer(container, acc)
	}
	return res
}

// consumeContainer decodes every known table of one container into the
// series accumulator.
func (l *Loader) consumeContainer(c *ebase.Container, acc *seriesAccumulator) {
	if t, ok := c.Table(ebase.TablePrices); ok {
		raws, warns := ebase.Decode(ebase.PriceSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			rec, recWarns := models.NormalizePriceRecord(raw)
			acc.warnings = append(acc.warnings, recWarns...)
			if rec != nil {
				acc.records = append(acc.records, rec)
			}
		}
	}

	if t, ok := c.Table(ebase.TableArticles); ok {
		raws, warns := ebase.Decode(ebase.ArticleSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			nr := strings.TrimSpace(raw.Field("nr").S)
			if nr == "" {
				continue
			}
			acc.articles[nr] = models.Article{
				Nr:          nr,
				Description: raw.Field("description").S,
				PropClassID: raw.Field("prop_class_id").U,
			}
		}
	}

	if t, ok := c.Table(ebase.TableArtProps); ok {
		raws, warns := ebase.Decode(ebase.ArtPropSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			nr := strings.TrimSpace(raw.Field("article_nr").S)
			if a, ok := acc.articles[nr]; ok && a.PropClassID == 0 {
				a.PropClassID = raw.Field("prop_class_id").U
				acc.articles[nr] = a
			}
		}
	}

	if t, ok := c.Table(ebase.TableProperties); ok {
		raws, warns := ebase.Decode(ebase.PropertySchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			acc.meta.Properties = append(acc.meta.Properties, models.PropertyDef{
				Key:         strings.TrimSpace(raw.Field("key").S),
				ClassID:     raw.Field("class_id").U,
				Label:       raw.Field("label").S,
				IsSelector:  raw.Field("flags").U&1 != 0,
				DependentOf: strings.TrimSpace(raw.Field("dependent_of").S),
				Position:    raw.Field("position").U,
			})
		}
	}

	if t, ok := c.Table(ebase.TablePropValues); ok {
		raws, warns := ebase.Decode(ebase.PropValueSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			acc.meta.Values = append(acc.meta.Values, models.PropertyValue{
				PropertyKey: strings.TrimSpace(raw.Field("property_key").S),
				Value:       strings.TrimSpace(raw.Field("value").S),
				Label:       raw.Field("label").S,
			})
		}
	}

	if t, ok := c.Table(ebase.TablePriceTexts); ok {
		raws, warns := ebase.Decode(ebase.PriceTextSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			acc.meta.PriceTexts[raw.Field("text_id").U] = raw.Field("text").S
		}
	}

	if t, ok := c.Table(ebase.TableConditions); ok {
		raws, warns := ebase.Decode(ebase.ConditionSchema, t.Data, c.Pool)
		acc.warnings = append(acc.warnings, warns...)
		for _, raw := range raws {
			prop := raw.Field("property_key").S
			val := raw.Field("value").S
			vc := strings.TrimSpace(raw.Field("var_cond").S)
			if prop != "" && vc != "" {
				acc.meta.Conditions[models.ConditionKey(prop, val)] = vc
			}
		}
	}
}
