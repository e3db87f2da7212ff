package ebase

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/username/pricefolio/src/models"
)

// implausibleAmount is the threshold below which a decoded monetary value is
// considered a reinterpreted string offset rather than a price. Subnormal
// float32 values produced by misaligned records sit many orders of magnitude
// below it.
const implausibleAmount = 1e-30

// Decode decodes every fixed-size record of a table blob against a schema,
// resolving string references through the pool. It detects the known
// missing-leading-bytes corruption signature, repairs what it can, drops what
// it cannot, and reports both through warnings. The input bytes are never
// mutated.
func Decode(schema Schema, table []byte, pool *StringPool) ([]models.RawRecord, []models.DataWarning) {
	rowSize := schema.RowSize()
	if rowSize == 0 || len(table) == 0 {
		return nil, nil
	}

	var records []models.RawRecord
	var warnings []models.DataWarning

	maxShift := 0
	if schema.AmountField != "" {
		for _, s := range schema.trialShifts() {
			if s > maxShift && s < rowSize {
				maxShift = s
			}
		}
	}

	off := 0
	idx := 0
	activeShift := 0

	for {
		remaining := len(table) - off
		if remaining <= 0 {
			break
		}
		// A shifted record is physically rowSize-shift bytes; anything
		// shorter than the smallest possible record is a trailing fragment.
		if remaining < rowSize && remaining < rowSize-maxShift {
			warnings = append(warnings, models.NewWarning(models.SeverityWarning, models.WarnMalformedRecord,
				fmt.Sprintf("trailing %d bytes do not form a complete record", remaining)).
				At(fmt.Sprintf("%s#%d", schema.Table, idx)))
			break
		}

		// Clean decode at the nominal offset first. A record that passes the
		// plausibility check resets any active corruption run.
		if remaining >= rowSize {
			rec := decodeAt(schema, table, off, 0, idx, pool)
			if schema.AmountField == "" || plausibleAmount(rec.Field(schema.AmountField).F) {
				records = append(records, rec)
				off += rowSize
				idx++
				activeShift = 0
				continue
			}
		}

		// Plausibility failed (or the blob is too short for a full row inside
		// a corrupted run): try the shift widths, preferring the shift of the
		// current run so a contiguous run repairs consistently.
		shift, rec, ok := detectShift(schema, table, off, idx, activeShift, pool)
		if ok {
			records = append(records, rec)
			warnings = append(warnings, models.NewWarning(models.SeverityWarning, models.WarnRecordRecovered,
				fmt.Sprintf("record repaired with %d-byte leading shift", shift)).At(rec.Locator()))
			off += rowSize - shift
			idx++
			activeShift = shift
			continue
		}

		// Best-effort repair only: no shift satisfied both conditions, so the
		// record is dropped rather than fabricated.
		warnings = append(warnings, models.NewWarning(models.SeverityError, models.WarnRecordUnrecoverable,
			"amount column implausible and no trial shift yielded a printable key and a positive amount; record dropped").
			At(fmt.Sprintf("%s#%d", schema.Table, idx)))
		if remaining >= rowSize {
			off += rowSize
		} else {
			off = len(table)
		}
		idx++
	}

	return records, warnings
}

// detectShift re-decodes the record at the configured trial shifts and
// accepts the first shift whose key field resolves to a non-empty printable
// string and whose amount field is finite and positive. For a well-formed
// record the caller's zero-shift decode already succeeded, so the detector is
// only ever consulted on implausible rows; preferShift orders the active
// run's shift first.
func detectShift(schema Schema, table []byte, off, idx, preferShift int, pool *StringPool) (int, models.RawRecord, bool) {
	rowSize := schema.RowSize()

	shifts := make([]int, 0, len(schema.trialShifts())+1)
	if preferShift > 0 {
		shifts = append(shifts, preferShift)
	}
	for _, s := range schema.trialShifts() {
		if s != preferShift {
			shifts = append(shifts, s)
		}
	}

	for _, shift := range shifts {
		if shift <= 0 || shift >= rowSize {
			continue
		}
		if len(table)-off < rowSize-shift {
			continue
		}
		rec := decodeAt(schema, table, off, shift, idx, pool)
		key := rec.Field(schema.KeyField).S
		amt := rec.Field(schema.AmountField).F
		if isPrintable(key) && plausibleAmount(amt) {
			return shift, rec, true
		}
	}
	return 0, models.RawRecord{}, false
}

// decodeAt decodes one record whose content starts shift bytes into its
// nominal layout. Fields whose bytes are missing decode to zero values.
func decodeAt(schema Schema, table []byte, off, shift, idx int, pool *StringPool) models.RawRecord {
	rec := models.RawRecord{
		Table:  schema.Table,
		Index:  idx,
		Offset: off,
		Shift:  shift,
		Fields: make([]models.FieldValue, 0, len(schema.Fields)),
	}

	fieldOff := 0
	for _, f := range schema.Fields {
		fv := models.FieldValue{Name: f.Name, Kind: schema.kindOf(f.Type)}
		src := off + fieldOff - shift
		if src >= off && src+f.Width <= len(table) {
			raw := binary.LittleEndian.Uint32(table[src : src+f.Width])
			switch f.Type {
			case UInt32:
				fv.U = raw
			case Float32:
				fv.F = math.Float32frombits(raw)
			case StringRef:
				fv.U = raw
				if s, ok := pool.Resolve(raw); ok {
					fv.S = s
				}
			}
		}
		rec.Fields = append(rec.Fields, fv)
		fieldOff += f.Width
	}
	return rec
}

// plausibleAmount reports whether a decoded monetary value looks like a real
// price: finite and no smaller than the subnormal threshold.
func plausibleAmount(v float32) bool {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return f >= implausibleAmount
}
