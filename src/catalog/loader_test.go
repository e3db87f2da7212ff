package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/models"
	"github.com/username/pricefolio/src/pricing"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// Minimal container image builder for loader fixtures.

type poolB struct {
	buf  bytes.Buffer
	offs map[string]uint32
}

func newPoolB() *poolB {
	p := &poolB{offs: make(map[string]uint32)}
	p.buf.WriteByte(0)
	return p
}

func (p *poolB) ref(s string) uint32 {
	if s == "" {
		return 0
	}
	if off, ok := p.offs[s]; ok {
		return off
	}
	off := uint32(p.buf.Len())
	p.buf.WriteString(s)
	p.buf.WriteByte(0)
	p.offs[s] = off
	return off
}

func le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

type tableDef struct {
	name    string
	rowSize int
	rows    [][]byte
}

func buildContainerBytes(tables []tableDef, pool []byte) []byte {
	const headerSize, entrySize = 20, 32
	dirEnd := headerSize + len(tables)*entrySize

	blobOff := dirEnd
	offsets := make([]int, len(tables))
	blobs := make([][]byte, len(tables))
	for i, tb := range tables {
		blobs[i] = bytes.Join(tb.rows, nil)
		offsets[i] = blobOff
		blobOff += len(blobs[i])
	}

	var buf bytes.Buffer
	buf.WriteString("EBSE")
	buf.Write(le(1))
	buf.Write(le(uint32(len(tables))))
	buf.Write(le(uint32(blobOff)))
	buf.Write(le(uint32(len(pool))))
	for i, tb := range tables {
		name := make([]byte, 16)
		copy(name, tb.name)
		buf.Write(name)
		buf.Write(le(uint32(offsets[i])))
		buf.Write(le(uint32(len(blobs[i]))))
		buf.Write(le(uint32(tb.rowSize)))
		buf.Write(le(uint32(len(tb.rows))))
	}
	for _, b := range blobs {
		buf.Write(b)
	}
	buf.Write(pool)
	return buf.Bytes()
}

func priceRowBytes(p *poolB, article, varCond, level string, price float32, isFix uint32, currency string) []byte {
	var b bytes.Buffer
	b.Write(le(1))                            // rec_id
	b.Write(le(0))                            // label_ref
	b.Write(le(p.ref(article)))               // article_nr
	b.Write(le(p.ref(varCond)))               // var_cond
	b.Write(le(p.ref(level)))                 // price_level
	b.Write(le(math.Float32bits(price)))      // price
	b.Write(le(isFix))                        // is_fix
	b.Write(le(p.ref(currency)))              // currency
	b.Write(le(0))                            // date_from
	b.Write(le(0))                            // date_to
	b.Write(le(12))                           // price_text_id
	b.Write(le(math.Float32bits(1)))          // scale_qty
	b.Write(le(0))                            // rounding_id
	return b.Bytes()
}

func articleRowBytes(p *poolB, nr, desc string, classID uint32) []byte {
	var b bytes.Buffer
	b.Write(le(1))
	b.Write(le(p.ref(nr)))
	b.Write(le(p.ref(desc)))
	b.Write(le(classID))
	return b.Bytes()
}

func priceTextRowBytes(p *poolB, id uint32, text string) []byte {
	var b bytes.Buffer
	b.Write(le(id))
	b.Write(le(p.ref(text)))
	return b.Bytes()
}

func writeContainer(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func containerPath(root, manufacturer, series, region, version string) string {
	return filepath.Join(root, manufacturer, series, region, version, "db", "pdata.ebase")
}

func TestScanLoadsSeries(t *testing.T) {
	root := t.TempDir()

	pb := newPoolB()
	data := buildContainerBytes([]tableDef{
		{name: "prices", rowSize: 52, rows: [][]byte{
			priceRowBytes(pb, "AI-121", "S_PGX", "B", 599, 1, "EUR"),
			priceRowBytes(pb, "AI-121", "S_166", "S", 44, 1, "EUR"),
		}},
		{name: "articles", rowSize: 16, rows: [][]byte{
			articleRowBytes(pb, "AI-121", "Swivel chair", 40),
		}},
		{name: "pricetexts", rowSize: 8, rows: [][]byte{
			priceTextRowBytes(pb, 12, "Product group option"),
		}},
	}, pb.buf.Bytes())
	writeContainer(t, containerPath(root, "acme", "alpha", "eu", "2023-1"), data)

	snap, err := NewLoader(root, 2, time.Minute).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.SeriesCount() != 1 {
		t.Fatalf("series count = %d, want 1", snap.SeriesCount())
	}

	sd, ok := snap.Series("acme", "alpha")
	if !ok {
		t.Fatalf("series acme/alpha missing, have %v", snap.SeriesNames())
	}
	if sd.Index.Len() != 2 {
		t.Errorf("indexed records = %d, want 2", sd.Index.Len())
	}
	if _, ok := sd.Articles["AI-121"]; !ok {
		t.Error("article AI-121 not loaded")
	}
	if got := sd.Meta.PriceTexts[12]; got != "Product group option" {
		t.Errorf("price text = %q", got)
	}
	if len(sd.Warnings) != 0 {
		t.Errorf("unexpected series warnings: %v", sd.Warnings)
	}

	// End to end through the engine.
	result := pricing.NewEngine("EUR").Calculate(sd.Index, sd.Meta, "AI-121",
		models.Configuration{"option": "166"}, time.Now(), nil)
	if !result.NetPrice.Equal(decimal.NewFromInt(643)) {
		t.Errorf("net = %s, want 643", result.NetPrice)
	}
	if len(result.Surcharges) != 1 || result.Surcharges[0].Description != "Product group option" {
		t.Errorf("surcharges = %+v", result.Surcharges)
	}
}

func TestScanManufacturerIsolation(t *testing.T) {
	root := t.TempDir()

	pb := newPoolB()
	good := buildContainerBytes([]tableDef{
		{name: "prices", rowSize: 52, rows: [][]byte{
			priceRowBytes(pb, "AI-121", "", "B", 100, 1, "EUR"),
		}},
	}, pb.buf.Bytes())
	writeContainer(t, containerPath(root, "good", "alpha", "eu", "v1"), good)

	// A manufacturer directory without a single readable container fails in
	// isolation.
	if err := os.MkdirAll(filepath.Join(root, "empty", "beta"), 0o755); err != nil {
		t.Fatal(err)
	}
	// A garbage container degrades its series to warnings, not the scan.
	writeContainer(t, containerPath(root, "broken", "gamma", "eu", "v1"), []byte("not an ebase file"))

	snap, err := NewLoader(root, 4, time.Minute).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if _, ok := snap.Series("good", "alpha"); !ok {
		t.Error("healthy manufacturer did not load")
	}

	foundLoadFailure := false
	for _, w := range snap.Warnings() {
		if w.Code == models.WarnManufacturerLoad {
			foundLoadFailure = true
		}
	}
	if !foundLoadFailure {
		t.Errorf("missing %s warning for the empty manufacturer, got %v", models.WarnManufacturerLoad, snap.Warnings())
	}

	sd, ok := snap.Series("broken", "gamma")
	if !ok {
		t.Fatal("series with a garbage container should still appear with warnings")
	}
	if sd.Index.Len() != 0 {
		t.Errorf("garbage container produced %d records", sd.Index.Len())
	}
	if len(sd.Warnings) == 0 {
		t.Error("garbage container produced no series warnings")
	}
}

func TestScanMergesSeriesAcrossContainers(t *testing.T) {
	root := t.TempDir()

	pb1 := newPoolB()
	first := buildContainerBytes([]tableDef{
		{name: "prices", rowSize: 52, rows: [][]byte{
			priceRowBytes(pb1, "2Q_HUDDLE", "", "B", 44140, 1, "EUR"),
		}},
	}, pb1.buf.Bytes())
	writeContainer(t, containerPath(root, "acme", "alpha", "eu", "v1"), first)

	pb2 := newPoolB()
	second := buildContainerBytes([]tableDef{
		{name: "prices", rowSize: 52, rows: [][]byte{
			priceRowBytes(pb2, "*", "PG_WHITEBOARD_EXTERIORS", "S", 1050, 1, "EUR"),
		}},
	}, pb2.buf.Bytes())
	writeContainer(t, containerPath(root, "acme", "alpha", "us", "v2"), second)

	snap, err := NewLoader(root, 1, time.Minute).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.SeriesCount() != 1 {
		t.Fatalf("series count = %d, want 1 merged series", snap.SeriesCount())
	}

	sd, _ := snap.Series("acme", "alpha")
	if sd.Index.Len() != 2 {
		t.Fatalf("merged index holds %d records, want 2", sd.Index.Len())
	}

	result := pricing.NewEngine("EUR").Calculate(sd.Index, sd.Meta, "2Q_HUDDLE",
		models.Configuration{"exterior": "PG_WHITEBOARD_EXTERIORS"}, time.Now(), nil)
	if !result.NetPrice.Equal(decimal.NewFromInt(45190)) {
		t.Errorf("net = %s, want 45190 across both containers", result.NetPrice)
	}
}

func TestScanBudgetReturnsPartialResults(t *testing.T) {
	root := t.TempDir()
	pb := newPoolB()
	data := buildContainerBytes([]tableDef{
		{name: "prices", rowSize: 52, rows: [][]byte{
			priceRowBytes(pb, "AI-121", "", "B", 100, 1, "EUR"),
		}},
	}, pb.buf.Bytes())
	writeContainer(t, containerPath(root, "acme", "alpha", "eu", "v1"), data)

	// An already-exhausted budget must still yield a snapshot, flagging the
	// unloaded manufacturers instead of failing the scan.
	snap, err := NewLoader(root, 1, time.Nanosecond).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	found := false
	for _, w := range snap.Warnings() {
		if w.Code == models.WarnManufacturerLoad {
			found = true
		}
	}
	if !found {
		t.Errorf("missing %s warning on budget exhaustion, got %v", models.WarnManufacturerLoad, snap.Warnings())
	}
}

func TestScanUnreadableRoot(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope"), 1, time.Minute).Scan(context.Background()); err == nil {
		t.Error("expected error for a missing catalog root")
	}
}

func TestSnapshotSeriesNamesSorted(t *testing.T) {
	root := t.TempDir()
	for _, mk := range [][2]string{{"zeta", "b"}, {"acme", "z"}, {"acme", "a"}} {
		pb := newPoolB()
		data := buildContainerBytes([]tableDef{
			{name: "prices", rowSize: 52, rows: [][]byte{
				priceRowBytes(pb, "X1", "", "B", 10, 1, "EUR"),
			}},
		}, pb.buf.Bytes())
		writeContainer(t, containerPath(root, mk[0], mk[1], "eu", "v1"), data)
	}

	snap, err := NewLoader(root, 4, time.Minute).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	names := snap.SeriesNames()
	want := [][2]string{{"acme", "a"}, {"acme", "z"}, {"zeta", "b"}}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}
