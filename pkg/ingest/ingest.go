// Package ingest parses delimited setpoint log files into a Series,
// aligning wall-clock timestamps to process time zero (inoculation).
// It is the bridge between upstream logger exports and the engine; the
// engine itself only ever sees the parsed series.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

// ErrNoData signals that no usable rows survived parsing.
var ErrNoData = errors.New("no usable rows in setpoint file")

// Layouts tried when parsing timestamp cells, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

// Options selects the columns and alignment for one file.
type Options struct {
	TimestampColumn string // header name, default "timestamp"
	ValueColumn     string // header name, default "value"
	Comma           rune   // field delimiter, default ','

	// Inoculation is process time zero. Zero value means "first valid
	// sample", for logs exported without an inoculation entry.
	Inoculation time.Time
}

func (o Options) withDefaults() Options {
	if o.TimestampColumn == "" {
		o.TimestampColumn = "timestamp"
	}
	if o.ValueColumn == "" {
		o.ValueColumn = "value"
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	return o
}

// ReadFile parses one delimited setpoint log from disk.
func ReadFile(path string, opts Options, log *zap.Logger) (series.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Read(f, opts, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Read parses a delimited setpoint log. Rows with unparsable timestamps or
// values are dropped, not fatal; duplicate timestamps keep the first
// occurrence. The result is sorted and strictly increasing in time.
func Read(r io.Reader, opts Options, log *zap.Logger) (series.Series, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	tsCol, valCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case strings.ToLower(opts.TimestampColumn):
			tsCol = i
		case strings.ToLower(opts.ValueColumn):
			valCol = i
		}
	}
	if tsCol < 0 || valCol < 0 {
		return nil, fmt.Errorf("columns %q and %q not found in header %v", opts.TimestampColumn, opts.ValueColumn, header)
	}

	type row struct {
		ts  time.Time
		val float64
	}
	var rows []row
	dropped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}
		if len(rec) <= tsCol || len(rec) <= valCol {
			dropped++
			continue
		}
		ts, ok := parseTime(rec[tsCol])
		if !ok {
			dropped++
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(rec[valCol]), 64)
		if err != nil {
			dropped++
			continue
		}
		rows = append(rows, row{ts: ts, val: val})
	}
	if dropped > 0 {
		log.Warn("dropped unparsable rows", zap.Int("count", dropped))
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	// Stable sort so equal timestamps keep file order and the first
	// occurrence wins below.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	zero := opts.Inoculation
	if zero.IsZero() {
		zero = rows[0].ts
	}

	out := make(series.Series, 0, len(rows))
	for _, rw := range rows {
		t := rw.ts.Sub(zero).Minutes()
		if len(out) > 0 && t <= out[len(out)-1].T {
			continue // duplicate or regressive timestamp, keep first
		}
		out = append(out, series.Sample{T: t, V: rw.val})
	}
	log.Debug("ingested setpoint file",
		zap.Int("rows", len(rows)),
		zap.Int("samples", len(out)),
		zap.Time("process_zero", zero))
	return out, nil
}

func parseTime(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, true
		}
	}
	// Bare numbers are already process minutes.
	if mins, err := strconv.ParseFloat(cell, 64); err == nil {
		return time.Unix(0, 0).UTC().Add(time.Duration(mins * float64(time.Minute))), true
	}
	return time.Time{}, false
}
