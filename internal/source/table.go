// Package source loads the extracted input tables: curtailment reports, ISD
// weather, resource assignments, temperature series and fitted models.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
	"go.uber.org/zap"
)

// Layouts tried, in order, for timestamps without an explicit offset
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// Loader parses input tables. Timestamps without an offset are read in loc;
// ISD weather is always UTC.
type Loader struct {
	loc     *time.Location
	logger  *zap.SugaredLogger
	quality *types.QualityReport
}

// NewLoader creates a loader. A nil loc means UTC.
func NewLoader(loc *time.Location, logger *zap.SugaredLogger, quality *types.QualityReport) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{loc: loc, logger: logger, quality: quality}
}

// ReadFile opens path and hands it to read
func ReadFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// table is a CSV file indexed by normalized header name
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		t.columns[normalizeColumn(name)] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := t.columns[normalizeColumn(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %s", strings.Join(missing, ", "))
	}

	t.rows, err = reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return t, nil
}

// normalizeColumn makes header matching insensitive to case, padding and a
// leading byte order mark
func normalizeColumn(name string) string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func (t *table) has(column string) bool {
	_, ok := t.columns[normalizeColumn(column)]
	return ok
}

// get returns the trimmed cell, or "" when the row is short or the column absent
func (t *table) get(row []string, column string) string {
	i, ok := t.columns[normalizeColumn(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// float parses a numeric cell. Blank cells are NaN; malformed cells are NaN
// and counted.
func (l *Loader) float(stage, key, cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		l.quality.Record(&types.DataQualityError{Stage: stage, Reason: "malformed number", Key: key})
		return math.NaN()
	}
	return v
}

// time parses a timestamp cell in loc. The second value is false for a
// blank or malformed cell; malformed cells are counted.
func (l *Loader) time(stage, key, cell string, loc *time.Location) (time.Time, bool) {
	if cell == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, cell); err == nil {
		return t, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, cell, loc); err == nil {
			return t, true
		}
	}
	l.quality.Record(&types.DataQualityError{Stage: stage, Reason: "malformed timestamp", Key: key})
	return time.Time{}, false
}

func (l *Loader) logf(template string, args ...any) {
	if l.logger != nil {
		l.logger.Infof(template, args...)
	}
}
