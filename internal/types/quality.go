package types

import (
	"errors"
	"sort"
	"sync"
)

// QualityReport tallies the recoverable errors of a single pipeline run.
// A nil *QualityReport discards everything, so pure stages can be called
// without one.
type QualityReport struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewQualityReport returns an empty report.
func NewQualityReport() *QualityReport {
	return &QualityReport{counts: make(map[string]int)}
}

// Record classifies err and increments its counter.
func (q *QualityReport) Record(err error) {
	if q == nil || err == nil {
		return
	}

	var key string
	var dq *DataQualityError
	var pe *ParseError
	var df *DegenerateFitError
	switch {
	case errors.As(err, &dq):
		key = dq.Stage + ": " + dq.Reason
	case errors.As(err, &pe):
		key = "weather: malformed " + pe.Field
	case errors.As(err, &df):
		key = "regression: degenerate " + string(df.Scope)
	default:
		key = "other: " + err.Error()
	}

	q.mu.Lock()
	q.counts[key]++
	q.mu.Unlock()
}

// Count returns the tally for a single key.
func (q *QualityReport) Count(key string) int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[key]
}

// Keys returns every recorded key in sorted order.
func (q *QualityReport) Keys() []string {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]string, 0, len(q.counts))
	for k := range q.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total returns the sum of all counters.
func (q *QualityReport) Total() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, c := range q.counts {
		total += c
	}
	return total
}
