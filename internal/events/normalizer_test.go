package events

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func ambient(mrid string, start time.Time, end *time.Time, mw, pmax float64) types.RawCurtailment {
	return types.RawCurtailment{
		MRID:          mrid,
		ResourceID:    "R1",
		ResourceName:  "Unit One",
		OutageType:    types.OutageTypeForced,
		NatureOfWork:  types.NatureOfWorkAmbientTemp,
		Start:         start,
		End:           end,
		CurtailmentMW: mw,
		PmaxMW:        pmax,
	}
}

func TestExpandThreeHourEvent(t *testing.T) {
	n := NewNormalizer(nil, nil)
	_, hourly := n.Normalize([]types.RawCurtailment{
		ambient("A", at(5, 0), ptr(at(8, 0)), 10, 50),
	})

	if len(hourly) != 3 {
		t.Fatalf("expected 3 hourly records, got %d", len(hourly))
	}
	for i, h := range hourly {
		if !h.Hour.Equal(at(5+i, 0)) {
			t.Errorf("record %d: expected hour %v, got %v", i, at(5+i, 0), h.Hour)
		}
		if pct := h.CurtailmentMW / h.PmaxMW; math.Abs(pct-0.2) > 1e-9 {
			t.Errorf("record %d: expected percent curtailment 0.2, got %.3f", i, pct)
		}
	}
}

func TestExpandHourCounts(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected int
	}{
		{name: "sub-hour", start: at(5, 10), end: at(5, 40), expected: 1},
		{name: "zero length", start: at(5, 0), end: at(5, 0), expected: 1},
		{name: "starts mid-hour", start: at(5, 30), end: at(7, 0), expected: 2},
		{name: "partial final hour dropped", start: at(5, 0), end: at(7, 59), expected: 2},
		{name: "whole day", start: at(0, 0), end: at(0, 0).AddDate(0, 0, 1), expected: 24},
	}

	n := NewNormalizer(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hourly := n.Expand([]types.CurtailmentEvent{{MRID: "A", ResourceID: "R1", Start: tt.start, End: tt.end}})
			if len(hourly) != tt.expected {
				t.Errorf("expected %d records, got %d", tt.expected, len(hourly))
			}
			if !hourly[0].Hour.Equal(tt.start.Truncate(time.Hour)) {
				t.Errorf("expected first hour %v, got %v", tt.start.Truncate(time.Hour), hourly[0].Hour)
			}
		})
	}
}

func TestDeduplicateKeepsLatestRevision(t *testing.T) {
	first := ambient("A", at(5, 0), ptr(at(6, 0)), 10, 50)
	second := ambient("A", at(5, 0), ptr(at(6, 0)), 12, 50)

	tests := []struct {
		name     string
		rows     []types.RawCurtailment
		expected float64
	}{
		{
			name:     "input order",
			rows:     []types.RawCurtailment{first, second},
			expected: 12,
		},
		{
			name: "later submission wins regardless of order",
			rows: func() []types.RawCurtailment {
				a, b := first, second
				a.ReportedAt = at(12, 0)
				b.ReportedAt = at(9, 0)
				return []types.RawCurtailment{a, b}
			}(),
			expected: 10,
		},
		{
			name: "same start hour is one revision",
			rows: func() []types.RawCurtailment {
				b := second
				b.Start = at(5, 20)
				return []types.RawCurtailment{first, b}
			}(),
			expected: 12,
		},
		{
			name: "same instant in another location is one revision",
			rows: func() []types.RawCurtailment {
				pacific := time.FixedZone("PST", -8*3600)
				b := second
				b.Start = at(5, 0).In(pacific)
				b.End = ptr(at(6, 0).In(pacific))
				return []types.RawCurtailment{first, b}
			}(),
			expected: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quality := types.NewQualityReport()
			events := NewNormalizer(nil, quality).Deduplicate(tt.rows)
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].CurtailmentMW != tt.expected {
				t.Errorf("expected curtailment %.0f, got %.0f", tt.expected, events[0].CurtailmentMW)
			}
			if got := quality.Count("events: superseded revision"); got != 1 {
				t.Errorf("expected 1 superseded revision, got %d", got)
			}
		})
	}
}

func TestDeduplicateIsDeterministic(t *testing.T) {
	rows := []types.RawCurtailment{
		ambient("B", at(3, 0), ptr(at(5, 0)), 4, 40),
		ambient("A", at(7, 0), ptr(at(8, 0)), 5, 50),
		ambient("A", at(2, 0), ptr(at(4, 0)), 6, 50),
		ambient("A", at(7, 0), ptr(at(9, 0)), 7, 50),
	}

	n := NewNormalizer(nil, nil)
	firstEvents, firstHourly := n.Normalize(rows)
	for i := 0; i < 5; i++ {
		events, hourly := n.Normalize(rows)
		if !reflect.DeepEqual(events, firstEvents) || !reflect.DeepEqual(hourly, firstHourly) {
			t.Fatalf("run %d produced a different result", i)
		}
	}

	order := []string{"A", "A", "B"}
	for i, e := range firstEvents {
		if e.MRID != order[i] {
			t.Errorf("event %d: expected mrid %s, got %s", i, order[i], e.MRID)
		}
	}
	if !firstEvents[0].Start.Before(firstEvents[1].Start) {
		t.Errorf("expected events of the same mrid ordered by start")
	}
	if firstEvents[1].CurtailmentMW != 7 {
		t.Errorf("expected later revision of A@07:00, got %.0f MW", firstEvents[1].CurtailmentMW)
	}
}

func TestClipToReportDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		start         time.Time
		end           *time.Time
		reportDate    time.Time
		expectedStart time.Time
		expectedEnd   time.Time
		dropped       string
	}{
		{
			name:          "missing end runs to end of day",
			start:         at(20, 0),
			reportDate:    day,
			expectedStart: at(20, 0),
			expectedEnd:   day.AddDate(0, 0, 1),
		},
		{
			name:          "start before day is clipped",
			start:         day.Add(-6 * time.Hour),
			end:           ptr(at(3, 0)),
			reportDate:    day,
			expectedStart: day,
			expectedEnd:   at(3, 0),
		},
		{
			name:          "end after day is clipped",
			start:         at(22, 0),
			end:           ptr(day.AddDate(0, 0, 2)),
			reportDate:    day,
			expectedStart: at(22, 0),
			expectedEnd:   day.AddDate(0, 0, 1),
		},
		{
			name:          "no report date and no end is one hour",
			start:         at(9, 0),
			expectedStart: at(9, 0),
			expectedEnd:   at(10, 0),
		},
		{
			name:       "entirely after report day",
			start:      day.AddDate(0, 0, 1).Add(time.Hour),
			reportDate: day,
			dropped:    "events: outside report day",
		},
		{
			name:    "end before start",
			start:   at(9, 0),
			end:     ptr(at(8, 0)),
			dropped: "events: end before start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := ambient("A", tt.start, tt.end, 10, 50)
			row.ReportDate = tt.reportDate

			quality := types.NewQualityReport()
			events := NewNormalizer(nil, quality).Deduplicate([]types.RawCurtailment{row})

			if tt.dropped != "" {
				if len(events) != 0 {
					t.Fatalf("expected row to be dropped, got %+v", events)
				}
				if quality.Count(tt.dropped) != 1 {
					t.Errorf("expected %q to be counted, got keys %v", tt.dropped, quality.Keys())
				}
				return
			}

			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if !events[0].Start.Equal(tt.expectedStart) || !events[0].End.Equal(tt.expectedEnd) {
				t.Errorf("expected [%v, %v), got [%v, %v)", tt.expectedStart, tt.expectedEnd, events[0].Start, events[0].End)
			}
		})
	}
}

func TestInvalidRowsAreCounted(t *testing.T) {
	valid := ambient("A", at(1, 0), ptr(at(2, 0)), 10, 50)

	noResource := valid
	noResource.ResourceID = " "
	noStart := valid
	noStart.Start = time.Time{}
	noMW := valid
	noMW.CurtailmentMW = math.NaN()
	noPmax := valid
	noPmax.PmaxMW = math.NaN()

	quality := types.NewQualityReport()
	events := NewNormalizer(nil, quality).Deduplicate([]types.RawCurtailment{noResource, noStart, noMW, noPmax, valid})

	if len(events) != 1 {
		t.Fatalf("expected only the valid row to survive, got %d events", len(events))
	}
	for _, key := range []string{
		"events: missing resource id",
		"events: missing start",
		"events: missing curtailment",
		"events: missing pmax",
	} {
		if quality.Count(key) != 1 {
			t.Errorf("expected %q to be counted once, got %d", key, quality.Count(key))
		}
	}
}
