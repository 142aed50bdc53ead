// Package events turns raw curtailment report rows into clipped, deduplicated
// events and expands them onto hourly records.
package events

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/types"
)

const stage = "events"

// revisionKey holds the start hour as Unix seconds so one instant matches
// across locations
type revisionKey struct {
	mrid  string
	start int64
}

type revision struct {
	event      types.CurtailmentEvent
	reportedAt time.Time
}

// Normalizer clips, deduplicates and expands curtailment reports. It holds no
// state between calls.
type Normalizer struct {
	logger  *zap.SugaredLogger
	quality *types.QualityReport
}

// NewNormalizer creates a Normalizer. Either argument may be nil.
func NewNormalizer(logger *zap.SugaredLogger, quality *types.QualityReport) *Normalizer {
	return &Normalizer{
		logger:  logger,
		quality: quality,
	}
}

// Normalize runs Deduplicate then Expand.
func (n *Normalizer) Normalize(rows []types.RawCurtailment) ([]types.CurtailmentEvent, []types.HourlyEvent) {
	events := n.Deduplicate(rows)
	return events, n.Expand(events)
}

// Deduplicate validates and clips every row, then keeps one revision per
// (mrid, start hour): the one from the most recently submitted report, or the
// later input row when submission times tie. Events are returned ordered by
// mrid then start.
func (n *Normalizer) Deduplicate(rows []types.RawCurtailment) []types.CurtailmentEvent {
	index := make(map[revisionKey]int)
	var kept []revision

	for _, row := range rows {
		event, ok := n.clip(row)
		if !ok {
			continue
		}

		key := revisionKey{mrid: event.MRID, start: event.Start.Truncate(time.Hour).Unix()}
		if i, seen := index[key]; seen {
			// equal submission times fall through to the later row
			if row.ReportedAt.Before(kept[i].reportedAt) {
				n.drop("superseded revision", row)
				continue
			}
			n.drop("superseded revision", rowOf(kept[i].event))
			kept[i] = revision{event: event, reportedAt: row.ReportedAt}
			continue
		}
		index[key] = len(kept)
		kept = append(kept, revision{event: event, reportedAt: row.ReportedAt})
	}

	events := make([]types.CurtailmentEvent, len(kept))
	for i, r := range kept {
		events[i] = r.event
	}
	sort.SliceStable(events, func(a, b int) bool {
		if events[a].MRID != events[b].MRID {
			return events[a].MRID < events[b].MRID
		}
		return events[a].Start.Before(events[b].Start)
	})

	if n.logger != nil {
		n.logger.Infof("normalized %d curtailment rows to %d events", len(rows), len(events))
	}
	return events
}

// Expand emits one record per whole hour an event covers, starting at the hour
// containing its start. Every event yields at least one record. Output order
// follows the input order of events, then hour.
func (n *Normalizer) Expand(events []types.CurtailmentEvent) []types.HourlyEvent {
	var hourly []types.HourlyEvent
	for _, e := range events {
		first := e.Start.Truncate(time.Hour)
		count := int(e.End.Sub(first) / time.Hour)
		if count < 1 {
			count = 1
		}
		for h := 0; h < count; h++ {
			hourly = append(hourly, types.HourlyEvent{
				MRID:          e.MRID,
				ResourceID:    e.ResourceID,
				ResourceName:  e.ResourceName,
				Hour:          first.Add(time.Duration(h) * time.Hour),
				CurtailmentMW: e.CurtailmentMW,
				PmaxMW:        e.PmaxMW,
				OutageType:    e.OutageType,
				NatureOfWork:  e.NatureOfWork,
			})
		}
	}

	if n.logger != nil {
		n.logger.Debugf("expanded %d events to %d hourly records", len(events), len(hourly))
	}
	return hourly
}

// clip validates a row and confines it to its reporting day.
func (n *Normalizer) clip(row types.RawCurtailment) (types.CurtailmentEvent, bool) {
	switch {
	case strings.TrimSpace(row.ResourceID) == "":
		n.drop("missing resource id", row)
		return types.CurtailmentEvent{}, false
	case row.Start.IsZero():
		n.drop("missing start", row)
		return types.CurtailmentEvent{}, false
	case math.IsNaN(row.CurtailmentMW):
		n.drop("missing curtailment", row)
		return types.CurtailmentEvent{}, false
	case math.IsNaN(row.PmaxMW):
		n.drop("missing pmax", row)
		return types.CurtailmentEvent{}, false
	}

	start := row.Start
	var end time.Time

	if row.ReportDate.IsZero() {
		if row.End != nil {
			end = *row.End
		} else {
			end = start.Add(time.Hour)
		}
	} else {
		y, m, d := row.ReportDate.Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, row.ReportDate.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)

		if start.Before(dayStart) {
			start = dayStart
		}
		if row.End == nil || row.End.After(dayEnd) {
			end = dayEnd
		} else {
			end = *row.End
		}
		if !start.Before(dayEnd) {
			n.drop("outside report day", row)
			return types.CurtailmentEvent{}, false
		}
	}

	if end.Before(start) {
		n.drop("end before start", row)
		return types.CurtailmentEvent{}, false
	}

	return types.CurtailmentEvent{
		MRID:          strings.TrimSpace(row.MRID),
		ResourceID:    strings.TrimSpace(row.ResourceID),
		ResourceName:  strings.TrimSpace(row.ResourceName),
		OutageType:    strings.TrimSpace(row.OutageType),
		NatureOfWork:  strings.TrimSpace(row.NatureOfWork),
		Start:         start,
		End:           end,
		CurtailmentMW: row.CurtailmentMW,
		PmaxMW:        row.PmaxMW,
	}, true
}

func (n *Normalizer) drop(reason string, row types.RawCurtailment) {
	n.quality.Record(&types.DataQualityError{
		Stage:  stage,
		Reason: reason,
		Key:    row.MRID + " " + row.ResourceID,
	})
}

func rowOf(e types.CurtailmentEvent) types.RawCurtailment {
	return types.RawCurtailment{MRID: e.MRID, ResourceID: e.ResourceID}
}
