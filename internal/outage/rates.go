// Package outage computes monthly forced outage rates from deduplicated
// curtailment events.
package outage

import (
	"math"
	"sort"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

type accumulator struct {
	pmaxSum   float64
	pmaxCount int
	hours     float64
	mwSum     float64
	mwh       float64
}

// MonthStart returns 00:00 on the first of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthlyRates computes forced outage rates for every resource in
// resourceIDs over the calendar month containing month. An empty resourceIDs
// means every resource with a forced event in the month. Events are clipped to
// the month; resources without outages report zero rates and an unknown
// capacity.
func MonthlyRates(events []types.CurtailmentEvent, resourceIDs []string, month time.Time) []types.OutageRate {
	start := MonthStart(month)
	end := start.AddDate(0, 1, 0)
	monthHours := end.Sub(start).Hours()

	acc := make(map[string]*accumulator)
	for _, e := range events {
		if e.OutageType != types.OutageTypeForced {
			continue
		}
		from, to := e.Start, e.End
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		if !to.After(from) {
			continue
		}

		a := acc[e.ResourceID]
		if a == nil {
			a = &accumulator{}
			acc[e.ResourceID] = a
		}
		hours := to.Sub(from).Hours()
		if !math.IsNaN(e.PmaxMW) {
			a.pmaxSum += e.PmaxMW
			a.pmaxCount++
		}
		a.hours += hours
		a.mwSum += e.CurtailmentMW
		a.mwh += e.CurtailmentMW * hours
	}

	ids := resourceIDs
	if len(ids) == 0 {
		ids = make([]string, 0, len(acc))
		for id := range acc {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	rates := make([]types.OutageRate, 0, len(ids))
	for _, id := range ids {
		r := types.OutageRate{ResourceID: id, Month: start, CapacityMW: math.NaN()}

		a := acc[id]
		if a == nil {
			rates = append(rates, r)
			continue
		}
		if a.pmaxCount > 0 {
			r.CapacityMW = a.pmaxSum / float64(a.pmaxCount)
		}
		r.OutageHours = a.hours
		r.SumCurtailmentMW = a.mwSum
		r.OutageMWh = a.mwh
		r.TimeWeightedMW = a.mwh / a.hours
		r.ForcedOutageRateTime = a.hours / monthHours
		r.ForcedOutageRateMWh = a.mwh / (r.CapacityMW * monthHours)
		rates = append(rates, r)
	}
	return rates
}

// MonthsSpanned lists the first of every month any event touches, in order.
func MonthsSpanned(events []types.CurtailmentEvent) []time.Time {
	if len(events) == 0 {
		return nil
	}

	first, last := events[0].Start, events[0].End
	for _, e := range events {
		if e.Start.Before(first) {
			first = e.Start
		}
		if e.End.After(last) {
			last = e.End
		}
	}

	months := []time.Time{MonthStart(first)}
	for m := months[0].AddDate(0, 1, 0); m.Before(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
