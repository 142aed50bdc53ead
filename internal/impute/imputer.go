// Package impute merges hourly curtailment records with resource assignments
// and weather, optionally filling every unreported resource-hour with an
// assumed zero curtailment.
package impute

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/types"
)

const stage = "impute"

type cellKey struct {
	resource string
	hour     int64
}

type weatherKey struct {
	station string
	hour    int64
}

// Imputer builds the merged hourly dataset the regressions are fitted on.
type Imputer struct {
	logger  *zap.SugaredLogger
	quality *types.QualityReport
}

// NewImputer creates an Imputer. Either argument may be nil.
func NewImputer(logger *zap.SugaredLogger, quality *types.QualityReport) *Imputer {
	return &Imputer{
		logger:  logger,
		quality: quality,
	}
}

// Impute builds the full resource x hour grid spanning the earliest to the
// latest hour of any record, fills cells nobody reported as zero-curtailment
// ambient forced outages, joins assignments and weather, and keeps only
// ambient forced rows. Output is ordered by resource then hour.
func (im *Imputer) Impute(hourly []types.HourlyEvent, assignments []types.ResourceAssignment, weather []types.WeatherReading) []types.HourlyObservation {
	if len(hourly) == 0 {
		return nil
	}

	first, last := hourly[0].Hour, hourly[0].Hour
	cells := make(map[cellKey]types.HourlyEvent, len(hourly))
	for _, h := range hourly {
		if h.Hour.Before(first) {
			first = h.Hour
		}
		if h.Hour.After(last) {
			last = h.Hour
		}
		cells[cellKey{resource: h.ResourceID, hour: h.Hour.Unix()}] = h
	}

	names, pmax := backfills(hourly)
	resources := make([]string, 0, len(names))
	for id := range names {
		resources = append(resources, id)
	}
	sort.Strings(resources)

	assigned := assignmentIndex(assignments)
	readings := weatherIndex(weather)

	var (
		out      []types.HourlyObservation
		imputed  int
		filtered int
	)
	for _, resource := range resources {
		a, ok := assigned[resource]
		if !ok {
			im.quality.Record(&types.DataQualityError{Stage: stage, Reason: "unassigned resource", Key: resource})
			continue
		}

		for hour := first; !hour.After(last); hour = hour.Add(time.Hour) {
			obs := types.HourlyObservation{
				ResourceID: resource,
				UnitType:   a.UnitType,
				StationID:  a.StationID,
				Hour:       hour,
			}

			if h, found := cells[cellKey{resource: resource, hour: hour.Unix()}]; found {
				obs.ResourceName = h.ResourceName
				obs.CurtailmentMW = h.CurtailmentMW
				obs.PmaxMW = h.PmaxMW
				obs.OutageType = h.OutageType
				obs.NatureOfWork = h.NatureOfWork
			} else {
				obs.CurtailmentMW = 0
				obs.PmaxMW = math.NaN()
				obs.OutageType = types.OutageTypeForced
				obs.NatureOfWork = types.NatureOfWorkAmbientTemp
				obs.Imputed = true
				imputed++
			}
			if obs.ResourceName == "" {
				obs.ResourceName = names[resource]
			}
			if math.IsNaN(obs.PmaxMW) {
				obs.PmaxMW = pmax[resource]
			}

			if !im.attachWeather(&obs, readings) {
				continue
			}
			if !obs.IsAmbientForced() {
				filtered++
				continue
			}
			out = append(out, obs)
		}
	}

	if im.logger != nil {
		im.logger.Infof("imputed %d zero-curtailment hours across %d resources; %d non-ambient rows filtered, %d rows kept",
			imputed, len(resources), filtered, len(out))
	}
	return out
}

// Join merges hourly records with assignments and weather without imputing
// anything. When several records share a resource-hour the last one wins.
// Output is ordered by resource then hour.
func (im *Imputer) Join(hourly []types.HourlyEvent, assignments []types.ResourceAssignment, weather []types.WeatherReading) []types.HourlyObservation {
	assigned := assignmentIndex(assignments)
	readings := weatherIndex(weather)

	index := make(map[cellKey]int, len(hourly))
	var out []types.HourlyObservation
	unassigned := make(map[string]bool)
	filtered := 0

	for _, h := range hourly {
		a, ok := assigned[h.ResourceID]
		if !ok {
			if !unassigned[h.ResourceID] {
				unassigned[h.ResourceID] = true
				im.quality.Record(&types.DataQualityError{Stage: stage, Reason: "unassigned resource", Key: h.ResourceID})
			}
			continue
		}

		obs := types.HourlyObservation{
			ResourceID:    h.ResourceID,
			ResourceName:  h.ResourceName,
			UnitType:      a.UnitType,
			StationID:     a.StationID,
			Hour:          h.Hour,
			CurtailmentMW: h.CurtailmentMW,
			PmaxMW:        h.PmaxMW,
			OutageType:    h.OutageType,
			NatureOfWork:  h.NatureOfWork,
		}
		if !im.attachWeather(&obs, readings) {
			continue
		}

		key := cellKey{resource: h.ResourceID, hour: h.Hour.Unix()}
		if i, seen := index[key]; seen {
			out[i] = obs
			continue
		}
		index[key] = len(out)
		out = append(out, obs)
	}

	// the ambient filter runs after the last-wins reduction so a later
	// non-ambient revision still displaces an earlier ambient one
	kept := out[:0]
	for _, obs := range out {
		if obs.IsAmbientForced() {
			kept = append(kept, obs)
		} else {
			filtered++
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		if kept[a].ResourceID != kept[b].ResourceID {
			return kept[a].ResourceID < kept[b].ResourceID
		}
		return kept[a].Hour.Before(kept[b].Hour)
	})

	if im.logger != nil {
		im.logger.Infof("joined %d hourly records to %d observations; %d non-ambient rows filtered", len(hourly), len(kept), filtered)
	}
	return kept
}

func (im *Imputer) attachWeather(obs *types.HourlyObservation, readings map[weatherKey]types.WeatherReading) bool {
	w, ok := readings[weatherKey{station: obs.StationID, hour: obs.Hour.Unix()}]
	if !ok {
		im.quality.Record(&types.DataQualityError{
			Stage:  stage,
			Reason: "no weather for hour",
			Key:    obs.StationID + " " + obs.Hour.Format(time.RFC3339),
		})
		return false
	}
	obs.DryBulbC = w.DryBulbC
	obs.DewPointC = w.DewPointC
	obs.PressureKPa = w.PressureKPa
	return true
}

// backfills returns the first known name and the mean known pmax of every
// resource seen in hourly.
func backfills(hourly []types.HourlyEvent) (map[string]string, map[string]float64) {
	names := make(map[string]string)
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, h := range hourly {
		if _, ok := names[h.ResourceID]; !ok || names[h.ResourceID] == "" {
			names[h.ResourceID] = h.ResourceName
		}
		if !math.IsNaN(h.PmaxMW) {
			sums[h.ResourceID] += h.PmaxMW
			counts[h.ResourceID]++
		}
	}

	pmax := make(map[string]float64, len(names))
	for id := range names {
		if counts[id] == 0 {
			pmax[id] = math.NaN()
			continue
		}
		pmax[id] = sums[id] / float64(counts[id])
	}
	return names, pmax
}

func assignmentIndex(assignments []types.ResourceAssignment) map[string]types.ResourceAssignment {
	index := make(map[string]types.ResourceAssignment, len(assignments))
	for _, a := range assignments {
		index[a.ResourceID] = a
	}
	return index
}

func weatherIndex(weather []types.WeatherReading) map[weatherKey]types.WeatherReading {
	index := make(map[weatherKey]types.WeatherReading, len(weather))
	for _, w := range weather {
		index[weatherKey{station: w.StationID, hour: w.Hour.Truncate(time.Hour).Unix()}] = w
	}
	return index
}
