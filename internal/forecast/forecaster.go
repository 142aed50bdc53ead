// Package forecast turns fitted derate slopes and a temperature series into
// hourly capacity derate profiles.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/types"
)

type parameterKey struct {
	unitType string
	station  string
}

// Forecaster holds one derate slope per unit type and, once stations are
// calibrated, an intercept per (unit type, station).
type Forecaster struct {
	slopes map[string]float64
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	params map[parameterKey]types.DerateParameters
}

// NewForecaster creates a Forecaster for the given unit type slopes. Derate
// slopes are normally negative: availability falls as temperature rises.
func NewForecaster(slopes map[string]float64, logger *zap.SugaredLogger) *Forecaster {
	s := make(map[string]float64, len(slopes))
	for k, v := range slopes {
		s[k] = v
	}
	return &Forecaster{
		slopes: s,
		logger: logger,
		params: make(map[parameterKey]types.DerateParameters),
	}
}

// SlopesFromModels derives derate slopes from unit type curtailment models.
// Availability is one minus curtailment, so the curtailment slope is negated.
// Degenerate models are skipped.
func SlopesFromModels(models []types.RegressionModel) map[string]float64 {
	slopes := make(map[string]float64)
	for _, m := range models {
		if m.Scope != types.ScopeUnitType || m.Degenerate() {
			continue
		}
		slopes[m.ScopeID] = -m.Slope
	}
	return slopes
}

// UnitTypes returns the unit types the forecaster has slopes for, sorted.
func (f *Forecaster) UnitTypes() []string {
	ids := make([]string, 0, len(f.slopes))
	for id := range f.slopes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RatedTemperature is the lowest daily mean temperature over the first
// calendar year present in series. Samples are assumed to come from a single
// station.
func RatedTemperature(series []types.TemperatureSample) (float64, error) {
	firstYear := math.MaxInt
	for _, s := range series {
		if valid(s) && s.Timestamp.Year() < firstYear {
			firstYear = s.Timestamp.Year()
		}
	}
	if firstYear == math.MaxInt {
		return math.NaN(), fmt.Errorf("no valid temperature samples")
	}

	type day struct {
		sum float64
		n   int
	}
	days := make(map[time.Time]*day)
	for _, s := range series {
		if !valid(s) || s.Timestamp.Year() != firstYear {
			continue
		}
		y, m, d := s.Timestamp.Date()
		key := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if days[key] == nil {
			days[key] = &day{}
		}
		days[key].sum += s.TemperatureC
		days[key].n++
	}

	rated := math.Inf(1)
	for _, d := range days {
		rated = math.Min(rated, d.sum/float64(d.n))
	}
	return rated, nil
}

// Calibrate pins every unit type's derate line to 1.0 at the station's rated
// temperature. series must hold only the station's samples.
func (f *Forecaster) Calibrate(station string, series []types.TemperatureSample) error {
	rated, err := RatedTemperature(series)
	if err != nil {
		return fmt.Errorf("calibrating %s: %w", station, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for unitType, slope := range f.slopes {
		f.params[parameterKey{unitType: unitType, station: station}] = types.DerateParameters{
			UnitType:         unitType,
			StationID:        station,
			Slope:            slope,
			Intercept:        1 - slope*rated,
			RatedTemperature: rated,
		}
	}

	if f.logger != nil {
		f.logger.Infof("station %s rated temperature %.2fC", station, rated)
	}
	return nil
}

// SetParameters installs explicit parameters, overriding any calibration.
// Explicit lines carry a NaN rated temperature.
func (f *Forecaster) SetParameters(p types.DerateParameters) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params[parameterKey{unitType: p.UnitType, station: p.StationID}] = p
}

// Parameters returns the derate parameters for a unit type at a station.
func (f *Forecaster) Parameters(unitType, station string) (types.DerateParameters, error) {
	f.mu.RLock()
	p, ok := f.params[parameterKey{unitType: unitType, station: station}]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	if _, known := f.slopes[unitType]; !known {
		return types.DerateParameters{}, &types.ConfigurationError{
			Field:  "unit_types",
			Reason: fmt.Sprintf("no derate slope for unit type %q", unitType),
		}
	}
	return types.DerateParameters{}, fmt.Errorf("station %s has not been calibrated", station)
}

// Derate evaluates the derate line at temperature t, clamped to [0, 1]. A
// calibrated line is evaluated about its rated temperature so it is exactly
// 1.0 there. Lines with a NaN rated temperature use the intercept.
func Derate(p types.DerateParameters, t float64) float64 {
	v := p.Slope*t + p.Intercept
	if !math.IsNaN(p.RatedTemperature) {
		v = 1 + p.Slope*(t-p.RatedTemperature)
	}
	return math.Max(0, math.Min(1, v))
}

// Profile computes the hourly derate profile of a unit type at a station for
// one year of series. Samples from other stations or years are ignored. The
// hour index counts from January 1 00:00 and starts at 1.
func (f *Forecaster) Profile(unitType, station string, year int, series []types.TemperatureSample) (types.DerateProfile, error) {
	p, err := f.Parameters(unitType, station)
	if err != nil {
		return types.DerateProfile{}, err
	}

	var samples []types.TemperatureSample
	for _, s := range series {
		if s.StationID == station && s.Timestamp.Year() == year && valid(s) {
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(a, b int) bool {
		return samples[a].Timestamp.Before(samples[b].Timestamp)
	})

	profile := types.DerateProfile{
		UnitType:  unitType,
		StationID: station,
		Year:      year,
		Points:    make([]types.ProfilePoint, len(samples)),
	}
	for i, s := range samples {
		jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, s.Timestamp.Location())
		profile.Points[i] = types.ProfilePoint{
			Hour:   int(s.Timestamp.Sub(jan1)/time.Hour) + 1,
			Factor: Derate(p, s.TemperatureC),
		}
	}

	if len(samples) == 0 && f.logger != nil {
		f.logger.Warnf("no %d temperature samples for station %s", year, station)
	}
	return profile, nil
}

func valid(s types.TemperatureSample) bool {
	return !math.IsNaN(s.TemperatureC) && !math.IsInf(s.TemperatureC, 0)
}
