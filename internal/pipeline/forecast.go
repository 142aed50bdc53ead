package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/ambientderate/internal/forecast"
	"github.com/chrissnell/ambientderate/internal/types"
)

// ForecastInputs are the slopes and temperature series a forecast run consumes
type ForecastInputs struct {
	// Slopes are derate per °C by unit type
	Slopes map[string]float64

	// Calibration is the historical series rated temperatures come from.
	// Empty means Series.
	Calibration []types.TemperatureSample

	// Series is the trajectory profiles are computed over
	Series []types.TemperatureSample

	// Intercepts are explicit lines by unit type then station. They replace
	// the calibrated line for those pairs.
	Intercepts map[string]map[string]float64
}

// ForecastOptions select the profiles to produce. Empty UnitTypes or
// Stations mean every one available.
type ForecastOptions struct {
	UnitTypes []string
	Stations  []string
	Years     []int
}

// ForecastResult holds the profiles of a forecast run in (unit type, station,
// year) order
type ForecastResult struct {
	Parameters []types.DerateParameters
	Profiles   []types.DerateProfile
}

// Forecast calibrates every selected station and computes a profile for each
// (unit type, station, year). Stations are processed concurrently.
func Forecast(ctx context.Context, opts ForecastOptions, in ForecastInputs, logger *zap.SugaredLogger) (*ForecastResult, error) {
	f := forecast.NewForecaster(in.Slopes, named(logger, "forecast"))

	unitTypes := opts.UnitTypes
	if len(unitTypes) == 0 {
		unitTypes = f.UnitTypes()
	}
	for _, ut := range unitTypes {
		if _, ok := in.Slopes[ut]; !ok {
			return nil, &types.ConfigurationError{
				Field:  "unit_types",
				Reason: fmt.Sprintf("no derate slope for unit type %q", ut),
			}
		}
	}
	if len(unitTypes) == 0 {
		return nil, &types.ConfigurationError{Field: "slopes", Reason: "no usable unit type slopes"}
	}
	if len(opts.Years) == 0 {
		return nil, &types.ConfigurationError{Field: "years", Reason: "no forecast years"}
	}
	overrides, err := explicitLines(in)
	if err != nil {
		return nil, err
	}

	series := byStation(in.Series)
	calibration := series
	if len(in.Calibration) > 0 {
		calibration = byStation(in.Calibration)
	}

	stations := opts.Stations
	if len(stations) == 0 {
		for id := range series {
			stations = append(stations, id)
		}
		sort.Strings(stations)
	}

	// Each station writes its own slot
	perStation := make([][]types.DerateProfile, len(stations))
	params := make([][]types.DerateParameters, len(stations))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, station := range stations {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.Calibrate(station, calibration[station]); err != nil {
				return err
			}
			for _, p := range overrides[station] {
				f.SetParameters(p)
			}
			for _, ut := range unitTypes {
				p, err := f.Parameters(ut, station)
				if err != nil {
					return err
				}
				params[i] = append(params[i], p)

				for _, year := range opts.Years {
					profile, err := f.Profile(ut, station, year, series[station])
					if err != nil {
						return err
					}
					perStation[i] = append(perStation[i], profile)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ForecastResult{}
	for i := range stations {
		result.Parameters = append(result.Parameters, params[i]...)
		result.Profiles = append(result.Profiles, perStation[i]...)
	}
	sort.SliceStable(result.Profiles, func(a, b int) bool {
		pa, pb := result.Profiles[a], result.Profiles[b]
		if pa.UnitType != pb.UnitType {
			return pa.UnitType < pb.UnitType
		}
		if pa.StationID != pb.StationID {
			return pa.StationID < pb.StationID
		}
		return pa.Year < pb.Year
	})

	if logger != nil {
		logger.Infof("computed %d derate profiles for %d unit types at %d stations", len(result.Profiles), len(unitTypes), len(stations))
	}
	return result, nil
}

// explicitLines turns configured intercepts into parameters keyed by station
func explicitLines(in ForecastInputs) (map[string][]types.DerateParameters, error) {
	lines := make(map[string][]types.DerateParameters)
	for unitType, stations := range in.Intercepts {
		slope, ok := in.Slopes[unitType]
		if !ok {
			return nil, &types.ConfigurationError{
				Field:  "intercepts",
				Reason: fmt.Sprintf("no derate slope for unit type %q", unitType),
			}
		}
		for station, intercept := range stations {
			lines[station] = append(lines[station], types.DerateParameters{
				UnitType:         unitType,
				StationID:        station,
				Slope:            slope,
				Intercept:        intercept,
				RatedTemperature: math.NaN(),
			})
		}
	}
	return lines, nil
}

func byStation(series []types.TemperatureSample) map[string][]types.TemperatureSample {
	m := make(map[string][]types.TemperatureSample)
	for _, s := range series {
		m[s.StationID] = append(m[s.StationID], s)
	}
	return m
}
