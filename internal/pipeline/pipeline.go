// Package pipeline runs the curtailment modelling stages end to end over
// already loaded inputs. It performs no I/O.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/events"
	"github.com/chrissnell/ambientderate/internal/impute"
	"github.com/chrissnell/ambientderate/internal/outage"
	"github.com/chrissnell/ambientderate/internal/regression"
	"github.com/chrissnell/ambientderate/internal/types"
	"github.com/chrissnell/ambientderate/internal/weather"
)

// Inputs are the raw tables a regression run consumes
type Inputs struct {
	Curtailments []types.RawCurtailment
	Weather      []types.RawWeatherRow
	Assignments  []types.ResourceAssignment
}

// Options configure a regression run
type Options struct {
	Regression  regression.Config
	ImputeZeros bool

	// Quality collects dropped rows. Nil starts a fresh report, so loaders
	// can share one with the run by passing it here.
	Quality *types.QualityReport
}

// Result is everything a regression run produces
type Result struct {
	RunID          string
	Events         []types.CurtailmentEvent
	Observations   []types.HourlyObservation
	ResourceModels []types.RegressionModel
	UnitTypeModels []types.RegressionModel
	OutageRates    []types.OutageRate
	Quality        *types.QualityReport
}

// Validate checks opts against the assignment table. Every error is a
// *types.ConfigurationError.
func Validate(opts Options, assignments []types.ResourceAssignment) error {
	if err := opts.Regression.Validate(); err != nil {
		return err
	}
	if _, err := regression.LookupPredictor(opts.Regression.Predictor); err != nil {
		return err
	}

	known := make(map[string]bool)
	for _, a := range assignments {
		known[a.UnitType] = true
	}
	for _, ut := range opts.Regression.UnitTypes {
		if !known[ut] {
			return &types.ConfigurationError{
				Field:  "unit_types",
				Reason: fmt.Sprintf("unit type %q is not assigned to any resource", ut),
			}
		}
	}
	return nil
}

// Run executes every stage: weather reduction, event normalization, imputation
// or join, per-resource fits, per-unit-type fits and monthly outage rates.
// Configuration errors abort before any work is done.
func Run(ctx context.Context, opts Options, in Inputs, logger *zap.SugaredLogger) (*Result, error) {
	if err := Validate(opts, in.Assignments); err != nil {
		return nil, err
	}

	quality := opts.Quality
	if quality == nil {
		quality = types.NewQualityReport()
	}
	engine, err := regression.NewEngine(opts.Regression, named(logger, "regression"), quality)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString(), Quality: quality}
	start := time.Now()

	readings := weather.NewJoiner(named(logger, "weather"), quality).Reduce(in.Weather)

	normalizer := events.NewNormalizer(named(logger, "events"), quality)
	var hourly []types.HourlyEvent
	result.Events, hourly = normalizer.Normalize(in.Curtailments)

	imputer := impute.NewImputer(named(logger, "impute"), quality)
	if opts.ImputeZeros {
		result.Observations = imputer.Impute(hourly, in.Assignments, readings)
	} else {
		result.Observations = imputer.Join(hourly, in.Assignments, readings)
	}
	result.Observations = keepUnitTypes(result.Observations, opts.Regression.UnitTypes)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Normalized pooled fits need every resource model first
	result.ResourceModels, err = engine.FitResources(ctx, result.Observations)
	if err != nil {
		return nil, fmt.Errorf("fitting resources: %w", err)
	}
	result.UnitTypeModels, err = engine.FitUnitTypes(ctx, result.Observations, result.ResourceModels)
	if err != nil {
		return nil, fmt.Errorf("fitting unit types: %w", err)
	}

	result.OutageRates = OutageRates(result.Events)

	if logger != nil {
		logger.Infow("regression run complete",
			"run_id", result.RunID,
			"events", len(result.Events),
			"observations", len(result.Observations),
			"resource_models", len(result.ResourceModels),
			"unit_type_models", len(result.UnitTypeModels),
			"dropped", quality.Total(),
			"elapsed", time.Since(start),
		)
	}
	return result, nil
}

// keepUnitTypes restricts obs to the listed unit types. An empty list keeps
// everything.
func keepUnitTypes(obs []types.HourlyObservation, unitTypes []string) []types.HourlyObservation {
	if len(unitTypes) == 0 {
		return obs
	}
	wanted := make(map[string]bool, len(unitTypes))
	for _, ut := range unitTypes {
		wanted[ut] = true
	}
	kept := obs[:0]
	for _, o := range obs {
		if wanted[o.UnitType] {
			kept = append(kept, o)
		}
	}
	return kept
}

// OutageRates computes forced outage rates for every month the events touch.
// Each month reports every resource with a forced event anywhere in the data.
func OutageRates(evs []types.CurtailmentEvent) []types.OutageRate {
	seen := make(map[string]bool)
	var resources []string
	for _, e := range evs {
		if e.OutageType == types.OutageTypeForced && !seen[e.ResourceID] {
			seen[e.ResourceID] = true
			resources = append(resources, e.ResourceID)
		}
	}
	if len(resources) == 0 {
		return nil
	}
	sort.Strings(resources)

	var rates []types.OutageRate
	for _, month := range outage.MonthsSpanned(evs) {
		rates = append(rates, outage.MonthlyRates(evs, resources, month)...)
	}
	return rates
}

// QualityCounts flattens a report into a map for sinks
func QualityCounts(q *types.QualityReport) map[string]int {
	keys := q.Keys()
	if len(keys) == 0 {
		return nil
	}
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = q.Count(k)
	}
	return counts
}

func named(logger *zap.SugaredLogger, stage string) *zap.SugaredLogger {
	if logger == nil {
		return nil
	}
	return logger.Named(stage)
}
