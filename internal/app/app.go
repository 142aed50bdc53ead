// Package app wires configuration, input loading, the modelling pipeline and
// the result sinks together for the command line tools.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/forecast"
	"github.com/chrissnell/ambientderate/internal/managers"
	"github.com/chrissnell/ambientderate/internal/pipeline"
	"github.com/chrissnell/ambientderate/internal/regression"
	"github.com/chrissnell/ambientderate/internal/source"
	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/types"
	"github.com/chrissnell/ambientderate/pkg/config"
)

// Command names stamped on stored runs
const (
	CommandRegress  = "curtailment-regress"
	CommandForecast = "derate-forecast"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Regress loads the curtailment, weather and assignment tables, fits every
// model and writes the results to the configured sinks
func (a *App) Regress(ctx context.Context) error {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if err := cfg.ValidateRegress(); err != nil {
		return &types.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	loc, err := cfg.Inputs.Location()
	if err != nil {
		return err
	}
	quality := types.NewQualityReport()
	loader := source.NewLoader(loc, a.logger.Named("source"), quality)

	var in pipeline.Inputs
	if in.Curtailments, err = source.ReadFile(cfg.Inputs.CurtailmentFile, loader.Curtailments); err != nil {
		return err
	}
	if in.Weather, err = source.ReadFile(cfg.Inputs.WeatherFile, loader.Weather); err != nil {
		return err
	}
	if in.Assignments, err = source.ReadFile(cfg.Inputs.AssignmentFile, loader.Assignments); err != nil {
		return err
	}

	opts := pipeline.Options{
		Regression:  RegressionConfig(cfg.Regression),
		ImputeZeros: cfg.Regression.ImputeZeros,
		Quality:     quality,
	}
	result, err := pipeline.Run(ctx, opts, in, a.logger.Named("pipeline"))
	if err != nil {
		return err
	}
	a.reportQuality(quality)

	return a.store(ctx, &cfg.Output, &storage.Results{
		RunID:          result.RunID,
		Command:        CommandRegress,
		Observations:   result.Observations,
		ResourceModels: result.ResourceModels,
		UnitTypeModels: result.UnitTypeModels,
		OutageRates:    result.OutageRates,
		Quality:        pipeline.QualityCounts(quality),
	})
}

// Forecast calibrates rated temperatures, computes derate profiles for the
// configured unit types, stations and years, and writes them to the sinks
func (a *App) Forecast(ctx context.Context) error {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if err := cfg.ValidateForecast(); err != nil {
		return &types.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	loc, err := cfg.Inputs.Location()
	if err != nil {
		return err
	}
	quality := types.NewQualityReport()
	loader := source.NewLoader(loc, a.logger.Named("source"), quality)

	in := pipeline.ForecastInputs{
		Slopes:     make(map[string]float64),
		Intercepts: cfg.Forecast.Intercepts,
	}
	if cfg.Inputs.ModelsFile != "" {
		models, err := source.ReadFile(cfg.Inputs.ModelsFile, loader.Models)
		if err != nil {
			return err
		}
		for unitType, slope := range forecast.SlopesFromModels(models) {
			in.Slopes[unitType] = slope
		}
	}
	// Configured slopes override fitted ones
	for unitType, slope := range cfg.Forecast.Slopes {
		in.Slopes[unitType] = slope
	}

	if cfg.Inputs.TemperatureFile != "" {
		in.Series, err = source.ReadFile(cfg.Inputs.TemperatureFile, loader.Temperatures)
	} else {
		in.Series, err = a.queryTemperatures(ctx, cfg.Inputs.TimescaleDB, cfg.Forecast, loc)
	}
	if err != nil {
		return err
	}
	if cfg.Forecast.CalibrationFile != "" {
		if in.Calibration, err = source.ReadFile(cfg.Forecast.CalibrationFile, loader.Temperatures); err != nil {
			return err
		}
	}

	opts := pipeline.ForecastOptions{
		UnitTypes: cfg.Forecast.UnitTypes,
		Stations:  cfg.Forecast.Stations,
		Years:     cfg.Forecast.Years,
	}
	result, err := pipeline.Forecast(ctx, opts, in, a.logger.Named("pipeline"))
	if err != nil {
		return err
	}
	for _, p := range result.Parameters {
		a.logger.Infow("derate parameters",
			"unit_type", p.UnitType,
			"station", p.StationID,
			"slope", p.Slope,
			"intercept", p.Intercept,
			"rated_temperature_c", p.RatedTemperature,
		)
	}
	a.reportQuality(quality)

	return a.store(ctx, &cfg.Output, &storage.Results{
		RunID:    uuid.NewString(),
		Command:  CommandForecast,
		Profiles: result.Profiles,
		Quality:  pipeline.QualityCounts(quality),
	})
}

// RegressionConfig maps the configuration section onto the engine's settings
func RegressionConfig(r config.RegressionData) regression.Config {
	return regression.Config{
		MaximumCurtailment:    r.MaximumCurtailment,
		MinimumRSquared:       r.MinimumRSquared,
		TargetCurtailment:     r.TargetCurtailment,
		UnitTypes:             r.UnitTypes,
		Multilinear:           r.Multilinear,
		NormalizeTemperatures: r.NormalizeTemperatures,
		Predictor:             r.Predictor,
		FixedEffect:           r.FixedEffect,
	}
}

// queryTemperatures reads every configured station's hourly series, from
// January 1 of the first forecast year through the end of the last
func (a *App) queryTemperatures(ctx context.Context, db *config.TimescaleDBData, f config.ForecastData, loc *time.Location) ([]types.TemperatureSample, error) {
	if len(f.Stations) == 0 {
		return nil, &types.ConfigurationError{Field: "stations", Reason: "a TimescaleDB temperature source needs explicit stations"}
	}

	first, last := f.Years[0], f.Years[0]
	for _, y := range f.Years {
		first, last = min(first, y), max(last, y)
	}
	from := time.Date(first, time.January, 1, 0, 0, 0, 0, loc)
	to := time.Date(last+1, time.January, 1, 0, 0, 0, 0, loc)

	src, err := source.NewTimescaleDBSource(db.ConnectionString, a.logger.Named("timescaledb"))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var series []types.TemperatureSample
	for _, station := range f.Stations {
		samples, err := src.Temperatures(ctx, station, from, to)
		if err != nil {
			return nil, err
		}
		// Hour indexes count from January 1 in the configured location
		for i := range samples {
			samples[i].Timestamp = samples[i].Timestamp.In(loc)
		}
		series = append(series, samples...)
	}
	return series, nil
}

func (a *App) store(ctx context.Context, output *config.OutputData, r *storage.Results) error {
	sm, err := managers.NewStorageManager(ctx, output, a.logger.Named("storage"))
	if err != nil {
		sm.Close()
		return err
	}
	defer sm.Close()

	if err := sm.Write(ctx, r); err != nil {
		return fmt.Errorf("could not store run %s: %w", r.RunID, err)
	}
	a.logger.Infof("run %s stored in %d sinks", r.RunID, len(sm.Sinks))
	return nil
}

func (a *App) reportQuality(q *types.QualityReport) {
	for _, key := range q.Keys() {
		a.logger.Infow("data quality", "reason", key, "count", q.Count(key))
	}
}
