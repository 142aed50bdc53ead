package config

import (
	"errors"
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetRegression() (*RegressionData, error)
	GetInputs() (*InputData, error)
	GetOutput() (*OutputData, error)
	GetForecast() (*ForecastData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of a modelling run
type ConfigData struct {
	Regression RegressionData `json:"regression"`
	Inputs     InputData      `json:"inputs"`
	Output     OutputData     `json:"output,omitempty"`
	Forecast   ForecastData   `json:"forecast,omitempty"`
}

// RegressionData holds the fitting parameters
type RegressionData struct {
	MaximumCurtailment    float64  `json:"maximum_curtailment"`
	MinimumRSquared       float64  `json:"minimum_rsquared"`
	TargetCurtailment     float64  `json:"target_curtailment"`
	UnitTypes             []string `json:"unit_types,omitempty"`
	Multilinear           bool     `json:"multilinear"`
	ImputeZeros           bool     `json:"impute_zeros"`
	NormalizeTemperatures bool     `json:"normalize_temperatures"`
	Predictor             string   `json:"predictor"`
	FixedEffect           string   `json:"fixed_effect"`
}

// InputData locates the extracted source tables
type InputData struct {
	CurtailmentFile string           `json:"curtailment_file,omitempty"`
	WeatherFile     string           `json:"weather_file,omitempty"`
	AssignmentFile  string           `json:"assignment_file,omitempty"`
	TemperatureFile string           `json:"temperature_file,omitempty"`
	ModelsFile      string           `json:"models_file,omitempty"`
	TimescaleDB     *TimescaleDBData `json:"timescaledb,omitempty"`

	// Timezone names the location of timestamps that carry no offset.
	// Empty means UTC.
	Timezone string `json:"timezone,omitempty"`
}

// OutputData holds the configuration for the result sinks
type OutputData struct {
	Directory   string           `json:"directory,omitempty"`
	BundleFile  string           `json:"bundle_file,omitempty"`
	Format      string           `json:"format,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

// ForecastData selects which derate profiles to produce
type ForecastData struct {
	UnitTypes []string           `json:"unit_types,omitempty"`
	Stations  []string           `json:"stations,omitempty"`
	Years     []int              `json:"years,omitempty"`
	Slopes    map[string]float64 `json:"slopes,omitempty"`

	// Intercepts pin explicit derate lines by unit type then station,
	// replacing the rated temperature calibration for those pairs
	Intercepts map[string]map[string]float64 `json:"intercepts,omitempty"`

	// CalibrationFile holds the historical series rated temperatures are
	// taken from. Empty means the forecast series itself.
	CalibrationFile string `json:"calibration_file,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

// DefaultConfigData returns the settings used for anything a config file leaves out
func DefaultConfigData() ConfigData {
	return ConfigData{
		Regression: RegressionData{
			MaximumCurtailment:    1.0,
			MinimumRSquared:       0.0,
			TargetCurtailment:     0.0,
			NormalizeTemperatures: true,
			Predictor:             "dry_bulb",
			FixedEffect:           "resource",
		},
		Output: OutputData{
			Directory: "results",
			Format:    "json",
		},
	}
}

// ValidateRegress checks that everything a regression run reads is configured
func (c *ConfigData) ValidateRegress() error {
	var errs []error
	if c.Inputs.CurtailmentFile == "" {
		errs = append(errs, errors.New("inputs.curtailment-file is required"))
	}
	if c.Inputs.WeatherFile == "" {
		errs = append(errs, errors.New("inputs.weather-file is required"))
	}
	if c.Inputs.AssignmentFile == "" {
		errs = append(errs, errors.New("inputs.assignment-file is required"))
	}
	if err := c.Inputs.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Output.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateForecast checks that everything a forecast run reads is configured
func (c *ConfigData) ValidateForecast() error {
	var errs []error
	if c.Inputs.TemperatureFile == "" && c.Inputs.TimescaleDB == nil {
		errs = append(errs, errors.New("inputs.temperature-file or inputs.timescaledb is required"))
	}
	if c.Inputs.ModelsFile == "" && len(c.Forecast.Slopes) == 0 {
		errs = append(errs, errors.New("inputs.models-file or forecast.slopes is required"))
	}
	if len(c.Forecast.Years) == 0 {
		errs = append(errs, errors.New("forecast.years is required"))
	}
	if err := c.Inputs.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Output.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone
func (i *InputData) Location() (*time.Location, error) {
	if i.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(i.Timezone)
}

func (i *InputData) validate() error {
	if _, err := i.Location(); err != nil {
		return fmt.Errorf("inputs.timezone: %w", err)
	}
	return nil
}

func (o *OutputData) validate() error {
	switch o.Format {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("output.format %q is not json or msgpack", o.Format)
	}
	if o.Directory == "" && o.SQLite == nil && o.TimescaleDB == nil {
		return errors.New("output needs a directory, sqlite or timescaledb sink")
	}
	return nil
}
