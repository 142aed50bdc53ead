package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Keys the file
// leaves out keep their defaults, and environment overrides are applied last.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	defaults := DefaultConfigData()

	// Load into temporary struct with YAML tags, seeded with defaults
	yamlConfig := ConfigYAML{
		Regression: RegressionYAML{
			MaximumCurtailment:    defaults.Regression.MaximumCurtailment,
			MinimumRSquared:       defaults.Regression.MinimumRSquared,
			TargetCurtailment:     defaults.Regression.TargetCurtailment,
			NormalizeTemperatures: defaults.Regression.NormalizeTemperatures,
			Predictor:             defaults.Regression.Predictor,
			FixedEffect:           defaults.Regression.FixedEffect,
		},
		Output: OutputYAML{
			Directory: defaults.Output.Directory,
			Format:    defaults.Output.Format,
		},
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Regression: RegressionData{
			MaximumCurtailment:    yamlConfig.Regression.MaximumCurtailment,
			MinimumRSquared:       yamlConfig.Regression.MinimumRSquared,
			TargetCurtailment:     yamlConfig.Regression.TargetCurtailment,
			UnitTypes:             yamlConfig.Regression.UnitTypes,
			Multilinear:           yamlConfig.Regression.Multilinear,
			ImputeZeros:           yamlConfig.Regression.ImputeZeros,
			NormalizeTemperatures: yamlConfig.Regression.NormalizeTemperatures,
			Predictor:             yamlConfig.Regression.Predictor,
			FixedEffect:           yamlConfig.Regression.FixedEffect,
		},
		Inputs: InputData{
			CurtailmentFile: yamlConfig.Inputs.CurtailmentFile,
			WeatherFile:     yamlConfig.Inputs.WeatherFile,
			AssignmentFile:  yamlConfig.Inputs.AssignmentFile,
			TemperatureFile: yamlConfig.Inputs.TemperatureFile,
			ModelsFile:      yamlConfig.Inputs.ModelsFile,
			Timezone:        yamlConfig.Inputs.Timezone,
		},
		Output: OutputData{
			Directory:  yamlConfig.Output.Directory,
			BundleFile: yamlConfig.Output.BundleFile,
			Format:     yamlConfig.Output.Format,
		},
		Forecast: ForecastData{
			UnitTypes:       yamlConfig.Forecast.UnitTypes,
			Stations:        yamlConfig.Forecast.Stations,
			Years:           yamlConfig.Forecast.Years,
			Slopes:          yamlConfig.Forecast.Slopes,
			Intercepts:      yamlConfig.Forecast.Intercepts,
			CalibrationFile: yamlConfig.Forecast.CalibrationFile,
		},
	}

	// Convert database sections
	if yamlConfig.Inputs.TimescaleDB != nil {
		config.Inputs.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Inputs.TimescaleDB.ConnectionString,
		}
	}
	if yamlConfig.Output.TimescaleDB != nil {
		config.Output.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Output.TimescaleDB.ConnectionString,
		}
	}
	if yamlConfig.Output.SQLite != nil {
		config.Output.SQLite = &SQLiteData{
			Path: yamlConfig.Output.SQLite.Path,
		}
	}

	if err := ApplyEnvironment(config); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// GetRegression returns the fitting parameters
func (y *YAMLProvider) GetRegression() (*RegressionData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Regression, nil
}

// GetInputs returns the input locations
func (y *YAMLProvider) GetInputs() (*InputData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Inputs, nil
}

// GetOutput returns the sink configuration
func (y *YAMLProvider) GetOutput() (*OutputData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Output, nil
}

// GetForecast returns the forecast selection
func (y *YAMLProvider) GetForecast() (*ForecastData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Forecast, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML files
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags

type ConfigYAML struct {
	Regression RegressionYAML `yaml:"regression"`
	Inputs     InputYAML      `yaml:"inputs"`
	Output     OutputYAML     `yaml:"output,omitempty"`
	Forecast   ForecastYAML   `yaml:"forecast,omitempty"`
}

type RegressionYAML struct {
	MaximumCurtailment    float64  `yaml:"maximum-curtailment"`
	MinimumRSquared       float64  `yaml:"minimum-rsquared"`
	TargetCurtailment     float64  `yaml:"target-curtailment"`
	UnitTypes             []string `yaml:"unit-types,omitempty"`
	Multilinear           bool     `yaml:"multilinear"`
	ImputeZeros           bool     `yaml:"impute-zeros"`
	NormalizeTemperatures bool     `yaml:"normalize-temperatures"`
	Predictor             string   `yaml:"predictor,omitempty"`
	FixedEffect           string   `yaml:"fixed-effect,omitempty"`
}

type InputYAML struct {
	CurtailmentFile string           `yaml:"curtailment-file,omitempty"`
	WeatherFile     string           `yaml:"weather-file,omitempty"`
	AssignmentFile  string           `yaml:"assignment-file,omitempty"`
	TemperatureFile string           `yaml:"temperature-file,omitempty"`
	ModelsFile      string           `yaml:"models-file,omitempty"`
	TimescaleDB     *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
	Timezone        string           `yaml:"timezone,omitempty"`
}

type OutputYAML struct {
	Directory   string           `yaml:"directory,omitempty"`
	BundleFile  string           `yaml:"bundle-file,omitempty"`
	Format      string           `yaml:"format,omitempty"`
	SQLite      *SQLiteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type ForecastYAML struct {
	UnitTypes       []string           `yaml:"unit-types,omitempty"`
	Stations        []string           `yaml:"stations,omitempty"`
	Years           []int              `yaml:"years,omitempty"`
	Slopes          map[string]float64 `yaml:"slopes,omitempty"`
	CalibrationFile string             `yaml:"calibration-file,omitempty"`

	Intercepts map[string]map[string]float64 `yaml:"intercepts,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}
