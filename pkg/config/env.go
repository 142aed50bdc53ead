package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const envPrefix = "AMBIENTDERATE_"

// ApplyEnvironment overrides config with AMBIENTDERATE_* variables. A .env
// file in the working directory is loaded first if present; variables already
// set in the environment take precedence over it.
func ApplyEnvironment(config *ConfigData) error {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	var err error
	r := &config.Regression

	if r.MaximumCurtailment, err = getEnvAsFloat("MAXIMUM_CURTAILMENT", r.MaximumCurtailment); err != nil {
		return err
	}
	if r.MinimumRSquared, err = getEnvAsFloat("MINIMUM_RSQUARED", r.MinimumRSquared); err != nil {
		return err
	}
	if r.TargetCurtailment, err = getEnvAsFloat("TARGET_CURTAILMENT", r.TargetCurtailment); err != nil {
		return err
	}
	if r.ImputeZeros, err = getEnvAsBool("IMPUTE_ZEROS", r.ImputeZeros); err != nil {
		return err
	}
	if r.Multilinear, err = getEnvAsBool("MULTILINEAR", r.Multilinear); err != nil {
		return err
	}
	r.Predictor = getEnv("PREDICTOR", r.Predictor)

	config.Output.Directory = getEnv("OUTPUT_DIR", config.Output.Directory)

	if path := getEnv("SQLITE_PATH", ""); path != "" {
		config.Output.SQLite = &SQLiteData{Path: path}
	}
	if conn := getEnv("OUTPUT_TIMESCALEDB", ""); conn != "" {
		config.Output.TimescaleDB = &TimescaleDBData{ConnectionString: conn}
	}
	if conn := getEnv("INPUT_TIMESCALEDB", ""); conn != "" {
		config.Inputs.TimescaleDB = &TimescaleDBData{ConnectionString: conn}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return f, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return b, nil
}
