package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/ambientderate/pkg/config"
)

func main() {
	var (
		yamlFile = flag.String("config", "", "Path to YAML configuration file")
		mode     = flag.String("mode", "all", "Which run to validate for: regress, forecast or all")
	)
	flag.Parse()

	if *yamlFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config <config.yaml> [-mode regress|forecast|all]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Check")
	fmt.Println("===================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	provider := config.NewYAMLProvider(*yamlFile)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	printConfig(cfg)

	failed := false
	if *mode == "all" || *mode == "regress" {
		failed = report("curtailment-regress", cfg.ValidateRegress()) || failed
	}
	if *mode == "all" || *mode == "forecast" {
		failed = report("derate-forecast", cfg.ValidateForecast()) || failed
	}
	if failed {
		os.Exit(1)
	}
}

func report(command string, err error) bool {
	if err != nil {
		fmt.Printf("✗ %s:\n%v\n", command, err)
		return true
	}
	fmt.Printf("✓ %s configuration is complete\n", command)
	return false
}

func printConfig(cfg *config.ConfigData) {
	r := cfg.Regression
	fmt.Println("\nRegression:")
	fmt.Printf("  predictor: %s, fixed effect: %s\n", r.Predictor, r.FixedEffect)
	fmt.Printf("  maximum curtailment: %g, minimum r²: %g, target curtailment: %g\n",
		r.MaximumCurtailment, r.MinimumRSquared, r.TargetCurtailment)
	fmt.Printf("  multilinear: %t, impute zeros: %t, normalize temperatures: %t\n",
		r.Multilinear, r.ImputeZeros, r.NormalizeTemperatures)
	if len(r.UnitTypes) > 0 {
		fmt.Printf("  unit types: %v\n", r.UnitTypes)
	}

	in := cfg.Inputs
	fmt.Println("\nInputs:")
	for _, f := range []struct{ name, path string }{
		{"curtailments", in.CurtailmentFile},
		{"weather", in.WeatherFile},
		{"assignments", in.AssignmentFile},
		{"temperatures", in.TemperatureFile},
		{"models", in.ModelsFile},
	} {
		if f.path == "" {
			continue
		}
		status := "✓"
		if _, err := os.Stat(f.path); err != nil {
			status = "✗ missing"
		}
		fmt.Printf("  %s: %s %s\n", f.name, f.path, status)
	}
	if in.TimescaleDB != nil {
		fmt.Println("  temperatures: TimescaleDB")
	}

	out := cfg.Output
	fmt.Println("\nOutput:")
	if out.Directory != "" {
		fmt.Printf("  directory: %s (bundle format %s)\n", out.Directory, out.Format)
	}
	if out.SQLite != nil {
		fmt.Printf("  sqlite: %s\n", out.SQLite.Path)
	}
	if out.TimescaleDB != nil {
		fmt.Println("  timescaledb: configured")
	}
}
