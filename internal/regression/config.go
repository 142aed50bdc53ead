// Package regression fits percent curtailment against an ambient temperature
// predictor, per resource and per unit type.
package regression

import (
	"fmt"
	"math"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Fixed-effect entities for the multilinear unit type fit.
const (
	EntityResource = "resource"
	EntityStation  = "station"
)

// Config is the per-run fitting configuration.
type Config struct {
	// Observations at or above this percent curtailment are excluded from
	// fitting. Must be in (0, 1].
	MaximumCurtailment float64

	// Resources whose own fit falls below this R² are left out of pooled unit
	// type fits. Must be in [0, 1].
	MinimumRSquared float64

	// The percent curtailment every resource is aligned to when normalizing
	// temperatures.
	TargetCurtailment float64

	// UnitTypes restricts unit type fits. Empty means every unit type present.
	UnitTypes []string

	Multilinear           bool
	NormalizeTemperatures bool
	Predictor             string
	FixedEffect           string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaximumCurtailment:    1.0,
		MinimumRSquared:       0.0,
		TargetCurtailment:     0.0,
		NormalizeTemperatures: true,
		Predictor:             DryBulb,
		FixedEffect:           EntityResource,
	}
}

// Validate checks ranges and names. Unit type names are checked by the caller
// against the assignment table.
func (c Config) Validate() error {
	if !(c.MaximumCurtailment > 0 && c.MaximumCurtailment <= 1) {
		return &types.ConfigurationError{
			Field:  "maximum_curtailment",
			Reason: fmt.Sprintf("%v is outside (0, 1]", c.MaximumCurtailment),
		}
	}
	if !(c.MinimumRSquared >= 0 && c.MinimumRSquared <= 1) {
		return &types.ConfigurationError{
			Field:  "minimum_rsquared",
			Reason: fmt.Sprintf("%v is outside [0, 1]", c.MinimumRSquared),
		}
	}
	if math.IsNaN(c.TargetCurtailment) || math.IsInf(c.TargetCurtailment, 0) {
		return &types.ConfigurationError{Field: "target_curtailment", Reason: "must be finite"}
	}
	if _, err := LookupPredictor(c.Predictor); err != nil {
		return err
	}
	if c.FixedEffect != EntityResource && c.FixedEffect != EntityStation {
		return &types.ConfigurationError{
			Field:  "fixed_effect",
			Reason: fmt.Sprintf("unknown entity %q (want %s or %s)", c.FixedEffect, EntityResource, EntityStation),
		}
	}
	return nil
}
