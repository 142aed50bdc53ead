package regression

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chrissnell/ambientderate/internal/types"
	"github.com/chrissnell/ambientderate/internal/weather"
)

// Predictor names accepted in configuration.
const (
	DryBulb  = "dry_bulb"
	DewPoint = "dew_point"
	WetBulb  = "wet_bulb"
)

// maxPlausibleTemperature rejects predictor values no surface station reports.
const maxPlausibleTemperature = 100.0

// Predictor extracts the explanatory variable from an observation.
type Predictor struct {
	Name  string
	Value func(types.HourlyObservation) float64
}

// Plausible reports whether v can be fitted on.
func (p Predictor) Plausible(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v <= maxPlausibleTemperature
}

var predictors = map[string]Predictor{
	DryBulb: {
		Name:  DryBulb,
		Value: func(o types.HourlyObservation) float64 { return o.DryBulbC },
	},
	DewPoint: {
		Name:  DewPoint,
		Value: func(o types.HourlyObservation) float64 { return o.DewPointC },
	},
	WetBulb: {
		Name:  WetBulb,
		Value: func(o types.HourlyObservation) float64 { return weather.WetBulbTemperature(o.DryBulbC, o.DewPointC) },
	},
}

// LookupPredictor returns the named predictor.
func LookupPredictor(name string) (Predictor, error) {
	p, ok := predictors[name]
	if !ok {
		return Predictor{}, &types.ConfigurationError{
			Field:  "predictor",
			Reason: fmt.Sprintf("unknown predictor %q (want one of %s)", name, strings.Join(PredictorNames(), ", ")),
		}
	}
	return p, nil
}

// PredictorNames lists the registered predictors in sorted order.
func PredictorNames() []string {
	names := make([]string, 0, len(predictors))
	for name := range predictors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
