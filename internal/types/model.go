package types

import (
	"math"
	"sort"
)

// ModelScope identifies what a regression model was fitted over.
type ModelScope string

const (
	ScopeResource ModelScope = "resource"
	ScopeUnitType ModelScope = "unit_type"
)

// FitMode identifies the regression strategy that produced a model.
type FitMode string

const (
	FitModeOLS          FitMode = "ols"           // per-resource single predictor
	FitModePooled       FitMode = "pooled"        // per-unit-type single predictor
	FitModeFixedEffects FitMode = "fixed_effects" // per-unit-type multilinear
)

// RegressionModel is one fitted temperature/curtailment relationship.
// Undefined parameters are NaN; a model whose slope is NaN is degenerate.
type RegressionModel struct {
	Scope     ModelScope
	ScopeID   string // resource id or unit type
	UnitType  string
	Predictor string
	Mode      FitMode

	Slope     float64
	Intercept float64
	RSquared  float64

	// EntityIntercepts holds the per-entity fixed effects of a multilinear fit,
	// keyed by resource or weather station id. Intercept is then the
	// sample-weighted mean of these values.
	EntityIntercepts map[string]float64
	EntityKind       string

	Samples      int // rows used in the fit
	Observations int // rows available for the scope before the outlier policy

	// Exploratory statistics over rows with percent curtailment below
	// ExploratoryCurtailmentCap. Resource scope only.
	Correlation float64
	Covariance  float64

	MaximumCurtailment float64
	MinimumRSquared    float64
	TargetCurtailment  float64
}

// Degenerate reports whether the model has no usable slope.
func (m RegressionModel) Degenerate() bool {
	return math.IsNaN(m.Slope) || math.IsInf(m.Slope, 0)
}

// Predict evaluates the fitted line at x using the scalar intercept.
func (m RegressionModel) Predict(x float64) float64 {
	return m.Slope*x + m.Intercept
}

// EntityIDs returns the fixed-effect entity ids in sorted order.
func (m RegressionModel) EntityIDs() []string {
	ids := make([]string, 0, len(m.EntityIntercepts))
	for id := range m.EntityIntercepts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewDegenerateModel returns a model with every fitted parameter undefined.
func NewDegenerateModel(scope ModelScope, scopeID string) RegressionModel {
	return RegressionModel{
		Scope:       scope,
		ScopeID:     scopeID,
		Slope:       math.NaN(),
		Intercept:   math.NaN(),
		RSquared:    math.NaN(),
		Correlation: math.NaN(),
		Covariance:  math.NaN(),
	}
}
