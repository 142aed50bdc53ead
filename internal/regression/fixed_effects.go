package regression

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/chrissnell/ambientderate/internal/types"
)

// fitFixedEffects solves percent = slope*x + intercept[entity] for one unit
// type by least squares. The design matrix has the predictor in column 0 and
// one indicator column per entity; there is no global intercept column, so
// each entity's intercept is estimated directly.
func (e *Engine) fitFixedEffects(unitType string, obs []types.HourlyObservation) types.RegressionModel {
	var observations int
	var fitted []sample
	for _, o := range obs {
		s, ok := e.sample(o, e.entityOf(o))
		if !ok {
			continue
		}
		observations++
		if s.y < e.cfg.MaximumCurtailment {
			fitted = append(fitted, s)
		}
	}

	degenerate := func(reason string) types.RegressionModel {
		m := e.degenerate(types.ScopeUnitType, unitType, len(fitted), reason)
		m.UnitType = unitType
		m.Mode = types.FitModeFixedEffects
		m.EntityKind = e.cfg.FixedEffect
		m.Observations = observations
		return m
	}

	column := make(map[string]int)
	counts := make(map[string]int)
	for _, s := range fitted {
		counts[s.entity]++
	}
	entities := make([]string, 0, len(counts))
	for id := range counts {
		entities = append(entities, id)
	}
	sort.Strings(entities)
	for i, id := range entities {
		column[id] = i + 1
	}

	n, k := len(fitted), len(entities)+1
	switch {
	case n == 0:
		return degenerate("no qualifying samples")
	case n < k:
		return degenerate(fmt.Sprintf("%d samples for %d parameters", n, k))
	}

	x, y := split(fitted)
	if !varies(x) {
		return degenerate("no predictor variation")
	}

	// indicators are set row by row from each sample's own entity
	design := mat.NewDense(n, k, nil)
	for i, s := range fitted {
		design.Set(i, 0, s.x)
		design.Set(i, column[s.entity], 1)
	}

	var qr mat.QR
	qr.Factorize(design)

	coeffs := mat.NewVecDense(k, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(n, y)); err != nil {
		return degenerate(fmt.Sprintf("least squares solve: %v", err))
	}

	slope := coeffs.AtVec(0)
	intercepts := make(map[string]float64, len(entities))
	var weighted float64
	for _, id := range entities {
		b := coeffs.AtVec(column[id])
		intercepts[id] = b
		weighted += b * float64(counts[id])
	}

	predicted := make([]float64, n)
	for i, s := range fitted {
		predicted[i] = slope*s.x + intercepts[s.entity]
	}

	m := e.model(types.ScopeUnitType, unitType, types.FitModeFixedEffects)
	m.UnitType = unitType
	m.EntityKind = e.cfg.FixedEffect
	m.Slope = slope
	m.Intercept = weighted / float64(n)
	m.EntityIntercepts = intercepts
	m.RSquared = rSquared(y, predicted)
	m.Samples = n
	m.Observations = observations
	return m
}

func (e *Engine) entityOf(o types.HourlyObservation) string {
	if e.cfg.FixedEffect == EntityStation {
		return o.StationID
	}
	return o.ResourceID
}
