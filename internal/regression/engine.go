package regression

import (
	"context"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Engine fits regression models for one run. It is safe to share between
// goroutines; all state is fixed at construction.
type Engine struct {
	cfg       Config
	predictor Predictor
	logger    *zap.SugaredLogger
	quality   *types.QualityReport
}

// NewEngine validates cfg and returns an Engine. logger and quality may be nil.
func NewEngine(cfg Config, logger *zap.SugaredLogger, quality *types.QualityReport) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := LookupPredictor(cfg.Predictor)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		predictor: p,
		logger:    logger,
		quality:   quality,
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// FitResources fits percent curtailment against the predictor for every
// resource in obs. Models are ordered by resource id.
func (e *Engine) FitResources(ctx context.Context, obs []types.HourlyObservation) ([]types.RegressionModel, error) {
	groups, ids := groupBy(obs, func(o types.HourlyObservation) string { return o.ResourceID })

	models, err := e.fitAll(ctx, ids, func(id string) types.RegressionModel {
		return e.fitResource(id, groups[id])
	})
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Infof("fitted %d resource models (%d degenerate)", len(models), countDegenerate(models))
	}
	return models, nil
}

// FitUnitTypes fits one model per unit type. In multilinear mode every unit
// type gets a fixed-effects fit; otherwise resources are pooled, which needs
// the per-resource models from FitResources. Models are ordered by unit type.
func (e *Engine) FitUnitTypes(ctx context.Context, obs []types.HourlyObservation, resourceModels []types.RegressionModel) ([]types.RegressionModel, error) {
	groups, ids := groupBy(obs, func(o types.HourlyObservation) string { return o.UnitType })
	if len(e.cfg.UnitTypes) > 0 {
		ids = append([]string(nil), e.cfg.UnitTypes...)
		sort.Strings(ids)
	}

	byResource := make(map[string]types.RegressionModel, len(resourceModels))
	for _, m := range resourceModels {
		byResource[m.ScopeID] = m
	}

	models, err := e.fitAll(ctx, ids, func(id string) types.RegressionModel {
		if e.cfg.Multilinear {
			return e.fitFixedEffects(id, groups[id])
		}
		return e.fitPooled(id, groups[id], byResource)
	})
	if err != nil {
		return nil, err
	}

	if e.logger != nil {
		e.logger.Infof("fitted %d unit type models (%d degenerate)", len(models), countDegenerate(models))
	}
	return models, nil
}

func (e *Engine) fitResource(id string, obs []types.HourlyObservation) types.RegressionModel {
	var all, fitted []sample
	for _, o := range obs {
		s, ok := e.sample(o, "")
		if !ok {
			continue
		}
		all = append(all, s)
		if s.y < e.cfg.MaximumCurtailment {
			fitted = append(fitted, s)
		}
	}

	var unitType string
	if len(obs) > 0 {
		unitType = obs[0].UnitType
	}

	line, reason := fitLine(split(fitted))
	if reason != "" {
		m := e.degenerate(types.ScopeResource, id, len(fitted), reason)
		m.UnitType = unitType
		m.Mode = types.FitModeOLS
		m.Observations = len(all)
		m.Correlation, m.Covariance = exploratory(all)
		return m
	}

	m := e.model(types.ScopeResource, id, types.FitModeOLS)
	m.UnitType = unitType
	m.Slope = line.slope
	m.Intercept = line.intercept
	m.RSquared = line.rSquared
	m.Samples = len(fitted)
	m.Observations = len(all)
	m.Correlation, m.Covariance = exploratory(all)
	return m
}

func (e *Engine) fitPooled(unitType string, obs []types.HourlyObservation, resourceModels map[string]types.RegressionModel) types.RegressionModel {
	var observations int
	var fitted []sample
	for _, o := range obs {
		rm, ok := resourceModels[o.ResourceID]
		if !ok || !(rm.RSquared >= e.cfg.MinimumRSquared) {
			continue
		}
		s, ok := e.sample(o, "")
		if !ok {
			continue
		}
		if e.cfg.NormalizeTemperatures {
			s.x = Normalize(rm, e.cfg.TargetCurtailment, s.x)
			if math.IsNaN(s.x) {
				continue
			}
		}
		observations++
		if s.y < e.cfg.MaximumCurtailment {
			fitted = append(fitted, s)
		}
	}

	line, reason := fitLine(split(fitted))
	if reason != "" {
		m := e.degenerate(types.ScopeUnitType, unitType, len(fitted), reason)
		m.UnitType = unitType
		m.Mode = types.FitModePooled
		m.Observations = observations
		return m
	}

	m := e.model(types.ScopeUnitType, unitType, types.FitModePooled)
	m.UnitType = unitType
	m.Slope = line.slope
	m.Intercept = line.intercept
	m.RSquared = line.rSquared
	m.Samples = len(fitted)
	m.Observations = observations
	return m
}

func (e *Engine) sample(o types.HourlyObservation, entity string) (sample, bool) {
	pct, ok := o.PercentCurtailment()
	if !ok {
		return sample{}, false
	}
	v := e.predictor.Value(o)
	if !e.predictor.Plausible(v) {
		return sample{}, false
	}
	return sample{entity: entity, x: v, y: pct}, true
}

func (e *Engine) model(scope types.ModelScope, id string, mode types.FitMode) types.RegressionModel {
	return types.RegressionModel{
		Scope:              scope,
		ScopeID:            id,
		Predictor:          e.predictor.Name,
		Mode:               mode,
		Correlation:        math.NaN(),
		Covariance:         math.NaN(),
		MaximumCurtailment: e.cfg.MaximumCurtailment,
		MinimumRSquared:    e.cfg.MinimumRSquared,
		TargetCurtailment:  e.cfg.TargetCurtailment,
	}
}

func (e *Engine) degenerate(scope types.ModelScope, id string, samples int, reason string) types.RegressionModel {
	e.quality.Record(&types.DegenerateFitError{Scope: scope, ScopeID: id, Samples: samples, Reason: reason})
	if e.logger != nil {
		e.logger.Debugf("degenerate %s fit for %s: %s", scope, id, reason)
	}

	m := types.NewDegenerateModel(scope, id)
	m.Predictor = e.predictor.Name
	m.Samples = samples
	m.MaximumCurtailment = e.cfg.MaximumCurtailment
	m.MinimumRSquared = e.cfg.MinimumRSquared
	m.TargetCurtailment = e.cfg.TargetCurtailment
	return m
}

// fitAll runs fit for every id in parallel. Each goroutine owns one slot of
// the result so output order matches ids.
func (e *Engine) fitAll(ctx context.Context, ids []string, fit func(string) types.RegressionModel) ([]types.RegressionModel, error) {
	models := make([]types.RegressionModel, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			models[i] = fit(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}

// Normalize shifts t so that every resource reaches target curtailment at the
// same normalized temperature. It is NaN when the model has no usable slope.
func Normalize(m types.RegressionModel, target, t float64) float64 {
	if m.Degenerate() || m.Slope == 0 || math.IsNaN(m.Intercept) {
		return math.NaN()
	}
	return t + (m.Intercept-target)/m.Slope
}

// denormalize inverts Normalize.
func denormalize(m types.RegressionModel, target, normalized float64) float64 {
	if m.Degenerate() || m.Slope == 0 || math.IsNaN(m.Intercept) {
		return math.NaN()
	}
	return normalized - (m.Intercept-target)/m.Slope
}

func groupBy(obs []types.HourlyObservation, key func(types.HourlyObservation) string) (map[string][]types.HourlyObservation, []string) {
	groups := make(map[string][]types.HourlyObservation)
	for _, o := range obs {
		k := key(o)
		groups[k] = append(groups[k], o)
	}
	ids := make([]string, 0, len(groups))
	for k := range groups {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return groups, ids
}

func countDegenerate(models []types.RegressionModel) int {
	n := 0
	for _, m := range models {
		if m.Degenerate() {
			n++
		}
	}
	return n
}
