package source

import (
	"fmt"
	"io"
	"strconv"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Models reads a model file written by a previous regression run. Undefined
// parameters come back as NaN.
func (l *Loader) Models(r io.Reader) ([]types.RegressionModel, error) {
	t, err := readTable(r, "scope", "scope_id", "slope", "intercept")
	if err != nil {
		return nil, err
	}

	models := make([]types.RegressionModel, 0, len(t.rows))
	for i, row := range t.rows {
		key := "row " + strconv.Itoa(i+2)

		scope := types.ModelScope(t.get(row, "scope"))
		if scope != types.ScopeResource && scope != types.ScopeUnitType {
			return nil, fmt.Errorf("%s: unknown model scope %q", key, scope)
		}

		m := types.RegressionModel{
			Scope:              scope,
			ScopeID:            t.get(row, "scope_id"),
			UnitType:           t.get(row, "unit_type"),
			Predictor:          t.get(row, "predictor"),
			Mode:               types.FitMode(t.get(row, "mode")),
			Slope:              l.float("models", key, t.get(row, "slope")),
			Intercept:          l.float("models", key, t.get(row, "intercept")),
			RSquared:           l.float("models", key, t.get(row, "rsquared")),
			Correlation:        l.float("models", key, t.get(row, "correlation")),
			Covariance:         l.float("models", key, t.get(row, "covariance")),
			EntityKind:         t.get(row, "entity_kind"),
			MaximumCurtailment: l.float("models", key, t.get(row, "maximum_curtailment")),
			MinimumRSquared:    l.float("models", key, t.get(row, "minimum_rsquared")),
			TargetCurtailment:  l.float("models", key, t.get(row, "target_curtailment")),
		}
		m.Samples, _ = strconv.Atoi(t.get(row, "samples"))
		m.Observations, _ = strconv.Atoi(t.get(row, "observations"))
		models = append(models, m)
	}

	l.logf("loaded %d regression models", len(models))
	return models, nil
}
