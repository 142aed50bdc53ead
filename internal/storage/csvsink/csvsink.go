// Package csvsink writes run results as CSV files under an output directory.
package csvsink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/types"
	"go.uber.org/zap"
)

// File names written under the output directory
const (
	ObservationsFile    = "observations.csv"
	ResourceModelsFile  = "resource_models.csv"
	UnitTypeModelsFile  = "unit_type_models.csv"
	InterceptsFile      = "entity_intercepts.csv"
	OutageRatesFile     = "outage_rates.csv"
	QualityFile         = "data_quality.csv"
	ProfileDirectory    = "profiles"
	profileRandomizeOff = "FALSE"
)

// ModelColumns is the header of both model files
var ModelColumns = []string{
	"scope", "scope_id", "unit_type", "predictor", "mode",
	"slope", "intercept", "rsquared", "correlation", "covariance",
	"samples", "observations", "entity_kind",
	"maximum_curtailment", "minimum_rsquared", "target_curtailment",
}

// ProfileColumns is the header production cost model derate files expect
var ProfileColumns = []string{"Weather Name", "Hour", "Weather Factor", "Randomize Profile"}

// Sink writes results to CSV files
type Sink struct {
	dir    string
	logger *zap.SugaredLogger
}

// New creates a CSV sink rooted at dir, creating it if needed
func New(dir string, logger *zap.SugaredLogger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Sink{dir: dir, logger: logger}, nil
}

// Name returns the sink name
func (s *Sink) Name() string {
	return "csv"
}

// Close is a no-op; every file is closed after it is written
func (s *Sink) Close() error {
	return nil
}

// Write writes every non-empty part of r to its own file
func (s *Sink) Write(ctx context.Context, r *storage.Results) error {
	if len(r.Observations) > 0 {
		if err := s.writeFile(ObservationsFile, observationRows(r.Observations)); err != nil {
			return err
		}
	}
	if len(r.ResourceModels) > 0 {
		if err := s.writeFile(ResourceModelsFile, modelRows(r.ResourceModels)); err != nil {
			return err
		}
	}
	if len(r.UnitTypeModels) > 0 {
		if err := s.writeFile(UnitTypeModelsFile, modelRows(r.UnitTypeModels)); err != nil {
			return err
		}
		if rows := interceptRows(r.UnitTypeModels); len(rows) > 1 {
			if err := s.writeFile(InterceptsFile, rows); err != nil {
				return err
			}
		}
	}
	if len(r.OutageRates) > 0 {
		if err := s.writeFile(OutageRatesFile, outageRows(r.OutageRates)); err != nil {
			return err
		}
	}
	if len(r.Quality) > 0 {
		if err := s.writeFile(QualityFile, qualityRows(r.Quality)); err != nil {
			return err
		}
	}

	for _, p := range r.Profiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Join(ProfileDirectory, p.FileStem()+".csv")
		if err := s.writeFile(name, profileRows(p)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) writeFile(name string, rows [][]string) error {
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	s.logger.Debugf("wrote %d rows to %s", len(rows)-1, path)
	return nil
}

func observationRows(obs []types.HourlyObservation) [][]string {
	rows := [][]string{{
		"resource_id", "resource_name", "unit_type", "station_id", "hour",
		"curtailment_mw", "pmax_mw", "outage_type", "nature_of_work", "imputed",
		"dry_bulb_c", "dew_point_c", "pressure_kpa",
	}}
	for _, o := range obs {
		rows = append(rows, []string{
			o.ResourceID, o.ResourceName, o.UnitType, o.StationID, o.Hour.UTC().Format(time.RFC3339),
			formatFloat(o.CurtailmentMW), formatFloat(o.PmaxMW), o.OutageType, o.NatureOfWork,
			strconv.FormatBool(o.Imputed),
			formatFloat(o.DryBulbC), formatFloat(o.DewPointC), formatFloat(o.PressureKPa),
		})
	}
	return rows
}

func modelRows(models []types.RegressionModel) [][]string {
	rows := [][]string{ModelColumns}
	for _, m := range models {
		rows = append(rows, []string{
			string(m.Scope), m.ScopeID, m.UnitType, m.Predictor, string(m.Mode),
			formatFloat(m.Slope), formatFloat(m.Intercept), formatFloat(m.RSquared),
			formatFloat(m.Correlation), formatFloat(m.Covariance),
			strconv.Itoa(m.Samples), strconv.Itoa(m.Observations), m.EntityKind,
			formatFloat(m.MaximumCurtailment), formatFloat(m.MinimumRSquared), formatFloat(m.TargetCurtailment),
		})
	}
	return rows
}

func interceptRows(models []types.RegressionModel) [][]string {
	rows := [][]string{{"unit_type", "entity_kind", "entity_id", "intercept"}}
	for _, m := range models {
		for _, id := range m.EntityIDs() {
			rows = append(rows, []string{m.ScopeID, m.EntityKind, id, formatFloat(m.EntityIntercepts[id])})
		}
	}
	return rows
}

func outageRows(rates []types.OutageRate) [][]string {
	rows := [][]string{{
		"resource_id", "month", "capacity_mw", "outage_hours", "sum_curtailment_mw",
		"outage_mwh", "time_weighted_mw", "forced_outage_rate_time", "forced_outage_rate_mwh",
	}}
	for _, r := range rates {
		rows = append(rows, []string{
			r.ResourceID, r.Month.Format("2006-01"),
			formatFloat(r.CapacityMW), formatFloat(r.OutageHours), formatFloat(r.SumCurtailmentMW),
			formatFloat(r.OutageMWh), formatFloat(r.TimeWeightedMW),
			formatFloat(r.ForcedOutageRateTime), formatFloat(r.ForcedOutageRateMWh),
		})
	}
	return rows
}

func qualityRows(counts map[string]int) [][]string {
	rows := [][]string{{"reason", "count"}}
	for _, k := range sortedKeys(counts) {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}

func profileRows(p types.DerateProfile) [][]string {
	rows := [][]string{ProfileColumns}
	for _, r := range p.Rows() {
		randomize := profileRandomizeOff
		if r.RandomizeProfile {
			randomize = "TRUE"
		}
		rows = append(rows, []string{r.WeatherName, strconv.Itoa(r.Hour), formatFloat(r.WeatherFactor), randomize})
	}
	return rows
}

// formatFloat writes the shortest exact representation; undefined values
// come out as NaN
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
