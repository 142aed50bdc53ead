// Package sqlite persists run results to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/chrissnell/ambientderate/internal/database"
	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/types"
	"github.com/chrissnell/ambientderate/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationTable tracks the applied schema version
const MigrationTable = "schema_migrations"

// Migrations returns the embedded results schema migrations
func Migrations() migrate.MigrationProvider {
	return migrate.NewFSProvider(migrations, "migrations", MigrationTable)
}

// Sink writes results to SQLite
type Sink struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens (or creates) the database at path and brings its schema up to date
func New(path string, logger *zap.SugaredLogger) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := migrate.NewMigrator(db, Migrations(), logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	return &Sink{db: db, path: path, logger: logger}, nil
}

// Name returns the sink name
func (s *Sink) Name() string {
	return "sqlite"
}

// Close closes the database
func (s *Sink) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for read-back
func (s *Sink) DB() *sql.DB {
	return s.db
}

// Write stores everything in r under its run id in a single transaction
func (s *Sink) Write(ctx context.Context, r *storage.Results) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO derate_runs (run_id, command) VALUES (?, ?)`, r.RunID, r.Command); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}

	all := make([]types.RegressionModel, 0, len(r.ResourceModels)+len(r.UnitTypeModels))
	all = append(append(all, r.ResourceModels...), r.UnitTypeModels...)
	models, intercepts := database.NewModelRecords(r.RunID, all)
	if err := insertModels(ctx, tx, models); err != nil {
		return err
	}
	if err := insertIntercepts(ctx, tx, intercepts); err != nil {
		return err
	}
	if err := insertOutageRates(ctx, tx, database.NewOutageRateRecords(r.RunID, r.OutageRates)); err != nil {
		return err
	}
	profiles := database.NewProfileRecords(r.RunID, r.Profiles)
	if err := insertProfiles(ctx, tx, profiles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", r.RunID, err)
	}

	s.logger.Infof("stored run %s in %s: %d models, %d outage rates, %d profile hours",
		r.RunID, s.path, len(models), len(r.OutageRates), len(profiles))
	return nil
}

func insertModels(ctx context.Context, tx *sql.Tx, records []database.ModelRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO regression_models (
			run_id, scope, scope_id, unit_type, predictor, mode,
			slope, intercept, rsquared, correlation, covariance,
			samples, observations, entity_kind,
			maximum_curtailment, minimum_rsquared, target_curtailment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare model insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		_, err := stmt.ExecContext(ctx,
			m.RunID, m.Scope, m.ScopeID, m.UnitType, m.Predictor, m.Mode,
			m.Slope, m.Intercept, m.RSquared, m.Correlation, m.Covariance,
			m.Samples, m.Observations, m.EntityKind,
			m.MaximumCurtailment, m.MinimumRSquared, m.TargetCurtailment)
		if err != nil {
			return fmt.Errorf("failed to insert %s model %s: %w", m.Scope, m.ScopeID, err)
		}
	}
	return nil
}

func insertIntercepts(ctx context.Context, tx *sql.Tx, records []database.EntityInterceptRecord) error {
	for _, e := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entity_intercepts (run_id, unit_type, entity_kind, entity_id, intercept) VALUES (?, ?, ?, ?, ?)`,
			e.RunID, e.UnitType, e.Kind, e.EntityID, e.Intercept)
		if err != nil {
			return fmt.Errorf("failed to insert intercept %s/%s: %w", e.UnitType, e.EntityID, err)
		}
	}
	return nil
}

func insertOutageRates(ctx context.Context, tx *sql.Tx, records []database.OutageRateRecord) error {
	for _, o := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outage_rates (
				run_id, resource_id, month, capacity_mw, outage_hours, sum_curtailment_mw,
				outage_mwh, time_weighted_mw, forced_outage_rate_time, forced_outage_rate_mwh
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.RunID, o.ResourceID, o.Month, o.CapacityMW, o.OutageHours, o.SumCurtailmentMW,
			o.OutageMWh, o.TimeWeightedMW, o.ForcedOutageRateTime, o.ForcedOutageRateMWh)
		if err != nil {
			return fmt.Errorf("failed to insert outage rate for %s: %w", o.ResourceID, err)
		}
	}
	return nil
}

func insertProfiles(ctx context.Context, tx *sql.Tx, records []database.ProfileRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO derate_profiles (run_id, unit_type, station_id, year, hour, factor) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare profile insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range records {
		if _, err := stmt.ExecContext(ctx, p.RunID, p.UnitType, p.StationID, p.Year, p.Hour, p.Factor); err != nil {
			return fmt.Errorf("failed to insert profile %s/%s hour %d: %w", p.UnitType, p.StationID, p.Hour, err)
		}
	}
	return nil
}
