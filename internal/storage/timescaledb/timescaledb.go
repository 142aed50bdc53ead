// Package timescaledb persists run results to a TimescaleDB/PostgreSQL database.
package timescaledb

import (
	"context"
	"fmt"

	"github.com/chrissnell/ambientderate/internal/database"
	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const batchSize = 500

// Sink writes results through gorm
type Sink struct {
	client *database.Client
	logger *zap.SugaredLogger
}

// New connects to the database and migrates the result tables
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Sink, error) {
	client := database.NewClient(connectionString, logger)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("could not connect to TimescaleDB: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not migrate result tables: %w", err)
	}
	return &Sink{client: client, logger: logger}, nil
}

// Name returns the sink name
func (s *Sink) Name() string {
	return "timescaledb"
}

// Close releases the connection pool
func (s *Sink) Close() error {
	return s.client.Close()
}

// Write stores the run and all of its rows in one transaction
func (s *Sink) Write(ctx context.Context, r *storage.Results) error {
	all := make([]types.RegressionModel, 0, len(r.ResourceModels)+len(r.UnitTypeModels))
	all = append(append(all, r.ResourceModels...), r.UnitTypeModels...)
	models, intercepts := database.NewModelRecords(r.RunID, all)
	rates := database.NewOutageRateRecords(r.RunID, r.OutageRates)
	profiles := database.NewProfileRecords(r.RunID, r.Profiles)

	err := s.client.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&database.RunRecord{RunID: r.RunID, Command: r.Command}).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(models) > 0 {
			if err := tx.CreateInBatches(&models, batchSize).Error; err != nil {
				return fmt.Errorf("insert models: %w", err)
			}
		}
		if len(intercepts) > 0 {
			if err := tx.CreateInBatches(&intercepts, batchSize).Error; err != nil {
				return fmt.Errorf("insert intercepts: %w", err)
			}
		}
		if len(rates) > 0 {
			if err := tx.CreateInBatches(&rates, batchSize).Error; err != nil {
				return fmt.Errorf("insert outage rates: %w", err)
			}
		}
		if len(profiles) > 0 {
			if err := tx.CreateInBatches(&profiles, batchSize).Error; err != nil {
				return fmt.Errorf("insert profiles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not store run %s: %w", r.RunID, err)
	}

	s.logger.Infof("stored run %s in TimescaleDB: %d models, %d outage rates, %d profile hours",
		r.RunID, len(models), len(rates), len(profiles))
	return nil
}
