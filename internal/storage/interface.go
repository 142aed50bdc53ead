// Package storage defines the result sinks a modelling run writes to.
package storage

import (
	"context"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Results is everything a run produces. Commands fill only the parts they
// compute; sinks skip empty parts.
type Results struct {
	RunID   string
	Command string

	Observations   []types.HourlyObservation
	ResourceModels []types.RegressionModel
	UnitTypeModels []types.RegressionModel
	OutageRates    []types.OutageRate
	Profiles       []types.DerateProfile

	// Quality holds the dropped-row and degenerate-fit counts by reason
	Quality map[string]int
}

// Sink is a standardized interface for result backends
type Sink interface {
	Name() string
	Write(ctx context.Context, r *Results) error
	Close() error
}
