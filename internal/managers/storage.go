package managers

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/storage/bundle"
	"github.com/chrissnell/ambientderate/internal/storage/csvsink"
	"github.com/chrissnell/ambientderate/internal/storage/sqlite"
	"github.com/chrissnell/ambientderate/internal/storage/timescaledb"
	"github.com/chrissnell/ambientderate/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StorageManager holds our active result sinks
type StorageManager struct {
	Sinks  []storage.Sink
	logger *zap.SugaredLogger
}

// NewStorageManager creates a StorageManager populated with every sink the
// output section configures
func NewStorageManager(ctx context.Context, c *config.OutputData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{logger: logger}

	// Check the configuration for the supported sinks and enable them if found

	if c.Directory != "" {
		if err := s.AddSink(ctx, "csv", c); err != nil {
			return s, fmt.Errorf("could not add CSV sink: %w", err)
		}
	}

	if c.Directory != "" || c.BundleFile != "" {
		if err := s.AddSink(ctx, "bundle", c); err != nil {
			return s, fmt.Errorf("could not add bundle sink: %w", err)
		}
	}

	if c.SQLite != nil && c.SQLite.Path != "" {
		if err := s.AddSink(ctx, "sqlite", c); err != nil {
			return s, fmt.Errorf("could not add SQLite sink: %w", err)
		}
	}

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		if err := s.AddSink(ctx, "timescaledb", c); err != nil {
			return s, fmt.Errorf("could not add TimescaleDB sink: %w", err)
		}
	}

	return s, nil
}

// AddSink adds a new sink of name sinkName
func (s *StorageManager) AddSink(ctx context.Context, sinkName string, c *config.OutputData) error {
	var (
		sink storage.Sink
		err  error
	)

	switch sinkName {
	case "csv":
		sink, err = csvsink.New(c.Directory, s.logger)
	case "bundle":
		sink, err = bundle.New(c.Directory, c.BundleFile, c.Format, s.logger)
	case "sqlite":
		sink, err = sqlite.New(c.SQLite.Path, s.logger)
	case "timescaledb":
		sink, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString, s.logger)
	default:
		return fmt.Errorf("unknown sink %q", sinkName)
	}
	if err != nil {
		return err
	}

	s.Sinks = append(s.Sinks, sink)
	return nil
}

// Write fans r out to every sink concurrently. The first failure cancels the
// remaining writes.
func (s *StorageManager) Write(ctx context.Context, r *storage.Results) error {
	if len(s.Sinks) == 0 {
		s.logger.Warnf("no result sinks configured; run %s discarded", r.RunID)
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range s.Sinks {
		g.Go(func() error {
			if err := sink.Write(ctx, r); err != nil {
				return fmt.Errorf("%s sink: %w", sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes every sink
func (s *StorageManager) Close() error {
	var errs []error
	for _, sink := range s.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
