// Package bundle writes a whole run as one JSON or MessagePack document.
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chrissnell/ambientderate/internal/database"
	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/types"
	"github.com/chrissnell/ambientderate/pkg/responseformat"
	"go.uber.org/zap"
)

// Document is the encoded form of a run. Undefined model parameters are null.
type Document struct {
	RunID       string                           `json:"run_id"`
	Command     string                           `json:"command"`
	CreatedAt   time.Time                        `json:"created_at"`
	Models      []database.ModelRecord           `json:"models,omitempty"`
	Intercepts  []database.EntityInterceptRecord `json:"entity_intercepts,omitempty"`
	OutageRates []database.OutageRateRecord      `json:"outage_rates,omitempty"`
	Profiles    []database.ProfileRecord         `json:"profiles,omitempty"`
	Quality     map[string]int                   `json:"data_quality,omitempty"`
}

// Sink encodes each run to a file
type Sink struct {
	path      string
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
}

// New creates a bundle sink. An empty path writes run.<ext> under dir.
func New(dir, path, format string, logger *zap.SugaredLogger) (*Sink, error) {
	formatter, err := responseformat.NewFormatter(format)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, "run."+formatter.Extension())
	}
	return &Sink{path: path, formatter: formatter, logger: logger}, nil
}

// Name returns the sink name
func (s *Sink) Name() string {
	return "bundle"
}

// Close is a no-op
func (s *Sink) Close() error {
	return nil
}

// Path is the file the sink writes to
func (s *Sink) Path() string {
	return s.path
}

// Write encodes r and replaces the bundle file with it
func (s *Sink) Write(ctx context.Context, r *storage.Results) error {
	doc := NewDocument(r, time.Now().UTC())

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(s.path), err)
	}

	// Write beside the target and rename so readers never see a partial file
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := s.formatter.Encode(f, doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode run %s: %w", r.RunID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	s.logger.Infof("wrote %s bundle for run %s to %s", s.formatter.Extension(), r.RunID, s.path)
	return nil
}

// Read decodes a bundle written by the sink
func (s *Sink) Read() (*Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc Document
	if err := s.formatter.Decode(f, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &doc, nil
}

// NewDocument converts results to their encodable form
func NewDocument(r *storage.Results, createdAt time.Time) *Document {
	all := make([]types.RegressionModel, 0, len(r.ResourceModels)+len(r.UnitTypeModels))
	all = append(append(all, r.ResourceModels...), r.UnitTypeModels...)
	models, intercepts := database.NewModelRecords(r.RunID, all)

	return &Document{
		RunID:       r.RunID,
		Command:     r.Command,
		CreatedAt:   createdAt,
		Models:      models,
		Intercepts:  intercepts,
		OutageRates: database.NewOutageRateRecords(r.RunID, r.OutageRates),
		Profiles:    database.NewProfileRecords(r.RunID, r.Profiles),
		Quality:     r.Quality,
	}
}
