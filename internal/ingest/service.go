package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slot-history-backend/config"
	"slot-history-backend/internal/history"
	"slot-history-backend/internal/metrics"
	"slot-history-backend/internal/model"
	"slot-history-backend/internal/store"
)

// Service ingests snapshot files and recomputes the derived tables.
type Service struct {
	cfg         *config.Config
	store       store.Store
	metrics     *metrics.Metrics
	log         zerolog.Logger
	onRecompute func()
	now         func() time.Time
}

// NewService creates and initializes a new ingest service.
func NewService(cfg *config.Config, s store.Store, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   s,
		metrics: m,
		log:     log.With().Str("component", "ingest").Logger(),
		now:     time.Now,
	}
}

// OnRecompute registers fn to be called after every successful recompute.
func (s *Service) OnRecompute(fn func()) {
	s.onRecompute = fn
}

// Run recomputes once, then again every input interval until ctx is done.
// A zero interval runs once.
func (s *Service) Run(ctx context.Context) {
	s.log.Info().Strs("paths", s.cfg.Input.Paths).Dur("interval", s.cfg.Input.Interval).Msg("starting ingest service")
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("recompute failed")
	}
	if s.cfg.Input.Interval <= 0 {
		return
	}

	timer := time.NewTimer(s.cfg.Input.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("ingest service shutting down")
			return
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("recompute failed")
			}
			timer.Reset(s.cfg.Input.Interval)
		}
	}
}

// RunOnce ingests every input file, rebuilds the snapshot store from the
// database and replaces the derived tables. Nothing is replaced when any
// step fails.
func (s *Service) RunOnce(ctx context.Context) (*model.ComputationRun, error) {
	started := s.now()

	run, err := s.runOnce(ctx, started)
	if err != nil {
		s.metrics.RunFailed(s.now().Sub(started))
		return nil, err
	}
	return run, nil
}

func (s *Service) runOnce(ctx context.Context, started time.Time) (*model.ComputationRun, error) {
	files, err := s.inputFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.log.Warn().Strs("paths", s.cfg.Input.Paths).Msg("no input files matched, recomputing from stored snapshots")
	}
	for _, path := range files {
		if err := s.ingestFile(ctx, path); err != nil {
			return nil, err
		}
	}

	records, err := s.store.LoadSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := history.NewSnapshotStore(s.cfg.Timezone.Zones.Local, records)
	if err != nil {
		return nil, fmt.Errorf("building snapshot store: %w", err)
	}

	res, err := history.Run(ctx, snapshots, s.cfg.Pipeline.Options())
	if err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}
	for _, v := range res.Violations {
		s.log.Warn().Err(v).Str("table", v.Table).Int("count", v.Count).Msg("duplicate key resolved")
	}

	finished := s.now()
	run := &model.ComputationRun{
		ID:                  uuid.New(),
		StartedAt:           started.UTC(),
		FinishedAt:          finished.UTC(),
		ArtifactRule:        string(s.cfg.Pipeline.Rule),
		RestrictToPast:      s.cfg.Pipeline.RestrictToPast,
		Snapshots:           snapshots.Len(),
		GridEntries:         len(res.TimeGrid),
		FinalStatuses:       len(res.FinalStatuses),
		DetectedEvents:      res.DetectedEvents,
		ActivityEvents:      len(res.Activity),
		SuppressedArtifacts: res.SuppressedArtifacts,
		Violations:          len(res.Violations),
		MaxGrab:             res.MaxGrab.UTC(),
	}
	if err := s.store.ReplaceResults(ctx, run, res); err != nil {
		return nil, err
	}

	s.metrics.ObserveRun(res, finished.Sub(started))
	s.log.Info().
		Str("run_id", run.ID.String()).
		Int("snapshots", run.Snapshots).
		Int("grid_entries", run.GridEntries).
		Int("activity_events", run.ActivityEvents).
		Int("suppressed_artifacts", run.SuppressedArtifacts).
		Dur("took", finished.Sub(started)).
		Msg("recompute finished")

	if s.onRecompute != nil {
		s.onRecompute()
	}
	return run, nil
}

func (s *Service) ingestFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		s.metrics.IngestError("open")
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ReadSnapshots(f, s.cfg.Timezone.Zones, s.cfg.Input.Delimiter)
	if err != nil {
		s.metrics.IngestError(errorReason(err))
		return fmt.Errorf("%s: %w", path, err)
	}

	// the store keeps one row per key, so repeats are only visible here
	dups := history.DuplicateSnapshots(records)
	for _, v := range dups {
		s.log.Warn().Err(v).Str("file", path).Int("count", v.Count).Msg("duplicate snapshot rows in input")
	}
	s.metrics.ObserveViolations(dups)

	inserted, err := s.store.SaveSnapshots(ctx, records)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.metrics.ObserveIngest(len(records), inserted)
	s.log.Debug().Str("file", path).Int("rows", len(records)).Int64("inserted", inserted).Msg("ingested snapshot file")
	return nil
}

// inputFiles expands the configured globs into a sorted, de-duplicated list.
func (s *Service) inputFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range s.cfg.Input.Paths {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, history.ErrTimezoneInconsistency):
		return "timezone"
	case errors.Is(err, history.ErrInvalidInput):
		return "invalid_input"
	}
	return "other"
}
