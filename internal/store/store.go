package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slot-history-backend/internal/history"
	"slot-history-backend/internal/model"
)

const batchSize = 500

// Store defines the interface for all database operations.
type Store interface {
	// SaveSnapshots inserts new observations and returns how many were new.
	// Rows already stored are left untouched.
	SaveSnapshots(ctx context.Context, records []history.Snapshot) (int64, error)
	LoadSnapshots(ctx context.Context) ([]history.Snapshot, error)
	// ReplaceResults swaps every derived table for the content of res in one
	// transaction and records run.
	ReplaceResults(ctx context.Context, run *model.ComputationRun, res *history.Result) error

	Centers(ctx context.Context) ([]history.CenterInfo, error)
	FinalStatuses(ctx context.Context, key history.PartitionKey) ([]history.FinalStatusRecord, error)
	Activity(ctx context.Context, key history.PartitionKey, r TimeRange) ([]history.ActivityEvent, error)
	Occupancy(ctx context.Context, key history.PartitionKey, g history.Granularity, r TimeRange) ([]history.OccupancyRate, error)
	SlotHistory(ctx context.Context, slot history.SlotKey) (*SlotHistory, error)
	LatestRun(ctx context.Context) (*model.ComputationRun, error)
	Tables(ctx context.Context) (*history.Result, error)
}

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	loc *time.Location
}

// NewGormStore creates a new GORM-backed store. Times read back are expressed
// in loc.
func NewGormStore(db *gorm.DB, loc *time.Location) Store {
	return &gormStore{db: db, loc: loc}
}

// SaveSnapshots inserts records with ON CONFLICT DO NOTHING.
func (s *gormStore) SaveSnapshots(ctx context.Context, records []history.Snapshot) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([]model.SnapshotRecord, len(records))
	for i, r := range records {
		rows[i] = model.SnapshotRecord{
			CenterID:    r.CenterID,
			TestType:    r.TestType,
			Appointment: r.Appointment.UTC(),
			Grab:        r.Grab.UTC(),
			AgeGroup:    string(r.AgeGroup),
		}
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to save snapshot records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// LoadSnapshots returns every stored observation in the store's location.
func (s *gormStore) LoadSnapshots(ctx context.Context) ([]history.Snapshot, error) {
	var rows []model.SnapshotRecord
	if err := s.db.WithContext(ctx).
		Order("center_id, test_type, appointment, grab").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot records: %w", err)
	}
	out := make([]history.Snapshot, len(rows))
	for i, r := range rows {
		out[i] = history.Snapshot{
			CenterID:    r.CenterID,
			TestType:    r.TestType,
			AgeGroup:    history.AgeGroup(r.AgeGroup),
			Appointment: r.Appointment.In(s.loc),
			Grab:        r.Grab.In(s.loc),
		}
	}
	return out, nil
}

// ReplaceResults deletes and re-inserts every derived table transactionally,
// so readers never observe a partially written run.
func (s *gormStore) ReplaceResults(ctx context.Context, run *model.ComputationRun, res *history.Result) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&model.TimeGridEntry{},
			&model.FinalStatus{},
			&model.ActivityEvent{},
			&model.OccupancyRate{},
			&model.FirstPosting{},
			&model.FirstAppearance{},
			&model.Center{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", m, err)
			}
		}

		if err := insertAll(tx, toGridRows(res.TimeGrid)); err != nil {
			return fmt.Errorf("failed to write time grid: %w", err)
		}
		if err := insertAll(tx, toFinalRows(res.FinalStatuses)); err != nil {
			return fmt.Errorf("failed to write final statuses: %w", err)
		}
		if err := insertAll(tx, toActivityRows(res.Activity)); err != nil {
			return fmt.Errorf("failed to write activity: %w", err)
		}
		if err := insertAll(tx, toOccupancyRows(res.Occupancy)); err != nil {
			return fmt.Errorf("failed to write occupancy: %w", err)
		}
		if err := insertAll(tx, toPostingRows(res.FirstPostings)); err != nil {
			return fmt.Errorf("failed to write first postings: %w", err)
		}
		if err := insertAll(tx, toAppearanceRows(res.FirstAppearances)); err != nil {
			return fmt.Errorf("failed to write first appearances: %w", err)
		}
		if err := insertAll(tx, toCenterRows(res.Centers)); err != nil {
			return fmt.Errorf("failed to write centers: %w", err)
		}

		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to record run %s: %w", run.ID, err)
		}
		return nil
	})
}

func insertAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, batchSize).Error
}

// Centers lists every center seen in the last run.
func (s *gormStore) Centers(ctx context.Context) ([]history.CenterInfo, error) {
	var rows []model.Center
	if err := s.db.WithContext(ctx).Order("center_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query centers: %w", err)
	}
	out := make([]history.CenterInfo, len(rows))
	for i, r := range rows {
		out[i] = history.CenterInfo{CenterID: r.CenterID, AgeGroup: history.AgeGroup(r.AgeGroup), TestTypes: r.TestTypes}
	}
	return out, nil
}

func (s *gormStore) FinalStatuses(ctx context.Context, key history.PartitionKey) ([]history.FinalStatusRecord, error) {
	var rows []model.FinalStatus
	if err := s.db.WithContext(ctx).
		Where("center_id = ? AND test_type = ?", key.CenterID, key.TestType).
		Order("appointment").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query final statuses for %s: %w", key, err)
	}
	out := make([]history.FinalStatusRecord, len(rows))
	for i, r := range rows {
		out[i] = s.fromFinalRow(r)
	}
	return out, nil
}

func (s *gormStore) Activity(ctx context.Context, key history.PartitionKey, r TimeRange) ([]history.ActivityEvent, error) {
	q := s.db.WithContext(ctx).Where("center_id = ? AND test_type = ?", key.CenterID, key.TestType)
	if !r.From.IsZero() {
		q = q.Where("grab >= ?", r.From.UTC())
	}
	if !r.To.IsZero() {
		q = q.Where("grab < ?", r.To.UTC())
	}

	var rows []model.ActivityEvent
	if err := q.Order("appointment, grab").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query activity for %s: %w", key, err)
	}
	out := make([]history.ActivityEvent, len(rows))
	for i, row := range rows {
		out[i] = s.fromActivityRow(row)
	}
	return out, nil
}

func (s *gormStore) Occupancy(ctx context.Context, key history.PartitionKey, g history.Granularity, r TimeRange) ([]history.OccupancyRate, error) {
	q := s.db.WithContext(ctx).Where("center_id = ? AND test_type = ? AND granularity = ?", key.CenterID, key.TestType, string(g))
	if g != history.GranularityOverall {
		// a bucket partly inside the range is included
		if !r.From.IsZero() {
			q = q.Where("bucket >= ?", history.Bucket(r.From.In(s.loc), g).UTC())
		}
		if !r.To.IsZero() {
			q = q.Where("bucket < ?", r.To.UTC())
		}
	}

	var rows []model.OccupancyRate
	if err := q.Order("bucket").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query occupancy for %s: %w", key, err)
	}
	out := make([]history.OccupancyRate, len(rows))
	for i, row := range rows {
		out[i] = s.fromOccupancyRow(row)
	}
	return out, nil
}

// SlotHistory returns the grid, final status, activity and first appearance
// of one slot. ErrNotFound is returned when the slot has no grid rows.
func (s *gormStore) SlotHistory(ctx context.Context, slot history.SlotKey) (*SlotHistory, error) {
	db := s.db.WithContext(ctx)
	where := "center_id = ? AND test_type = ? AND appointment = ?"
	args := []any{slot.CenterID, slot.TestType, slot.Appointment.UTC()}

	var grid []model.TimeGridEntry
	if err := db.Where(where, args...).Order("grab").Find(&grid).Error; err != nil {
		return nil, fmt.Errorf("failed to query time grid: %w", err)
	}
	if len(grid) == 0 {
		return nil, ErrNotFound
	}

	out := &SlotHistory{
		CenterID:    slot.CenterID,
		TestType:    slot.TestType,
		Appointment: slot.Appointment.In(s.loc),
	}
	for _, g := range grid {
		out.Grid = append(out.Grid, history.TimeGridEntry{
			CenterID:    g.CenterID,
			TestType:    g.TestType,
			Appointment: g.Appointment.In(s.loc),
			Grab:        g.Grab.In(s.loc),
			Status:      history.Status(g.Status),
		})
	}

	var final model.FinalStatus
	err := db.Where(where, args...).First(&final).Error
	switch {
	case err == nil:
		rec := s.fromFinalRow(final)
		out.Final = &rec
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to query final status: %w", err)
	}

	var events []model.ActivityEvent
	if err := db.Where(where, args...).Order("grab").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	for _, e := range events {
		out.Activity = append(out.Activity, s.fromActivityRow(e))
	}

	var first model.FirstAppearance
	err = db.Where(where, args...).First(&first).Error
	switch {
	case err == nil:
		grab := first.Grab.In(s.loc)
		out.FirstAppearance = &grab
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to query first appearance: %w", err)
	}
	return out, nil
}

// LatestRun returns the most recent computation run.
func (s *gormStore) LatestRun(ctx context.Context) (*model.ComputationRun, error) {
	var run model.ComputationRun
	err := s.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	run.StartedAt = run.StartedAt.In(s.loc)
	run.FinishedAt = run.FinishedAt.In(s.loc)
	run.MaxGrab = run.MaxGrab.In(s.loc)
	return &run, nil
}

// Tables reads every derived table back, in natural key order.
func (s *gormStore) Tables(ctx context.Context) (*history.Result, error) {
	db := s.db.WithContext(ctx)
	res := &history.Result{}

	var grid []model.TimeGridEntry
	if err := db.Order("center_id, test_type, appointment, grab").Find(&grid).Error; err != nil {
		return nil, fmt.Errorf("failed to read time grid: %w", err)
	}
	for _, g := range grid {
		res.TimeGrid = append(res.TimeGrid, history.TimeGridEntry{
			CenterID:    g.CenterID,
			TestType:    g.TestType,
			Appointment: g.Appointment.In(s.loc),
			Grab:        g.Grab.In(s.loc),
			Status:      history.Status(g.Status),
		})
	}

	var final []model.FinalStatus
	if err := db.Order("center_id, test_type, appointment").Find(&final).Error; err != nil {
		return nil, fmt.Errorf("failed to read final statuses: %w", err)
	}
	for _, f := range final {
		res.FinalStatuses = append(res.FinalStatuses, s.fromFinalRow(f))
	}

	var events []model.ActivityEvent
	if err := db.Order("center_id, test_type, appointment, grab").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	for _, e := range events {
		res.Activity = append(res.Activity, s.fromActivityRow(e))
	}

	var rates []model.OccupancyRate
	if err := db.Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to read occupancy: %w", err)
	}
	for _, r := range rates {
		res.Occupancy = append(res.Occupancy, s.fromOccupancyRow(r))
	}
	history.SortOccupancy(res.Occupancy)

	var postings []model.FirstPosting
	if err := db.Order("center_id, test_type, day").Find(&postings).Error; err != nil {
		return nil, fmt.Errorf("failed to read first postings: %w", err)
	}
	for _, p := range postings {
		res.FirstPostings = append(res.FirstPostings, history.FirstPosting{
			CenterID: p.CenterID,
			TestType: p.TestType,
			Day:      p.Day.In(s.loc),
			Grab:     p.Grab.In(s.loc),
		})
	}

	centers, err := s.Centers(ctx)
	if err != nil {
		return nil, err
	}
	res.Centers = centers
	return res, nil
}

func (s *gormStore) fromFinalRow(r model.FinalStatus) history.FinalStatusRecord {
	return history.FinalStatusRecord{
		CenterID:    r.CenterID,
		TestType:    r.TestType,
		Appointment: r.Appointment.In(s.loc),
		LastGrab:    r.LastGrab.In(s.loc),
		FinalStatus: history.Status(r.FinalStatus),
	}
}

func (s *gormStore) fromActivityRow(r model.ActivityEvent) history.ActivityEvent {
	return history.ActivityEvent{
		CenterID:     r.CenterID,
		TestType:     r.TestType,
		Appointment:  r.Appointment.In(s.loc),
		Grab:         r.Grab.In(s.loc),
		PreviousGrab: r.PreviousGrab.In(s.loc),
		Action:       history.Action(r.Action),
	}
}

func (s *gormStore) fromOccupancyRow(r model.OccupancyRate) history.OccupancyRate {
	out := history.OccupancyRate{
		CenterID:    r.CenterID,
		TestType:    r.TestType,
		Granularity: history.Granularity(r.Granularity),
		Booked:      r.Booked,
		Available:   r.Available,
		Rate:        history.UndefinedRate,
	}
	if out.Granularity != history.GranularityOverall {
		out.Bucket = r.Bucket.In(s.loc)
	}
	if r.Rate != nil {
		out.Rate = history.Rate(*r.Rate)
	}
	return out
}
