package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/dbscan-sweep/internal/sweep"
)

// Sweep status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SweepRecord is one persisted sweep invocation.
type SweepRecord struct {
	SweepID     string     `json:"sweep_id"`
	DatasetPath string     `json:"dataset_path"`
	PointCount  int        `json:"point_count"`
	Dims        int        `json:"dims"`
	Metric      string     `json:"metric"`
	IndexKind   string     `json:"index_kind"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ResultRecord is one persisted (eps, minPts) combination. Counts and
// Labels are nil when the combination failed.
type ResultRecord struct {
	SweepID      string          `json:"sweep_id"`
	ComboIndex   int             `json:"combo_index"`
	Eps          float64         `json:"eps"`
	MinPts       int             `json:"min_pts"`
	ClusterCount *int            `json:"cluster_count,omitempty"`
	NoiseCount   *int            `json:"noise_count,omitempty"`
	Labels       json.RawMessage `json:"labels,omitempty"`
	Elapsed      time.Duration   `json:"elapsed"`
	Error        string          `json:"error,omitempty"`
}

// NewResultRecord converts a runner result into its persisted form.
func NewResultRecord(sweepID string, comboIndex int, r sweep.Result) (*ResultRecord, error) {
	rec := &ResultRecord{
		SweepID:    sweepID,
		ComboIndex: comboIndex,
		Eps:        r.Params.Eps,
		MinPts:     r.Params.MinPts,
		Elapsed:    r.Elapsed,
	}
	if !r.OK() {
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		return rec, nil
	}
	labels, err := json.Marshal(r.Assignment.Labels)
	if err != nil {
		return nil, fmt.Errorf("encoding labels: %w", err)
	}
	clusters, noise := r.Assignment.NumClusters, r.Assignment.NoiseCount()
	rec.ClusterCount = &clusters
	rec.NoiseCount = &noise
	rec.Labels = labels
	return rec, nil
}

// LabelSlice decodes the stored labels.
func (r *ResultRecord) LabelSlice() ([]int, error) {
	if len(r.Labels) == 0 {
		return nil, nil
	}
	var labels []int
	if err := json.Unmarshal(r.Labels, &labels); err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	return labels, nil
}

// SweepStore persists sweeps and their results.
type SweepStore struct {
	db *sql.DB
}

// NewSweepStore creates a new SweepStore.
func NewSweepStore(database *DB) *SweepStore {
	return &SweepStore{db: database.DB}
}

// InsertSweep records a new sweep. If SweepID is empty, a UUID is generated.
func (s *SweepStore) InsertSweep(rec *SweepRecord) error {
	if rec.SweepID == "" {
		rec.SweepID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusRunning
	}

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sweeps (
				sweep_id, dataset_path, point_count, dims, metric, index_kind,
				status, error, started_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SweepID, rec.DatasetPath, rec.PointCount, rec.Dims, rec.Metric, rec.IndexKind,
			rec.Status, nullStr(rec.Error), formatTime(rec.StartedAt), nullTime(rec.CompletedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting sweep %s: %w", rec.SweepID, err)
	}
	return nil
}

// CompleteSweep marks a sweep finished. A non-nil runErr marks it failed.
func (s *SweepStore) CompleteSweep(sweepID string, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	completed := time.Now()

	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE sweeps SET status = ?, error = ?, completed_at = ?
			WHERE sweep_id = ?`,
			status, nullStr(msg), formatTime(completed), sweepID,
		)
		if err != nil {
			return fmt.Errorf("completing sweep %s: %w", sweepID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("sweep %s not found", sweepID)
		}
		return nil
	})
}

// InsertResult records one combination.
func (s *SweepStore) InsertResult(rec *ResultRecord) error {
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sweep_results (
				sweep_id, combo_index, eps, min_pts, cluster_count, noise_count,
				labels_json, elapsed_ns, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SweepID, rec.ComboIndex, rec.Eps, rec.MinPts, rec.ClusterCount, rec.NoiseCount,
			nullJSON(rec.Labels), rec.Elapsed.Nanoseconds(), nullStr(rec.Error),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting result %d for sweep %s: %w", rec.ComboIndex, rec.SweepID, err)
	}
	return nil
}

// SaveResults records every runner result in a single transaction, using
// the result's position as its combination index.
func (s *SweepStore) SaveResults(sweepID string, results []sweep.Result) error {
	records := make([]*ResultRecord, 0, len(results))
	for i, r := range results {
		rec, err := NewResultRecord(sweepID, i, r)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT INTO sweep_results (
				sweep_id, combo_index, eps, min_pts, cluster_count, noise_count,
				labels_json, elapsed_ns, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.Exec(
				rec.SweepID, rec.ComboIndex, rec.Eps, rec.MinPts, rec.ClusterCount, rec.NoiseCount,
				nullJSON(rec.Labels), rec.Elapsed.Nanoseconds(), nullStr(rec.Error),
			); err != nil {
				return fmt.Errorf("inserting result %d for sweep %s: %w", rec.ComboIndex, sweepID, err)
			}
		}
		return tx.Commit()
	})
}

// GetSweep returns the sweep with the given id, or nil if none exists.
func (s *SweepStore) GetSweep(sweepID string) (*SweepRecord, error) {
	row := s.db.QueryRow(`
		SELECT sweep_id, dataset_path, point_count, dims, metric, index_kind,
		       status, error, started_at, completed_at
		FROM sweeps WHERE sweep_id = ?`, sweepID)

	rec, err := scanSweep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sweep: %w", err)
	}
	return rec, nil
}

// ListSweeps returns sweeps ordered by start time, most recent first.
func (s *SweepStore) ListSweeps(limit int) ([]*SweepRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT sweep_id, dataset_path, point_count, dims, metric, index_kind,
		       status, error, started_at, completed_at
		FROM sweeps
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	var sweeps []*SweepRecord
	for rows.Next() {
		rec, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		sweeps = append(sweeps, rec)
	}
	return sweeps, rows.Err()
}

// ListResults returns the results of a sweep in combination order.
func (s *SweepStore) ListResults(sweepID string) ([]*ResultRecord, error) {
	rows, err := s.db.Query(`
		SELECT sweep_id, combo_index, eps, min_pts, cluster_count, noise_count,
		       labels_json, elapsed_ns, error
		FROM sweep_results
		WHERE sweep_id = ?
		ORDER BY combo_index`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []*ResultRecord
	for rows.Next() {
		var (
			rec             ResultRecord
			clusters, noise sql.NullInt64
			labels, errMsg  sql.NullString
			elapsedNS       int64
		)
		if err := rows.Scan(
			&rec.SweepID, &rec.ComboIndex, &rec.Eps, &rec.MinPts, &clusters, &noise,
			&labels, &elapsedNS, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		rec.ClusterCount = intOrNil(clusters)
		rec.NoiseCount = intOrNil(noise)
		rec.Labels = jsonOrNil(labels)
		rec.Elapsed = time.Duration(elapsedNS)
		rec.Error = errMsg.String
		results = append(results, &rec)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSweep(row rowScanner) (*SweepRecord, error) {
	var (
		rec               SweepRecord
		errMsg, completed sql.NullString
		started           string
	)
	if err := row.Scan(
		&rec.SweepID, &rec.DatasetPath, &rec.PointCount, &rec.Dims, &rec.Metric, &rec.IndexKind,
		&rec.Status, &errMsg, &started, &completed,
	); err != nil {
		return nil, err
	}
	rec.Error = errMsg.String

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	rec.StartedAt = t
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		rec.CompletedAt = &t
	}
	return &rec, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullJSON(b json.RawMessage) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}

func jsonOrNil(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}

func intOrNil(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
