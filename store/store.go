// Package store persists tracking runs, finalized tracks and their features in SQLite
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/LdDl/benthic-mot/features"
	"github.com/LdDl/benthic-mot/mot"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when requested run is absent
var ErrRunNotFound = errors.New("run not found")

// schema.sql creates runs, tracks and features tables
//
//go:embed schema.sql
var schemaSQL string

// Store is SQLite-backed storage of tracking results
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// RunInfo describes a stored run
type RunInfo struct {
	RunID       string
	Clip        string
	CreatedAt   time.Time
	Frames      int
	TotalTracks int
	ValidTracks int
}

// Open opens (creating if needed) database at path and applies schema
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open database '%s'", path)
	}
	// SQLite allows single writer only
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't enable foreign keys")
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't apply database schema")
	}
	logger.Debug("database opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run result with all of its tracks. Saving the same run again replaces it
func (s *Store) SaveRun(ctx context.Context, clip string, result mot.RunResult) error {
	paramsJSON, err := json.Marshal(result.Params)
	if err != nil {
		return errors.Wrap(err, "Can't encode run parameters")
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return errors.Wrap(err, "Can't encode run summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"features", "tracks", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", result.RunID); err != nil {
			return errors.Wrapf(err, "Can't replace run '%s'", result.RunID)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, clip, created_at, frames, total_tracks, valid_tracks, params_json, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, clip, time.Now().UTC().Format(time.RFC3339Nano),
		result.Summary.Frames, result.Summary.TotalTracks, result.Summary.ValidTracks,
		string(paramsJSON), string(summaryJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "Can't insert run '%s'", result.RunID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (run_id, track_id, is_valid, state, length, displacement, avg_speed, total_duration, primary_source, record_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "Can't prepare track insert")
	}
	defer stmt.Close()

	for _, record := range result.Tracks {
		recordJSON, err := json.Marshal(record)
		if err != nil {
			return errors.Wrapf(err, "Can't encode track %d", record.ID)
		}
		_, err = stmt.ExecContext(ctx,
			result.RunID, record.ID, record.IsValid, record.State, record.Length,
			record.Displacement, record.MeanSpeed, record.TotalDuration, record.PrimarySource,
			string(recordJSON),
		)
		if err != nil {
			return errors.Wrapf(err, "Can't insert track %d", record.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Can't commit run")
	}
	s.logger.Info("run saved", zap.String("run_id", result.RunID), zap.String("clip", clip), zap.Int("tracks", len(result.Tracks)))
	return nil
}

// SaveFeatures stores extracted features of a run. Existing features of the same tracks are replaced
func (s *Store) SaveFeatures(ctx context.Context, runID string, trackFeatures []features.TrackFeatures) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO features (run_id, track_id, trajectory, organism, vector_json, features_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "Can't prepare features insert")
	}
	defer stmt.Close()

	for _, tf := range trackFeatures {
		vectorJSON, err := json.Marshal(tf.Vector)
		if err != nil {
			return errors.Wrapf(err, "Can't encode feature vector of track %d", tf.TrackID)
		}
		featuresJSON, err := json.Marshal(tf)
		if err != nil {
			return errors.Wrapf(err, "Can't encode features of track %d", tf.TrackID)
		}
		_, err = stmt.ExecContext(ctx, runID, tf.TrackID, string(tf.Behavior.TrajectoryType), string(tf.Behavior.Organism), string(vectorJSON), string(featuresJSON))
		if err != nil {
			return errors.Wrapf(err, "Can't insert features of track %d", tf.TrackID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Can't commit features")
	}
	s.logger.Info("features saved", zap.String("run_id", runID), zap.Int("tracks", len(trackFeatures)))
	return nil
}

// LoadRun returns stored run result with its tracks
func (s *Store) LoadRun(ctx context.Context, runID string) (mot.RunResult, error) {
	result := mot.RunResult{RunID: runID}
	var paramsJSON, summaryJSON string
	err := s.db.QueryRowContext(ctx, "SELECT params_json, summary_json FROM runs WHERE run_id = ?", runID).Scan(&paramsJSON, &summaryJSON)
	if err == sql.ErrNoRows {
		return result, errors.Wrapf(ErrRunNotFound, "run '%s'", runID)
	}
	if err != nil {
		return result, errors.Wrapf(err, "Can't load run '%s'", runID)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &result.Params); err != nil {
		return result, errors.Wrap(err, "Can't decode run parameters")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &result.Summary); err != nil {
		return result, errors.Wrap(err, "Can't decode run summary")
	}
	result.Tracks, err = s.LoadTracks(ctx, runID, false)
	if err != nil {
		return result, err
	}
	return result, nil
}

// LoadTracks returns track records of a run ordered by track identifier
func (s *Store) LoadTracks(ctx context.Context, runID string, validOnly bool) ([]mot.TrackRecord, error) {
	query := "SELECT record_json FROM tracks WHERE run_id = ?"
	if validOnly {
		query += " AND is_valid = 1"
	}
	query += " ORDER BY track_id"

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query tracks of run '%s'", runID)
	}
	defer rows.Close()

	records := make([]mot.TrackRecord, 0)
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, errors.Wrap(err, "Can't scan track")
		}
		var record mot.TrackRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			return nil, errors.Wrap(err, "Can't decode track")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate tracks")
	}
	return records, nil
}

// LoadFeatures returns stored features of a run ordered by track identifier
func (s *Store) LoadFeatures(ctx context.Context, runID string) ([]features.TrackFeatures, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT features_json FROM features WHERE run_id = ? ORDER BY track_id", runID)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query features of run '%s'", runID)
	}
	defer rows.Close()

	result := make([]features.TrackFeatures, 0)
	for rows.Next() {
		var featuresJSON string
		if err := rows.Scan(&featuresJSON); err != nil {
			return nil, errors.Wrap(err, "Can't scan features")
		}
		var tf features.TrackFeatures
		if err := json.Unmarshal([]byte(featuresJSON), &tf); err != nil {
			return nil, errors.Wrap(err, "Can't decode features")
		}
		result = append(result, tf)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate features")
	}
	return result, nil
}

// ListRuns returns stored runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, clip, created_at, frames, total_tracks, valid_tracks
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query runs")
	}
	defer rows.Close()

	runs := make([]RunInfo, 0)
	for rows.Next() {
		var info RunInfo
		var createdAt string
		if err := rows.Scan(&info.RunID, &info.Clip, &createdAt, &info.Frames, &info.TotalTracks, &info.ValidTracks); err != nil {
			return nil, errors.Wrap(err, "Can't scan run")
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't parse creation time of run '%s'", info.RunID)
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate runs")
	}
	return runs, nil
}
