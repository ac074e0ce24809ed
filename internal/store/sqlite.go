package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for run history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Store initialized successfully", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// Run Operations
// ============================================================================

// CreateRun inserts a new Run and sets its ID
func (s *Store) CreateRun(run *Run) error {
	const query = `
		INSERT INTO runs (
			kind, group_name, source, profile_path, target_count,
			succeeded, failed, status, error_message, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.Kind, run.GroupName, run.Source, run.ProfilePath, run.TargetCount,
		run.Succeeded, run.Failed, run.Status, run.ErrorMessage,
		run.StartTime, run.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateRun updates an existing Run by ID
func (s *Store) UpdateRun(run *Run) error {
	const query = `
		UPDATE runs SET
			kind = ?, group_name = ?, source = ?, profile_path = ?,
			target_count = ?, succeeded = ?, failed = ?, status = ?,
			error_message = ?, start_time = ?, end_time = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.Kind, run.GroupName, run.Source, run.ProfilePath, run.TargetCount,
		run.Succeeded, run.Failed, run.Status, run.ErrorMessage,
		run.StartTime, run.EndTime, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %d", run.ID)
	}

	return nil
}

// GetRun retrieves a Run by ID
func (s *Store) GetRun(id int64) (*Run, error) {
	const query = `
		SELECT id, kind, group_name, source, profile_path, target_count,
		       succeeded, failed, status, error_message, start_time, end_time
		FROM runs WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRow(query, id).Scan(
		&run.ID, &run.Kind, &run.GroupName, &run.Source, &run.ProfilePath,
		&run.TargetCount, &run.Succeeded, &run.Failed, &run.Status,
		&run.ErrorMessage, &run.StartTime, &run.EndTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves Runs newest first, optionally filtered by kind
func (s *Store) ListRuns(kind string, limit int) ([]Run, error) {
	query := `
		SELECT id, kind, group_name, source, profile_path, target_count,
		       succeeded, failed, status, error_message, start_time, end_time
		FROM runs
	`
	var args []interface{}

	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY start_time DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run := Run{}
		err := rows.Scan(
			&run.ID, &run.Kind, &run.GroupName, &run.Source, &run.ProfilePath,
			&run.TargetCount, &run.Succeeded, &run.Failed, &run.Status,
			&run.ErrorMessage, &run.StartTime, &run.EndTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// ============================================================================
// TargetResult Operations
// ============================================================================

// AddTargetResult inserts a new TargetResult and sets its ID
func (s *Store) AddTargetResult(rec *TargetResult) error {
	const query = `
		INSERT INTO target_results (
			run_id, position, address, ok, job_id, task_state, message, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		rec.RunID, rec.Position, rec.Address, rec.OK,
		rec.JobID, rec.TaskState, rec.Message, rec.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert target result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListTargetResults retrieves the per-target outcomes for a run in the
// order the targets were supplied
func (s *Store) ListTargetResults(runID int64) ([]TargetResult, error) {
	const query = `
		SELECT id, run_id, position, address, ok, job_id, task_state, message, elapsed_ms
		FROM target_results WHERE run_id = ? ORDER BY position
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query target results: %w", err)
	}
	defer rows.Close()

	var records []TargetResult
	for rows.Next() {
		rec := TargetResult{}
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Position, &rec.Address, &rec.OK,
			&rec.JobID, &rec.TaskState, &rec.Message, &rec.ElapsedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target result: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target results: %w", err)
	}

	return records, nil
}
