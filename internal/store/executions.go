package store

import (
	"database/sql"
	"fmt"
)

// CreateExecution inserts a new execution record.
func (s *Store) CreateExecution(sessionID, projectPath, query, status string) error {
	_, err := s.db.Exec(`
		INSERT INTO executions (session_id, project_path, query, status)
		VALUES (?, ?, ?, ?)`,
		sessionID, projectPath, query, status)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

// UpdateExecutionStatus changes an execution's status.
func (s *Store) UpdateExecutionStatus(sessionID, status string) error {
	_, err := s.db.Exec(`
		UPDATE executions SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ?`,
		status, sessionID)
	return err
}

// UpdateExecutionPID records the OS process id once spawned.
func (s *Store) UpdateExecutionPID(sessionID string, pid int) error {
	_, err := s.db.Exec(`
		UPDATE executions SET pid = ?, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ?`,
		pid, sessionID)
	return err
}

// FinishExecution records the terminal status and exit code.
func (s *Store) FinishExecution(sessionID, status string, exitCode int) error {
	_, err := s.db.Exec(`
		UPDATE executions
		SET status = ?, exit_code = ?, ended_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ?`,
		status, exitCode, sessionID)
	return err
}

// GetExecution retrieves a single execution, or nil when absent.
func (s *Store) GetExecution(sessionID string) (*ExecutionRow, error) {
	row := s.db.QueryRow(`
		SELECT session_id, project_path, query, status, pid, exit_code, started_at, ended_at, updated_at
		FROM executions WHERE session_id = ?`,
		sessionID)

	exec, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// ListExecutions returns executions ordered newest first.
func (s *Store) ListExecutions(limit int) ([]*ExecutionRow, error) {
	query := `
		SELECT session_id, project_path, query, status, pid, exit_code, started_at, ended_at, updated_at
		FROM executions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []*ExecutionRow
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*ExecutionRow, error) {
	var exec ExecutionRow
	var pid, exitCode sql.NullInt64
	var endedAt sql.NullTime

	err := row.Scan(
		&exec.SessionID, &exec.ProjectPath, &exec.Query, &exec.Status,
		&pid, &exitCode, &exec.StartedAt, &endedAt, &exec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pid.Valid {
		v := int(pid.Int64)
		exec.PID = &v
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		exec.ExitCode = &v
	}
	if endedAt.Valid {
		t := endedAt.Time
		exec.EndedAt = &t
	}
	return &exec, nil
}
