package store

import "fmt"

// LogEvent appends one stream event to an execution's history.
func (s *Store) LogEvent(sessionID, kind, payload string) error {
	_, err := s.db.Exec(`
		INSERT INTO execution_events (session_id, kind, payload)
		VALUES (?, ?, ?)`,
		sessionID, kind, payload)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// ListEvents returns an execution's events in arrival order.
func (s *Store) ListEvents(sessionID string) ([]*EventRow, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, payload, timestamp
		FROM execution_events
		WHERE session_id = ?
		ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*EventRow
	for rows.Next() {
		var ev EventRow
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Kind, &ev.Payload, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
