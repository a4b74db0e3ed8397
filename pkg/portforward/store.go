package portforward

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// AuditStore persists a row per port-forward start/stop event. It gives
// the in-memory Manager a durable history surviving process restarts —
// the forwards themselves do not survive a restart (the kubectl child
// processes are not reattached), only the record that they happened.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists.
func NewAuditStore(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit store schema: %w", err)
	}
	return &AuditStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS port_forward_events (
	id            TEXT PRIMARY KEY,
	context       TEXT NOT NULL,
	namespace     TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_name TEXT NOT NULL,
	local_port    INTEGER NOT NULL,
	service_port  INTEGER NOT NULL,
	pid           INTEGER NOT NULL,
	started_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	stopped_at    DATETIME
);`

// RecordStart inserts a row for a newly started forward. Failures are
// logged, not returned — the audit trail is best-effort and must never
// block the forward itself from starting.
func (s *AuditStore) RecordStart(ctx context.Context, info Info, resourceType, resourceName string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO port_forward_events
			(id, context, namespace, resource_type, resource_name, local_port, service_port, pid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Context, info.Namespace, resourceType, resourceName,
		info.LocalPort, info.ServicePort, info.PID)
	if err != nil {
		log.Printf("portforward: recording start: %v", err)
	}
}

// RecordStop marks a forward's event row as stopped.
func (s *AuditStore) RecordStop(ctx context.Context, id string) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE port_forward_events SET stopped_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		log.Printf("portforward: recording stop: %v", err)
	}
}

// History returns at most limit recorded events, most recent first.
func (s *AuditStore) History(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, context, namespace, resource_type, resource_name, local_port, service_port, pid, started_at, stopped_at
		FROM port_forward_events ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Context, &e.Namespace, &e.ResourceType, &e.ResourceName,
			&e.LocalPort, &e.ServicePort, &e.PID, &e.StartedAt, &e.StoppedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Event is one row of port-forward history.
type Event struct {
	ID           string
	Context      string
	Namespace    string
	ResourceType string
	ResourceName string
	LocalPort    int
	ServicePort  int
	PID          int
	StartedAt    sql.NullTime
	StoppedAt    sql.NullTime
}

// Close releases the underlying database handle.
func (s *AuditStore) Close() error {
	return s.db.Close()
}
