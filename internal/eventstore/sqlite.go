package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based event store.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identifier TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_identifier ON events(identifier);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event to the store. A zero timestamp is stamped with now.
func (s *SQLiteStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if md := event.Metadata(); md != nil {
		var err error
		metadataJSON, err = json.Marshal(md)
		if err != nil {
			return wrap(ErrEventAppendFailed, err)
		}
	}

	ts := event.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := event.Payload()
	if payload == nil {
		payload = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (identifier, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		event.Identifier(), event.Type(), ts.UnixMilli(), payload, metadataJSON,
	)
	if err != nil {
		return wrap(ErrEventAppendFailed, err)
	}
	return nil
}

// GetByIdentifier retrieves all events for one job identifier.
func (s *SQLiteStore) GetByIdentifier(ctx context.Context, identifier string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identifier, event_type, timestamp, payload, metadata FROM events WHERE identifier = ? ORDER BY id",
		identifier,
	)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identifier, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, wrap(ErrEventQueryFailed, err)
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *SQLiteStore) scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e BaseEvent
		var tsMillis int64
		var metadataJSON []byte

		if err := rows.Scan(&e.EventID, &e.EventIdentifier, &e.EventType, &tsMillis, &e.EventPayload, &metadataJSON); err != nil {
			return nil, wrap(ErrEventScanFailed, err)
		}
		e.EventTimestamp = time.UnixMilli(tsMillis)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.EventMetadata); err != nil {
				return nil, wrap(ErrEventScanFailed, err)
			}
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(ErrEventScanFailed, err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
