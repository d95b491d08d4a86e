package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConfig configures the SQLite trail backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration

	// WALMode enables write-ahead logging for concurrent readers.
	// Default: true.
	WALMode bool
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		WALMode:     true,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id                  TEXT PRIMARY KEY,
	time                TEXT NOT NULL,
	api14               TEXT,
	policy_id           TEXT NOT NULL,
	policy_version      TEXT NOT NULL,
	district            TEXT,
	county              TEXT,
	field               TEXT,
	resolution_method   TEXT NOT NULL,
	matched_field       TEXT,
	matched_in_county   TEXT,
	nearest_distance_km REAL,
	policy_complete     INTEGER NOT NULL,
	incomplete_reasons  TEXT,
	plan_id             TEXT,
	step_count          INTEGER NOT NULL,
	violation_count     INTEGER NOT NULL,
	payload_hash        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_time ON audit_events(time);
CREATE INDEX IF NOT EXISTS idx_audit_events_api14 ON audit_events(api14);
`

// SQLiteStorage is the durable trail backend.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
}

// NewSQLiteStorage opens (and migrates) the trail database.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("sqlite storage requires a database path")
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d", config.Path, config.BusyTimeout.Milliseconds())
	if config.WALMode {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}

	return &SQLiteStorage{db: db, config: config}, nil
}

// Store persists one event.
func (s *SQLiteStorage) Store(ctx context.Context, event *Event) error {
	reasons, err := json.Marshal(event.IncompleteReasons)
	if err != nil {
		return fmt.Errorf("failed to encode incomplete reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, time, api14, policy_id, policy_version,
			district, county, field,
			resolution_method, matched_field, matched_in_county, nearest_distance_km,
			policy_complete, incomplete_reasons,
			plan_id, step_count, violation_count, payload_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Time.Format(time.RFC3339Nano), event.API14,
		event.PolicyID, event.PolicyVersion,
		event.District, event.County, event.Field,
		event.ResolutionMethod, event.MatchedField, event.MatchedInCounty,
		event.NearestDistanceKM,
		boolToInt(event.PolicyComplete), string(reasons),
		event.PlanID, event.StepCount, event.ViolationCount, event.PayloadHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Query retrieves events matching the filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *Query) ([]*Event, error) {
	where := []string{"1=1"}
	var args []any

	if query != nil {
		if query.API14 != "" {
			where = append(where, "api14 = ?")
			args = append(args, query.API14)
		}
		if query.PolicyID != "" {
			where = append(where, "policy_id = ?")
			args = append(args, query.PolicyID)
		}
		if query.District != "" {
			where = append(where, "district = ?")
			args = append(args, query.District)
		}
		if !query.Since.IsZero() {
			where = append(where, "time >= ?")
			args = append(args, query.Since.Format(time.RFC3339Nano))
		}
		if !query.Until.IsZero() {
			where = append(where, "time <= ?")
			args = append(args, query.Until.Format(time.RFC3339Nano))
		}
	}

	q := fmt.Sprintf(`
		SELECT id, time, api14, policy_id, policy_version,
		       district, county, field,
		       resolution_method, matched_field, matched_in_county, nearest_distance_km,
		       policy_complete, incomplete_reasons,
		       plan_id, step_count, violation_count, payload_hash
		FROM audit_events
		WHERE %s
		ORDER BY time DESC`, strings.Join(where, " AND "))

	if query != nil && query.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", query.Limit, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var results []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, event)
	}
	return results, rows.Err()
}

// Prune deletes events older than the cutoff.
func (s *SQLiteStorage) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE time < ?",
		olderThan.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		event      Event
		timeStr    string
		complete   int
		reasonsStr string
		distance   sql.NullFloat64
	)

	err := rows.Scan(
		&event.ID, &timeStr, &event.API14, &event.PolicyID, &event.PolicyVersion,
		&event.District, &event.County, &event.Field,
		&event.ResolutionMethod, &event.MatchedField, &event.MatchedInCounty, &distance,
		&complete, &reasonsStr,
		&event.PlanID, &event.StepCount, &event.ViolationCount, &event.PayloadHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	event.Time, err = time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event time: %w", err)
	}
	event.PolicyComplete = complete != 0
	if distance.Valid {
		d := distance.Float64
		event.NearestDistanceKM = &d
	}
	if reasonsStr != "" && reasonsStr != "null" {
		if err := json.Unmarshal([]byte(reasonsStr), &event.IncompleteReasons); err != nil {
			return nil, fmt.Errorf("failed to decode incomplete reasons: %w", err)
		}
	}

	return &event, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
