package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interactions (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id    TEXT NOT NULL,
    timestamp     TEXT NOT NULL,
    task_type     TEXT NOT NULL,
    operation     TEXT,
    provider      TEXT,
    status        TEXT NOT NULL,
    latency_ms    INTEGER,
    prompt        TEXT,
    response_data TEXT
);
CREATE INDEX IF NOT EXISTS idx_interactions_task_type ON interactions(task_type);
CREATE INDEX IF NOT EXISTS idx_interactions_timestamp ON interactions(timestamp);
`

// SQLiteStore is the embedded audit backend. Timestamps are stored as
// RFC 3339 UTC text.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the audit database at path.
// ":memory:" gives an ephemeral store for tests.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create audit db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}
	// Single connection: serializes writers and keeps in-memory databases
	// on one handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	logger.Info("audit database ready", zap.String("driver", "sqlite"), zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Append inserts one record. The store never mutates existing rows.
func (s *SQLiteStore) Append(ctx context.Context, rec *Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (request_id, timestamp, task_type, operation, provider, status, latency_ms, prompt, response_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.TaskType,
		rec.Operation,
		rec.Provider,
		rec.Status,
		rec.LatencyMS,
		truncate(rec.Prompt),
		truncate(rec.ResponseData),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	if id, idErr := res.LastInsertId(); idErr == nil {
		rec.ID = id
	}
	return nil
}

func sqliteWhere(taskType, startDate, endDate string) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}
	if taskType != "" {
		where += " AND task_type = ?"
		args = append(args, taskType)
	}
	if startDate != "" {
		where += " AND date(timestamp) >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		where += " AND date(timestamp) <= ?"
		args = append(args, endDate)
	}
	return where, args
}

// Query returns one page of records under the given filter and sort, plus
// the total match count over the filtered set.
func (s *SQLiteStore) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	where, args := sqliteWhere(opts.TaskType, opts.StartDate, opts.EndDate)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interactions"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit records: %w", err)
	}

	order := fmt.Sprintf(" ORDER BY %s %s, id %s", opts.SortBy, opts.SortOrder, opts.SortOrder)
	query := "SELECT id, request_id, timestamp, task_type, operation, provider, status, latency_ms, prompt, response_data FROM interactions" +
		where + order + " LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	result := &QueryResult{TotalMatches: total, Records: []Record{}}
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &rec.RequestID, &ts, &rec.TaskType, &rec.Operation,
			&rec.Provider, &rec.Status, &rec.LatencyMS, &rec.Prompt, &rec.ResponseData); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			rec.Timestamp = parsed
		}
		result.Records = append(result.Records, rec)
	}
	return result, rows.Err()
}

var sqliteGranularity = map[string]string{
	"day":   "%Y-%m-%d",
	"month": "%Y-%m",
	"year":  "%Y",
}

// TasksOverTime counts records per time bucket.
func (s *SQLiteStore) TasksOverTime(ctx context.Context, granularity string, rf RangeFilter) ([]TimeBucket, error) {
	format, ok := sqliteGranularity[granularity]
	if !ok {
		return nil, fmt.Errorf("invalid granularity %q", granularity)
	}
	where, args := sqliteWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT strftime('%s', timestamp) AS bucket, COUNT(*) FROM interactions%s GROUP BY bucket ORDER BY bucket`, format, where),
		args...)
	if err != nil {
		return nil, fmt.Errorf("tasks over time: %w", err)
	}
	defer rows.Close()

	var out []TimeBucket
	for rows.Next() {
		var tb TimeBucket
		if err := rows.Scan(&tb.DateGroup, &tb.Count); err != nil {
			return nil, fmt.Errorf("scan time bucket: %w", err)
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}

// RequestsPerProvider counts records per provider, skipping local skills.
func (s *SQLiteStore) RequestsPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderCount, error) {
	where, args := sqliteWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COUNT(*) FROM interactions`+where+
			` AND provider != '' GROUP BY provider ORDER BY COUNT(*) DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("requests per provider: %w", err)
	}
	defer rows.Close()

	var out []ProviderCount
	for rows.Next() {
		var pc ProviderCount
		if err := rows.Scan(&pc.Provider, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan provider count: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// AvgLatencyPerProvider averages latency per provider, skipping local skills.
func (s *SQLiteStore) AvgLatencyPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderLatency, error) {
	where, args := sqliteWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, AVG(latency_ms) FROM interactions`+where+
			` AND provider != '' GROUP BY provider ORDER BY provider`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("avg latency per provider: %w", err)
	}
	defer rows.Close()

	var out []ProviderLatency
	for rows.Next() {
		var pl ProviderLatency
		if err := rows.Scan(&pl.Provider, &pl.AvgMS); err != nil {
			return nil, fmt.Errorf("scan provider latency: %w", err)
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

// Close shuts down the database handle.
func (s *SQLiteStore) Close() {
	s.db.Close()
}
