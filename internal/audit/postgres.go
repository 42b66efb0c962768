package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore is the shared-database audit backend, backed by a pgx
// connection pool.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("audit database ready", zap.String("driver", "postgres"))
	return &PostgresStore{db: pool, logger: logger}, nil
}

// Migrate reads and executes all .up.sql files from the migrations directory.
func (s *PostgresStore) Migrate(ctx context.Context, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		s.logger.Info("migration applied", zap.String("file", f))
	}
	return nil
}

// Append inserts one record and fills in the assigned id.
func (s *PostgresStore) Append(ctx context.Context, rec *Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO interactions (request_id, timestamp, task_type, operation, provider, status, latency_ms, prompt, response_data)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		rec.RequestID,
		rec.Timestamp.UTC(),
		rec.TaskType,
		rec.Operation,
		rec.Provider,
		rec.Status,
		rec.LatencyMS,
		truncate(rec.Prompt),
		truncate(rec.ResponseData),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func pgWhere(taskType, startDate, endDate string) (string, []interface{}) {
	where := " WHERE 1=1"
	var args []interface{}
	if taskType != "" {
		args = append(args, taskType)
		where += fmt.Sprintf(" AND task_type = $%d", len(args))
	}
	if startDate != "" {
		args = append(args, startDate)
		where += fmt.Sprintf(" AND timestamp::date >= $%d::date", len(args))
	}
	if endDate != "" {
		args = append(args, endDate)
		where += fmt.Sprintf(" AND timestamp::date <= $%d::date", len(args))
	}
	return where, args
}

// Query returns one page of records under the given filter and sort, plus
// the total match count over the filtered set.
func (s *PostgresStore) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	where, args := pgWhere(opts.TaskType, opts.StartDate, opts.EndDate)

	var total int
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM interactions"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit records: %w", err)
	}

	order := fmt.Sprintf(" ORDER BY %s %s, id %s", opts.SortBy, opts.SortOrder, opts.SortOrder)
	args = append(args, opts.Limit, opts.Offset)
	query := "SELECT id, request_id, timestamp, task_type, operation, provider, status, latency_ms, prompt, response_data FROM interactions" +
		where + order + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	result := &QueryResult{TotalMatches: total, Records: []Record{}}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.Timestamp, &rec.TaskType, &rec.Operation,
			&rec.Provider, &rec.Status, &rec.LatencyMS, &rec.Prompt, &rec.ResponseData); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		result.Records = append(result.Records, rec)
	}
	return result, rows.Err()
}

var pgGranularity = map[string]string{
	"day":   "YYYY-MM-DD",
	"month": "YYYY-MM",
	"year":  "YYYY",
}

// TasksOverTime counts records per time bucket.
func (s *PostgresStore) TasksOverTime(ctx context.Context, granularity string, rf RangeFilter) ([]TimeBucket, error) {
	format, ok := pgGranularity[granularity]
	if !ok {
		return nil, fmt.Errorf("invalid granularity %q", granularity)
	}
	where, args := pgWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT to_char(timestamp, '%s') AS bucket, COUNT(*) FROM interactions%s GROUP BY bucket ORDER BY bucket`, format, where),
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
func (s *PostgresStore) RequestsPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderCount, error) {
	where, args := pgWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.Query(ctx,
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
func (s *PostgresStore) AvgLatencyPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderLatency, error) {
	where, args := pgWhere("", rf.StartDate, rf.EndDate)
	rows, err := s.db.Query(ctx,
		`SELECT provider, AVG(latency_ms)::float8 FROM interactions`+where+
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

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}
