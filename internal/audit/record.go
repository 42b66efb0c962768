package audit

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"
)

// Record is one immutable audit entry describing a completed dispatch.
// IDs are assigned by the store and are monotonically non-decreasing in
// insertion order.
type Record struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	TaskType     string    `json:"task_type"`
	Operation    string    `json:"operation,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	Status       string    `json:"status"`
	LatencyMS    int64     `json:"latency_ms"`
	Prompt       string    `json:"prompt,omitempty"`
	ResponseData string    `json:"response_data,omitempty"`
}

// Record status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxFieldLen bounds prompt and response payload sizes in the durable
// store. The full payload still reaches the caller; only the audit copy
// is truncated.
const maxFieldLen = 10000

// ErrInvalidSortColumn is returned by Query for a column outside the
// whitelist.
var ErrInvalidSortColumn = errors.New("invalid sort column")

// sortColumns is the single-column sort whitelist.
var sortColumns = map[string]bool{
	"id":         true,
	"request_id": true,
	"timestamp":  true,
	"task_type":  true,
	"provider":   true,
	"status":     true,
	"latency_ms": true,
}

// QueryOptions filters, sorts and paginates an audit query.
// Dates are inclusive YYYY-MM-DD bounds on the record timestamp.
type QueryOptions struct {
	TaskType  string
	StartDate string
	EndDate   string
	SortBy    string // defaults to timestamp
	SortOrder string // "asc" or "desc", defaults to desc
	Limit     int    // defaults to 50
	Offset    int
}

func (o *QueryOptions) normalize() error {
	if o.SortBy == "" {
		o.SortBy = "timestamp"
	}
	if !sortColumns[o.SortBy] {
		return ErrInvalidSortColumn
	}
	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return nil
}

// QueryResult is one page of records plus the total match count over the
// filtered set, so clients can compute page counts.
type QueryResult struct {
	TotalMatches int      `json:"total_matches"`
	Records      []Record `json:"data"`
}

// RangeFilter bounds an aggregation by inclusive YYYY-MM-DD dates.
type RangeFilter struct {
	StartDate string
	EndDate   string
}

// TimeBucket is one point of the tasks-over-time series.
type TimeBucket struct {
	DateGroup string `json:"date_group"`
	Count     int    `json:"count"`
}

// ProviderCount is one point of the requests-per-provider series.
type ProviderCount struct {
	Provider string `json:"provider_name"`
	Count    int    `json:"count"`
}

// ProviderLatency is one point of the mean-latency-per-provider series.
type ProviderLatency struct {
	Provider string  `json:"provider_name"`
	AvgMS    float64 `json:"average_latency"`
}

// Store is the durable audit storage contract. Appends are append-only;
// queries and aggregations are read-only projections that tolerate
// concurrent appends.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Query(ctx context.Context, opts QueryOptions) (*QueryResult, error)
	TasksOverTime(ctx context.Context, granularity string, rf RangeFilter) ([]TimeBucket, error)
	RequestsPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderCount, error)
	AvgLatencyPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderLatency, error)
	Close()
}

func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	// Back off to a rune boundary so the stored copy stays valid UTF-8.
	cut := maxFieldLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
