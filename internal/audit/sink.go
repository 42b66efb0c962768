package audit

import (
	"context"

	"go.uber.org/zap"
)

// Sink owns the durable audit trail: one record per completed dispatch,
// written after the response is finalized, never mutated afterward.
// Reads go straight to the store; appends are optionally mirrored to the
// Redis Stream publisher.
type Sink struct {
	store  Store
	pub    *Publisher
	logger *zap.Logger
}

// NewSink wraps a store with an optional publisher. pub may be nil.
func NewSink(store Store, pub *Publisher, logger *zap.Logger) *Sink {
	return &Sink{store: store, pub: pub, logger: logger}
}

// Append writes one record. Callers treat an error as a non-fatal
// warning: an audit write failure must never abort a finished response.
func (s *Sink) Append(ctx context.Context, rec *Record) error {
	if err := s.store.Append(ctx, rec); err != nil {
		return err
	}
	if s.pub != nil {
		s.pub.Publish(ctx, rec)
	}
	return nil
}

// Query proxies to the store.
func (s *Sink) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	return s.store.Query(ctx, opts)
}

// TasksOverTime proxies to the store.
func (s *Sink) TasksOverTime(ctx context.Context, granularity string, rf RangeFilter) ([]TimeBucket, error) {
	return s.store.TasksOverTime(ctx, granularity, rf)
}

// RequestsPerProvider proxies to the store.
func (s *Sink) RequestsPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderCount, error) {
	return s.store.RequestsPerProvider(ctx, rf)
}

// AvgLatencyPerProvider proxies to the store.
func (s *Sink) AvgLatencyPerProvider(ctx context.Context, rf RangeFilter) ([]ProviderLatency, error) {
	return s.store.AvgLatencyPerProvider(ctx, rf)
}

// Close releases the store and publisher.
func (s *Sink) Close() {
	s.store.Close()
	if s.pub != nil {
		s.pub.Close()
	}
}
