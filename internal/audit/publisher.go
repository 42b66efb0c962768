package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// auditStream is the Redis Stream that mirrors every appended record for
// live dashboards.
const auditStream = "praximous:audit"

// Publisher mirrors audit records to a Redis Stream. It is strictly
// best-effort: publish failures are logged and never propagate.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(redisURL string, logger *zap.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{rdb: rdb, logger: logger}, nil
}

// Publish appends a record to the audit stream.
func (p *Publisher) Publish(ctx context.Context, rec *Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		p.logger.Warn("marshal audit event failed", zap.Error(err))
		return
	}
	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: auditStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		p.logger.Warn("publish audit event failed",
			zap.String("request_id", rec.RequestID), zap.Error(err))
		return
	}
	p.logger.Debug("published audit event",
		zap.String("request_id", rec.RequestID),
		zap.String("status", rec.Status))
}

// Close shuts down the Redis connection.
func (p *Publisher) Close() {
	p.rdb.Close()
}
