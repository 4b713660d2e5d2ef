// Package events fans committed loan notifications out to external consumers.
package events

import (
	"context"
	"encoding/json"

	"credit-acceleration/internal/domain/notification"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "loan-notifications"

// RedisSink publishes each notification as JSON on a pub/sub channel. The
// per-loan seq in the payload lets subscribers detect gaps.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisSink(rdb *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, n notification.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, raw).Err()
}

// LogSink writes notifications to the service log.
type LogSink struct{ log *zap.Logger }

func NewLogSink(log *zap.Logger) *LogSink { return &LogSink{log: log} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, n notification.Notification) error {
	s.log.Info("notification",
		zap.String("loan_id", n.LoanPublicID),
		zap.Uint64("seq", n.Seq),
		zap.String("type", n.Type),
		zap.String("priority", string(n.Priority)),
		zap.Bool("action_required", n.ActionRequired),
	)
	return nil
}
