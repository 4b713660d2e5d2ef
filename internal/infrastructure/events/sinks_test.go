package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"credit-acceleration/internal/domain/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedisSink_PublishesJSON(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, DefaultChannel)
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil { // subscription confirmation
		t.Fatalf("subscribe: %v", err)
	}

	sink := NewRedisSink(rdb, "")
	n := notification.Notification{
		NotificationID: "n1",
		LoanPublicID:   "loan-1",
		Seq:            3,
		Type:           "status_changed",
		Priority:       notification.PriorityHigh,
	}
	if err := sink.Publish(ctx, n); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got notification.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("payload not JSON: %v", err)
		}
		if got.Seq != 3 || got.LoanPublicID != "loan-1" || got.Priority != notification.PriorityHigh {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisSink_ErrorWhenRedisDown(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	s.Close()

	if err := NewRedisSink(rdb, "x").Publish(context.Background(), notification.Notification{}); err == nil {
		t.Fatal("expected publish error with redis down")
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	if err := sink.Publish(context.Background(), notification.Notification{LoanPublicID: "loan-9", Seq: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["loan_id"] != "loan-9" {
		t.Fatalf("unexpected log entries: %+v", logs.All())
	}
}
