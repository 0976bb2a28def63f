package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "ingest" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestEnqueueBackfill(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	payload := BackfillPayload{After: "2026-01-01T00:00:00Z", PageSize: 25, Force: true}
	if err := client.EnqueueBackfill(context.Background(), payload); err != nil {
		t.Fatalf("EnqueueBackfill: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("ingest")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskBackfill {
		t.Errorf("task type = %s, want %s", tasks[0].Type, TaskBackfill)
	}

	var got BackfillPayload
	if err := json.Unmarshal(tasks[0].Payload, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
}

func TestEnqueueOnNilClient(t *testing.T) {
	var client *Client
	if err := client.EnqueueReprocessSweep(context.Background(), ReprocessSweepPayload{Limit: 10}); err != nil {
		t.Fatalf("nil client enqueue: %v", err)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}
