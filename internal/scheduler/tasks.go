// Package scheduler enqueues and executes background ingestion work (mailbox
// backfills, reprocess sweeps) over asynq, so long runs survive API restarts.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBackfill = "ingest.backfill"

const TaskReprocessSweep = "ingest.reprocess_sweep"

// BackfillPayload carries the date bounds as RFC3339 strings; empty means
// unbounded.
type BackfillPayload struct {
	After    string `json:"after,omitempty"`
	Before   string `json:"before,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

// ReprocessSweepPayload bounds one sweep run.
type ReprocessSweepPayload struct {
	Limit int `json:"limit,omitempty"`
}

func NewBackfillTask(payload BackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackfill, data), nil
}

func ParseBackfillPayload(task *asynq.Task) (BackfillPayload, error) {
	var payload BackfillPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BackfillPayload{}, err
	}
	return payload, nil
}

func NewReprocessSweepTask(payload ReprocessSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReprocessSweep, data), nil
}

func ParseReprocessSweepPayload(task *asynq.Task) (ReprocessSweepPayload, error) {
	var payload ReprocessSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReprocessSweepPayload{}, err
	}
	return payload, nil
}
