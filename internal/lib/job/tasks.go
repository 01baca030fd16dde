package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names stored in Redis. Asynq routes tasks to handlers by type.
const (
	TaskProcessNotify   = "card:process_notify"
	TaskMarkerReconcile = "card:marker_reconcile"
)

// Process event names.
const (
	EventStarted = "started"
	EventStopped = "stopped"
)

// ProcessNotifyPayload is the JSON payload of a process notification task.
type ProcessNotifyPayload struct {
	Event     string `json:"event"`
	ClientID  int64  `json:"client_id"`
	OIB       int64  `json:"oib"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

// NewProcessNotifyTask builds a notification task. Delivery is retried
// three times in the low priority queue.
func NewProcessNotifyTask(p ProcessNotifyPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process notify payload: %w", err)
	}

	return asynq.NewTask(
		TaskProcessNotify,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewMarkerReconcileTask builds the periodic reconciliation task. Unique
// keeps a slow run from piling up duplicates.
func NewMarkerReconcileTask() *asynq.Task {
	return asynq.NewTask(
		TaskMarkerReconcile,
		nil,
		asynq.MaxRetry(0),
		asynq.Queue("default"),
		asynq.Timeout(time.Minute),
		asynq.Unique(5*time.Minute),
	)
}
