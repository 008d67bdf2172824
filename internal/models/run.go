package models

import (
	"time"

	"github.com/google/uuid"
)

// Run states. Idle through Transmitting are transient, Done and Failed end a run.
const (
	StateIdle         = "idle"
	StateFlagCheck    = "flag_check"
	StateBuilding     = "building"
	StateComparing    = "comparing"
	StateTransmitting = "transmitting"
	StateDone         = "done"
	StateFailed       = "failed"
)

// Run outcomes.
const (
	OutcomeDisabled    = "disabled"
	OutcomeUnchanged   = "unchanged"
	OutcomeTransmitted = "transmitted"
	OutcomeFailed      = "failed"
)

// Run triggers.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
	TriggerCLI    = "cli"
)

type SyncRun struct {
	ID           uuid.UUID  `json:"id"`
	Trigger      string     `json:"trigger"`
	State        string     `json:"state"`
	Outcome      string     `json:"outcome,omitempty"`
	ItemCount    int        `json:"item_count"`
	BodyHash     string     `json:"body_hash,omitempty"`
	StatusCode   int        `json:"status_code,omitempty"`
	ErrorMessage *string    `json:"error_message"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

func NewSyncRun(trigger string, now time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		State:     StateIdle,
		StartedAt: now,
	}
}

func (r *SyncRun) Finish(state, outcome string, err error, now time.Time) {
	r.State = state
	r.Outcome = outcome
	if err != nil {
		msg := err.Error()
		r.ErrorMessage = &msg
	}
	r.FinishedAt = &now
}

// Preview is a dry run: what would be sent and whether it differs from the
// last transmitted payload.
type Preview struct {
	ItemCount int             `json:"item_count"`
	BodyHash  string          `json:"body_hash"`
	Changed   bool            `json:"changed"`
	Items     []ScheduledItem `json:"items"`
	Payload   string          `json:"payload"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventRunStarted  = "run_started"
	EventRunFinished = "run_finished"
)

// RunEventsChannel is the Redis pub/sub channel carrying run events.
const RunEventsChannel = "schedule_sync:events"

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
