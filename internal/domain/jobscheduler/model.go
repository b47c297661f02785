package jobscheduler

import (
	"errors"
	"strings"
	"time"
)

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

var ErrMissingDispatchID = errors.New("dispatch id is required")

// DispatchEvent is one status change of a queued refresh job. Events sharing a DispatchID
// describe the same job run.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Scope        string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}

// Normalize trims identifiers, fills placeholders for blank job fields and stamps
// OccurredAt with now when it is unset. Only failed events keep an error message.
func (e DispatchEvent) Normalize(now time.Time) (DispatchEvent, error) {
	e.DispatchID = strings.TrimSpace(e.DispatchID)
	if e.DispatchID == "" {
		return DispatchEvent{}, ErrMissingDispatchID
	}
	e.JobName = orUnknown(e.JobName, "unknown")
	e.JobPath = orUnknown(e.JobPath, "/unknown")
	e.Scope = orUnknown(e.Scope, "unknown")
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	e.OccurredAt = e.OccurredAt.UTC()
	if e.Status != StatusFailed {
		e.ErrorMessage = ""
	}
	return e, nil
}

func (s DispatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func orUnknown(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
