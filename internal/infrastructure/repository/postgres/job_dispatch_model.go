package postgres

import (
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
)

type jobDispatchRow struct {
	DispatchID string     `db:"dispatch_id"`
	JobName    string     `db:"job_name"`
	JobPath    string     `db:"job_path"`
	Scope      string     `db:"scope"`
	Payload    string     `db:"payload"`
	Status     string     `db:"status"`
	SentAt     *time.Time `db:"sent_at"`
	FinishedAt *time.Time `db:"finished_at"`
	LastError  *string    `db:"last_error"`
	TraceID    *string    `db:"trace_id"`
	SpanID     *string    `db:"span_id"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func jobDispatchRowFromEvent(event jobscheduler.DispatchEvent, payload string) jobDispatchRow {
	occurredAt := event.OccurredAt
	row := jobDispatchRow{
		DispatchID: event.DispatchID,
		JobName:    event.JobName,
		JobPath:    event.JobPath,
		Scope:      event.Scope,
		Payload:    payload,
		Status:     string(event.Status),
		LastError:  optionalString(event.ErrorMessage),
		TraceID:    optionalString(event.TraceID),
		SpanID:     optionalString(event.SpanID),
		UpdatedAt:  occurredAt,
	}
	if event.Status.Terminal() {
		row.FinishedAt = &occurredAt
	} else {
		row.SentAt = &occurredAt
	}
	return row
}
