package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
	qb "github.com/riskibarqy/prizepicks-feed/internal/platform/querybuilder"
)

// upsertJobDispatchSuffix keeps the first sent_at of a run and lets the newest event own
// status, error and trace columns. A late "sent" never reopens a finished run.
const upsertJobDispatchSuffix = `ON CONFLICT (dispatch_id)
DO UPDATE SET
    job_name = EXCLUDED.job_name,
    job_path = EXCLUDED.job_path,
    scope = EXCLUDED.scope,
    payload = CASE WHEN EXCLUDED.payload = '{}'::jsonb THEN job_dispatches.payload ELSE EXCLUDED.payload END,
    status = CASE
        WHEN EXCLUDED.status = 'sent' AND job_dispatches.finished_at IS NOT NULL THEN job_dispatches.status
        ELSE EXCLUDED.status
    END,
    sent_at = COALESCE(job_dispatches.sent_at, EXCLUDED.sent_at),
    finished_at = COALESCE(EXCLUDED.finished_at, job_dispatches.finished_at),
    last_error = EXCLUDED.last_error,
    trace_id = EXCLUDED.trace_id,
    span_id = EXCLUDED.span_id,
    attempts = job_dispatches.attempts + 1,
    updated_at = EXCLUDED.updated_at`

type JobDispatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewJobDispatchRepository(db *sqlx.DB) *JobDispatchRepository {
	return &JobDispatchRepository{db: db, now: time.Now}
}

func (r *JobDispatchRepository) UpsertEvent(ctx context.Context, event jobscheduler.DispatchEvent) error {
	query, args, err := r.upsertQuery(event)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job dispatch dispatch_id=%s status=%s: %w", event.DispatchID, event.Status, err)
	}
	return nil
}

func (r *JobDispatchRepository) upsertQuery(event jobscheduler.DispatchEvent) (string, []any, error) {
	event, err := event.Normalize(r.now())
	if err != nil {
		return "", nil, err
	}

	payload, err := marshalJSON(event.Payload, "{}")
	if err != nil {
		return "", nil, fmt.Errorf("marshal job dispatch payload: %w", err)
	}

	query, args, err := qb.InsertModel("job_dispatches", jobDispatchRowFromEvent(event, payload), upsertJobDispatchSuffix)
	if err != nil {
		return "", nil, fmt.Errorf("build upsert job dispatch query: %w", err)
	}
	return query, args, nil
}
