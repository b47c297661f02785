package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

const (
	DefaultRefreshInterval = 30 * time.Minute

	refreshAllJobName = "refresh-all"
	refreshAllJobPath = "/v1/internal/jobs/refresh-all"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type RefreshJobConfig struct {
	Interval time.Duration
}

type RefreshJobInput struct {
	DispatchID string
	// EnqueueNext schedules the following run after Interval.
	EnqueueNext bool
}

type RefreshJobResult struct {
	Mode             string            `json:"mode"`
	DispatchID       string            `json:"dispatch_id,omitempty"`
	Refresh          *RefreshAllResult `json:"refresh,omitempty"`
	QueuedCount      int               `json:"queued_count"`
	QueuedOperations []string          `json:"queued_operations"`
}

// RefreshJobService drives the periodic full refresh through an external job queue. Each
// run enqueues the next one, so the chain survives process restarts.
type RefreshJobService struct {
	refresher    *RefreshCoordinator
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          RefreshJobConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewRefreshJobService(
	refresher *RefreshCoordinator,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg RefreshJobConfig,
	logger *logging.Logger,
) *RefreshJobService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}

	return &RefreshJobService{
		refresher:    refresher,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Bootstrap enqueues an immediate refresh run that starts the chain.
func (s *RefreshJobService) Bootstrap(ctx context.Context) (RefreshJobResult, error) {
	now := s.now().UTC()
	dispatchID, err := s.enqueueRefreshAll(ctx, 0, now)
	if err != nil {
		return RefreshJobResult{}, err
	}
	return RefreshJobResult{
		Mode:             "bootstrap",
		QueuedCount:      1,
		QueuedOperations: []string{refreshAllJobName + ":" + dispatchID},
	}, nil
}

// RunRefreshAll executes a full refresh for a queued job.
func (s *RefreshJobService) RunRefreshAll(ctx context.Context, input RefreshJobInput) (RefreshJobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshJobService.RunRefreshAll")
	defer span.End()

	if s.refresher == nil {
		return RefreshJobResult{}, fmt.Errorf("%w: refresh coordinator is not configured", ErrDependencyUnavailable)
	}

	dispatchID := strings.TrimSpace(input.DispatchID)
	result := RefreshJobResult{
		Mode:             refreshAllJobName,
		DispatchID:       dispatchID,
		QueuedOperations: make([]string, 0, 1),
	}

	refresh, err := s.refresher.RefreshAll(ctx)
	if err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dispatchID,
			JobName:      refreshAllJobName,
			JobPath:      refreshAllJobPath,
			Scope:        scopeAll,
			Status:       jobscheduler.StatusFailed,
			ErrorMessage: err.Error(),
		})
		return RefreshJobResult{}, fmt.Errorf("run refresh-all job: %w", err)
	}
	result.Refresh = &refresh
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dispatchID,
		JobName:    refreshAllJobName,
		JobPath:    refreshAllJobPath,
		Scope:      scopeAll,
		Status:     jobscheduler.StatusCompleted,
		Payload: map[string]any{
			"sport_count":   refresh.SportCount,
			"success_count": refresh.SuccessCount,
			"failed_count":  refresh.FailedCount,
		},
	})

	if !input.EnqueueNext {
		return result, nil
	}
	nextID, err := s.enqueueRefreshAll(ctx, s.cfg.Interval, s.now().UTC())
	if err != nil {
		return RefreshJobResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, refreshAllJobName+":"+nextID)
	return result, nil
}

func (s *RefreshJobService) enqueueRefreshAll(ctx context.Context, delay time.Duration, now time.Time) (string, error) {
	dedupID := dedupKey(refreshAllJobName, scopeAll, now.Add(delay), s.cfg.Interval)
	payload := map[string]any{
		"dispatch_id": dedupID,
		"enqueued_at": now.Format(time.RFC3339),
	}
	if err := s.queue.Enqueue(ctx, refreshAllJobPath, payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      refreshAllJobName,
			JobPath:      refreshAllJobPath,
			Scope:        scopeAll,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return "", fmt.Errorf("enqueue %s: %w", refreshAllJobName, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    refreshAllJobName,
		JobPath:    refreshAllJobPath,
		Scope:      scopeAll,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return dedupID, nil
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *RefreshJobService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

// RefreshScheduler runs a full refresh on a fixed interval inside the process.
type RefreshScheduler struct {
	refresher *RefreshCoordinator
	interval  time.Duration
	logger    *logging.Logger
	ticks     func(d time.Duration) (<-chan time.Time, func())
}

func NewRefreshScheduler(refresher *RefreshCoordinator, interval time.Duration, logger *logging.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RefreshScheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
		ticks: func(d time.Duration) (<-chan time.Time, func()) {
			ticker := time.NewTicker(d)
			return ticker.C, ticker.Stop
		},
	}
}

// Run blocks until ctx is done, refreshing every interval. Failed runs are logged and
// the schedule continues.
func (s *RefreshScheduler) Run(ctx context.Context) {
	ticks, stop := s.ticks(s.interval)
	defer stop()

	s.logger.InfoContext(ctx, "refresh scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler stopped")
			return
		case <-ticks:
			result, err := s.refresher.RefreshAll(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "scheduled refresh failed", "error", err)
				continue
			}
			s.logger.InfoContext(ctx, "scheduled refresh finished",
				"sports", result.SportCount,
				"failed", result.FailedCount,
				"elapsed_ms", strconv.FormatInt(result.ElapsedMs, 10),
			)
		}
	}
}
