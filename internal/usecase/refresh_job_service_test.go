package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/jobscheduler"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	jobschedulermock "github.com/riskibarqy/prizepicks-feed/internal/mocks/domain/jobscheduler"
	"github.com/stretchr/testify/mock"
)

type enqueuedJob struct {
	path    string
	delay   time.Duration
	dedupID string
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueuedJob{path: path, delay: delay, dedupID: dedupID})
	return nil
}

func TestDedupKey_UsesQStashSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("refresh-all", "sport:7/nba all", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "refresh-all-sport-7-nba-all-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}

func TestRefreshJobService_Bootstrap(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{}
	repo := jobschedulermock.NewRepository(t)
	repo.
		On("UpsertEvent", mock.Anything, mock.MatchedBy(func(event jobscheduler.DispatchEvent) bool {
			return event.Status == jobscheduler.StatusSent && event.Scope == scopeAll && event.JobPath == refreshAllJobPath
		})).
		Return(nil).
		Once()

	svc := NewRefreshJobService(nil, queue, repo, RefreshJobConfig{}, nil)
	result, err := svc.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if result.QueuedCount != 1 || len(queue.jobs) != 1 {
		t.Fatalf("unexpected bootstrap result: %+v jobs=%+v", result, queue.jobs)
	}
	if queue.jobs[0].delay != 0 || queue.jobs[0].path != refreshAllJobPath {
		t.Fatalf("unexpected bootstrap job: %+v", queue.jobs[0])
	}
}

func TestRefreshJobService_RunRefreshAllEnqueuesNext(t *testing.T) {
	t.Parallel()

	feed := newStubFeed()
	feed.sports = []sport.Sport{{ID: 7, Name: "NBA", Active: true}}
	feed.batches[7] = nbaBatch()
	coordinator, _ := newTestCoordinator(feed, newMemoryStores(), newFakeTracker())

	queue := &recordingQueue{}
	repo := jobschedulermock.NewRepository(t)
	repo.
		On("UpsertEvent", mock.Anything, mock.MatchedBy(func(event jobscheduler.DispatchEvent) bool {
			return event.DispatchID == "dispatch-1" && event.Status == jobscheduler.StatusCompleted
		})).
		Return(nil).
		Once()
	repo.
		On("UpsertEvent", mock.Anything, mock.MatchedBy(func(event jobscheduler.DispatchEvent) bool {
			return event.Status == jobscheduler.StatusSent
		})).
		Return(errors.New("db down")).
		Once()

	svc := NewRefreshJobService(coordinator, queue, repo, RefreshJobConfig{Interval: 30 * time.Minute}, nil)
	result, err := svc.RunRefreshAll(context.Background(), RefreshJobInput{DispatchID: "dispatch-1", EnqueueNext: true})
	if err != nil {
		t.Fatalf("run refresh all: %v", err)
	}
	if result.Refresh == nil || result.Refresh.SuccessCount != 1 {
		t.Fatalf("unexpected refresh result: %+v", result.Refresh)
	}
	if result.QueuedCount != 1 || len(queue.jobs) != 1 || queue.jobs[0].delay != 30*time.Minute {
		t.Fatalf("expected next run to be queued after the interval: %+v", queue.jobs)
	}
}

func TestRefreshJobService_EnqueueFailure(t *testing.T) {
	t.Parallel()

	queue := &recordingQueue{err: errors.New("qstash unavailable")}
	svc := NewRefreshJobService(nil, queue, nil, RefreshJobConfig{}, nil)
	if _, err := svc.Bootstrap(context.Background()); err == nil {
		t.Fatalf("expected enqueue error")
	}
}

func TestRefreshJobService_RequiresCoordinator(t *testing.T) {
	t.Parallel()

	svc := NewRefreshJobService(nil, nil, nil, RefreshJobConfig{}, nil)
	if _, err := svc.RunRefreshAll(context.Background(), RefreshJobInput{}); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestRefreshScheduler_RunsOnTick(t *testing.T) {
	t.Parallel()

	feed := newStubFeed()
	feed.sports = []sport.Sport{{ID: 7, Name: "NBA", Active: true}}
	feed.batches[7] = nbaBatch()
	coordinator, _ := newTestCoordinator(feed, newMemoryStores(), newFakeTracker())

	ticks := make(chan time.Time)
	scheduler := NewRefreshScheduler(coordinator, time.Minute, nil)
	scheduler.ticks = func(time.Duration) (<-chan time.Time, func()) { return ticks, func() {} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	if got := feed.calls(7); got < 1 {
		t.Fatalf("expected a scheduled refresh, fetches=%d", got)
	}
}
