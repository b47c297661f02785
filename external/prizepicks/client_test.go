package prizepicks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/platform/identity"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/ratelimit"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/resilience"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

func newTestClient(t *testing.T, server *httptest.Server, breaker resilience.CircuitBreakerConfig) (*Client, *sleepRecorder, *identity.Manager) {
	t.Helper()

	ident := identity.NewManager(0, nil)
	client := NewClient(ClientConfig{
		Doer:           server.Client(),
		BaseURL:        server.URL,
		CircuitBreaker: breaker,
		Limiter:        ratelimit.NewTokenBucket(1000, 1000),
		Throttle:       ratelimit.NewThrottleQueue(time.Minute, 1000),
		Identity:       ident,
	})

	recorder := &sleepRecorder{}
	client.sleep = recorder.sleep
	client.jitter = func(min, _ time.Duration) time.Duration { return min }
	client.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return client, recorder, ident
}

func TestClient_BlockedRotatesIdentityAndRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	devices := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		devices <- r.Header.Get("X-Device-ID")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, recorder, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	if _, err := client.FetchSports(context.Background()); err != nil {
		t.Fatalf("FetchSports error: %v", err)
	}

	first, second := <-devices, <-devices
	if first == "" || first == second {
		t.Fatalf("expected a new device id after 403, got %q then %q", first, second)
	}
	if waits := recorder.all(); len(waits) != 1 || waits[0] != 0 {
		t.Fatalf("403 retry should not back off, waits=%v", waits)
	}
}

func TestClient_BlockedExhaustion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _, ident := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	before := ident.Rotations()

	_, err := client.FetchSports(context.Background())
	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !errors.Is(err, usecase.ErrBlocked) || upstream.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("unexpected attempts: got=%d want=4", got)
	}
	if upstream.Attempts != 4 {
		t.Fatalf("unexpected attempts on error: %d", upstream.Attempts)
	}
	if got := ident.Rotations() - before; got != 4 {
		t.Fatalf("expected a rotation per 403, got %d", got)
	}
}

func TestClient_RateLimitedHonoursRetryAfter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer server.Close()

	client, recorder, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	if _, err := client.FetchSports(context.Background()); err != nil {
		t.Fatalf("FetchSports error: %v", err)
	}

	waits := recorder.all()
	want := []time.Duration{2*time.Second + 100*time.Millisecond, 5*time.Second + 100*time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("unexpected waits: %v", waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("wait %d: got=%s want=%s", i, waits[i], want[i])
		}
	}
}

func TestClient_ServerErrorsBackOffThenFail(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, recorder, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	_, err := client.FetchSports(context.Background())
	if !errors.Is(err, usecase.ErrTransientNetwork) || !errors.Is(err, usecase.ErrUpstream) {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 6 {
		t.Fatalf("unexpected attempts: got=%d want=6", got)
	}

	waits := recorder.all()
	if len(waits) != 5 {
		t.Fatalf("unexpected wait count: %v", waits)
	}
	for i := 1; i < len(waits); i++ {
		if waits[i] <= waits[i-1] {
			t.Fatalf("backoff must grow: %v", waits)
		}
	}
	if waits[0] != 1500*time.Millisecond {
		t.Fatalf("unexpected first backoff: %s", waits[0])
	}
}

func TestClient_NonRetryableStatusFailsImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"not found"}]}`))
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	_, err := client.FetchSports(context.Background())

	var upstream *usecase.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusNotFound || upstream.Kind != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("non-retryable status must not retry, attempts=%d", got)
	}
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	client.sleep = sleepContext

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FetchSports(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation was not honoured promptly: %s", elapsed)
	}
}

func TestClient_CircuitBreakerOpensAfterExhaustion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	if _, err := client.FetchSports(context.Background()); !errors.Is(err, usecase.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	attempts := calls.Load()

	_, err := client.FetchSports(context.Background())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) || errors.Is(err, usecase.ErrUpstream) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
	if calls.Load() != attempts {
		t.Fatalf("open circuit must not reach the upstream")
	}
}

func TestClient_FetchProjectionsQueryAndNormalization(t *testing.T) {
	t.Parallel()

	fixture, err := os.ReadFile("testdata/projections_nba.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	queries := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projections" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		queries <- r.URL.RawQuery
		_, _ = w.Write(fixture)
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server, resilience.CircuitBreakerConfig{})
	batch, err := client.FetchProjections(context.Background(), usecase.ProjectionQuery{SportID: 7})
	if err != nil {
		t.Fatalf("FetchProjections error: %v", err)
	}

	query := <-queries
	for _, part := range []string{"single_stat=true", "game_mode=pickem", "league_id=7", "per_page=250"} {
		if !strings.Contains(query, part) {
			t.Fatalf("query %q missing %q", query, part)
		}
	}
	if len(batch.Projections) != 3 || len(batch.Players) != 2 || len(batch.Games) != 1 {
		t.Fatalf("unexpected batch sizes: projections=%d players=%d games=%d", len(batch.Projections), len(batch.Players), len(batch.Games))
	}
	if len(batch.Games[0].PlayerIDs) != 2 {
		t.Fatalf("unexpected game participants: %v", batch.Games[0].PlayerIDs)
	}
}

func TestClient_PageSize(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{})
	if got := client.PageSize(7); got != 250 {
		t.Fatalf("unexpected page size for high volume sport: %d", got)
	}
	if got := client.PageSize(2); got != 50 {
		t.Fatalf("unexpected default page size: %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if got, ok := parseRetryAfter("1.5", now); !ok || got != 1500*time.Millisecond {
		t.Fatalf("unexpected fractional seconds: %s ok=%v", got, ok)
	}
	if got, ok := parseRetryAfter(now.Add(3*time.Second).Format(http.TimeFormat), now); !ok || got != 3*time.Second {
		t.Fatalf("unexpected http-date wait: %s ok=%v", got, ok)
	}
	if got, ok := parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now); !ok || got != 0 {
		t.Fatalf("past http-date should clamp to zero: %s ok=%v", got, ok)
	}
	for _, raw := range []string{"", "soon", "-4", "NaN"} {
		if _, ok := parseRetryAfter(raw, now); ok {
			t.Fatalf("parseRetryAfter(%q) should fail", raw)
		}
	}
}

func TestSanitizeHeaders(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Set-Cookie", "session=secret")
	header.Set("X-Device-ID", "abc")
	header.Set("Content-Type", "application/json")

	got := sanitizeHeaders(header)
	if strings.Contains(got, "secret") || strings.Contains(got, "abc") {
		t.Fatalf("sensitive header leaked: %s", got)
	}
	if !strings.Contains(got, "Content-Type=application/json") {
		t.Fatalf("expected non-sensitive header, got %s", got)
	}
}

func TestNewDoer(t *testing.T) {
	t.Parallel()

	if _, err := NewDoer("nethttp", time.Second); err != nil {
		t.Fatalf("nethttp doer: %v", err)
	}
	if _, ok := mustDoer(t, "fasthttp").(*FastHTTPDoer); !ok {
		t.Fatalf("expected fasthttp doer")
	}
	if _, err := NewDoer("carrier-pigeon", time.Second); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestFastHTTPDoer_Do(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Device-ID") != "device-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/leagues", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Device-ID", "device-1")

	resp, err := mustDoer(t, "fasthttp").Do(req)
	if err != nil {
		t.Fatalf("Do error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "3" {
		t.Fatalf("unexpected response: status=%d headers=%v", resp.StatusCode, resp.Header)
	}
}

func mustDoer(t *testing.T, kind string) Doer {
	t.Helper()
	doer, err := NewDoer(kind, 2*time.Second)
	if err != nil {
		t.Fatalf("NewDoer(%s): %v", kind, err)
	}
	return doer
}
