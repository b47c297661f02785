package prizepicks

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/identity"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/ratelimit"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/resilience"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultBaseURL            = "https://api.prizepicks.com"
	defaultTimeout            = 20 * time.Second
	defaultPageSize           = 50
	defaultHighVolumeSportID  = 7
	defaultHighVolumePageSize = 250
	maxResponseBytes          = 8 << 20
	// sharedFetchTimeout bounds one deduplicated fetch including its retries and waits.
	sharedFetchTimeout = 10 * time.Minute
)

var errPrizePicksTransport = crerr.New("prizepicks transport failure")

var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-device-id":   {},
}

// RetryPolicy bounds the attempts spent on each failure outcome.
type RetryPolicy struct {
	MaxRetries            int
	MaxBlockedRetries     int
	MaxRateLimitedRetries int
	Backoff               resilience.Backoff
	DefaultRetryAfter     time.Duration
	MaxRetryAfter         time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:            5,
		MaxBlockedRetries:     3,
		MaxRateLimitedRetries: 5,
		Backoff:               resilience.DefaultBackoff(),
		DefaultRetryAfter:     5 * time.Second,
		MaxRetryAfter:         2 * time.Minute,
	}
}

func normalizeRetryPolicy(policy RetryPolicy) RetryPolicy {
	defaults := DefaultRetryPolicy()
	if policy.MaxRetries < 0 {
		policy.MaxRetries = defaults.MaxRetries
	}
	if policy.MaxBlockedRetries < 0 {
		policy.MaxBlockedRetries = defaults.MaxBlockedRetries
	}
	if policy.MaxRateLimitedRetries < 0 {
		policy.MaxRateLimitedRetries = defaults.MaxRateLimitedRetries
	}
	if policy.Backoff.Factor <= 1 {
		policy.Backoff.Factor = defaults.Backoff.Factor
	}
	if policy.Backoff.Max <= 0 {
		policy.Backoff.Max = defaults.Backoff.Max
	}
	if policy.DefaultRetryAfter <= 0 {
		policy.DefaultRetryAfter = defaults.DefaultRetryAfter
	}
	if policy.MaxRetryAfter <= 0 {
		policy.MaxRetryAfter = defaults.MaxRetryAfter
	}
	return policy
}

type ClientConfig struct {
	Doer               Doer
	BaseURL            string
	Timeout            time.Duration
	Logger             *logging.Logger
	CircuitBreaker     resilience.CircuitBreakerConfig
	Retry              RetryPolicy
	Limiter            *ratelimit.TokenBucket
	Throttle           *ratelimit.ThrottleQueue
	Identity           *identity.Manager
	Normalizer         *Normalizer
	PageSize           int
	HighVolumeSportID  int64
	HighVolumePageSize int
}

// Client fetches sports and projections from the PrizePicks API.
type Client struct {
	doer               Doer
	baseURL            string
	logger             *logging.Logger
	breaker            *resilience.CircuitBreaker
	flight             *resilience.Flight
	retry              RetryPolicy
	limiter            *ratelimit.TokenBucket
	throttle           *ratelimit.ThrottleQueue
	identity           *identity.Manager
	normalizer         *Normalizer
	pageSize           int
	highVolumeSportID  int64
	highVolumePageSize int

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	doer := cfg.Doer
	if doer == nil {
		doer = NewNetHTTPClient(timeout)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewTokenBucket(ratelimit.DefaultRate, ratelimit.DefaultBurst)
	}
	throttle := cfg.Throttle
	if throttle == nil {
		throttle = ratelimit.NewThrottleQueue(ratelimit.DefaultThrottleWindow, ratelimit.DefaultThrottleCeiling)
	}
	ident := cfg.Identity
	if ident == nil {
		ident = identity.NewManager(identity.DefaultRotateProbability, nil)
	}
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(NormalizerConfig{Logger: logger})
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	highVolumeSportID := cfg.HighVolumeSportID
	if highVolumeSportID <= 0 {
		highVolumeSportID = defaultHighVolumeSportID
	}
	highVolumePageSize := cfg.HighVolumePageSize
	if highVolumePageSize <= 0 {
		highVolumePageSize = defaultHighVolumePageSize
	}

	breaker := resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("prizepicks circuit breaker state changed", "from", from, "to", to)
	})

	return &Client{
		doer:               doer,
		baseURL:            baseURL,
		logger:             logger,
		breaker:            breaker,
		flight:             resilience.NewFlight(sharedFetchTimeout),
		retry:              normalizeRetryPolicy(cfg.Retry),
		limiter:            limiter,
		throttle:           throttle,
		identity:           ident,
		normalizer:         normalizer,
		pageSize:           pageSize,
		highVolumeSportID:  highVolumeSportID,
		highVolumePageSize: highVolumePageSize,
		now:                time.Now,
		sleep:              sleepContext,
		jitter:             resilience.Jitter,
	}
}

func (c *Client) FetchSports(ctx context.Context) ([]sport.Sport, error) {
	var doc Document
	if err := c.doJSON(ctx, "/leagues", nil, &doc); err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	return c.normalizer.Sports(ctx, doc), nil
}

func (c *Client) FetchProjections(ctx context.Context, query usecase.ProjectionQuery) (usecase.FeedBatch, error) {
	params := map[string]string{
		"single_stat": "true",
		"game_mode":   "pickem",
		"per_page":    strconv.Itoa(c.PageSize(query.SportID)),
	}
	if query.SportID > 0 {
		params["league_id"] = strconv.FormatInt(query.SportID, 10)
	}

	var doc Document
	if err := c.doJSON(ctx, "/projections", params, &doc); err != nil {
		return usecase.FeedBatch{}, fmt.Errorf("fetch projections sport_id=%d: %w", query.SportID, err)
	}

	batch := c.normalizer.Projections(ctx, doc, query)
	c.logger.InfoContext(ctx, "normalized projections document",
		"sport_id", query.SportID,
		"records", len(doc.Data),
		"included", len(doc.Included),
		"projections", len(batch.Projections),
		"players", len(batch.Players),
		"games", len(batch.Games),
		"skipped", batch.Skipped,
	)
	return batch, nil
}

// PageSize is the per_page value requested for a sport.
func (c *Client) PageSize(sportID int64) int {
	if sportID == c.highVolumeSportID {
		return c.highVolumePageSize
	}
	return c.pageSize
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "prizepicks circuit breaker rejected request", "state", c.breaker.State())
		return fmt.Errorf("%w: projections provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, shared, err := resilience.Share(ctx, c.flight, fullURL, func(ctx context.Context) ([]byte, error) {
		raw, reqErr := c.fetch(ctx, fullURL)
		c.breaker.Record(isCircuitFailure(reqErr))
		return raw, reqErr
	})
	if err != nil {
		return err
	}
	if shared {
		c.logger.DebugContext(ctx, "prizepicks request shared with in-flight call", "url", fullURL)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

// fetch performs the request with bounded retries per outcome: blocked (403), rate limited
// (429) and transient (5xx or transport error) each have their own budget.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	var blocked, limited, transient int

	for attempt := 1; ; attempt++ {
		if delay, err := c.throttle.Admit(ctx); err != nil {
			return nil, err
		} else if delay > 0 {
			c.logger.WarnContext(ctx, "request window saturated, throttling", "delay", delay.String())
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if c.identity.MaybeRotate() {
			c.logger.DebugContext(ctx, "rotated client identity")
		}

		status, header, body, err := c.send(ctx, fullURL)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var wait time.Duration
		switch {
		case err != nil:
			transient++
			if transient > c.retry.MaxRetries {
				return nil, c.exhausted(ctx, fullURL, usecase.ErrTransientNetwork, 0, attempt, err)
			}
			wait = c.retry.Backoff.Delay(transient) + c.jitter(0, time.Second)
		case status >= 200 && status < 300:
			c.logger.InfoContext(ctx, "prizepicks request succeeded", "url", fullURL, "status", status, "attempt", attempt)
			return body, nil
		case status == http.StatusForbidden:
			blocked++
			c.identity.Rotate()
			if blocked > c.retry.MaxBlockedRetries {
				return nil, c.exhausted(ctx, fullURL, usecase.ErrBlocked, status, attempt, nil)
			}
		case status == http.StatusTooManyRequests:
			limited++
			if limited > c.retry.MaxRateLimitedRetries {
				return nil, c.exhausted(ctx, fullURL, usecase.ErrRateLimited, status, attempt, nil)
			}
			wait = c.retryAfter(header.Get("Retry-After")) + c.jitter(100*time.Millisecond, time.Second)
		case status >= http.StatusInternalServerError:
			transient++
			if transient > c.retry.MaxRetries {
				return nil, c.exhausted(ctx, fullURL, usecase.ErrTransientNetwork, status, attempt, nil)
			}
			wait = c.retry.Backoff.Delay(transient) + c.jitter(0, time.Second)
		default:
			return nil, &usecase.UpstreamError{
				StatusCode: status,
				Attempts:   attempt,
				Err:        fmt.Errorf("unexpected status body=%s", abbreviateBody(body)),
			}
		}

		c.logger.WarnContext(ctx, "prizepicks request retrying",
			"url", fullURL,
			"status", status,
			"attempt", attempt,
			"wait", wait.String(),
			"headers", sanitizeHeaders(header),
			"error", err,
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) send(ctx context.Context, fullURL string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build request: %w", err)
	}
	c.identity.Apply(req)

	resp, err := c.doer.Do(req)
	if err != nil {
		return 0, nil, nil, crerr.Wrap(errPrizePicksTransport, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, resp.Header, nil, crerr.Wrapf(errPrizePicksTransport, "read response body: %v", err)
	}
	return resp.StatusCode, resp.Header, raw, nil
}

func (c *Client) exhausted(ctx context.Context, fullURL string, kind error, status, attempts int, cause error) error {
	c.logger.ErrorContext(ctx, "prizepicks retries exhausted",
		"url", fullURL,
		"status", status,
		"attempts", attempts,
		"kind", kind.Error(),
		"error", cause,
	)
	return &usecase.UpstreamError{
		Kind:       kind,
		StatusCode: status,
		Attempts:   attempts,
		Err:        cause,
	}
}

func (c *Client) retryAfter(raw string) time.Duration {
	wait, ok := parseRetryAfter(raw, c.now())
	if !ok {
		wait = c.retry.DefaultRetryAfter
	}
	if wait > c.retry.MaxRetryAfter {
		wait = c.retry.MaxRetryAfter
	}
	return wait
}

// parseRetryAfter accepts delta-seconds (fractions allowed) or an HTTP-date.
func parseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, usecase.ErrTransientNetwork) ||
		stderrors.Is(err, usecase.ErrRateLimited) ||
		stderrors.Is(err, usecase.ErrBlocked)
}

func sanitizeHeaders(header http.Header) string {
	if len(header) == 0 {
		return ""
	}

	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for i, key := range keys {
		if i > 0 {
			_, _ = buf.WriteString("; ")
		}
		_, _ = buf.WriteString(key)
		_, _ = buf.WriteString("=")
		if _, sensitive := sensitiveHeaders[strings.ToLower(key)]; sensitive {
			_, _ = buf.WriteString("REDACTED")
			continue
		}
		_, _ = buf.WriteString(strings.Join(header[key], ","))
	}
	return buf.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
