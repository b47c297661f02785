package jobqueue

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/resilience"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPublishTimeout = 10 * time.Second
	maxLoggedBodyBytes    = 4096
)

var errQStashTransient = crerr.New("qstash transient failure")

var _ usecase.JobQueue = (*QStashPublisher)(nil)

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
}

// QStashPublisher schedules delayed POST callbacks to this service through Upstash QStash.
type QStashPublisher struct {
	client           *http.Client
	baseURL          string
	token            string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *logging.Logger
	breaker          *resilience.CircuitBreaker
}

type publishTarget struct {
	path       string
	targetURL  string
	publishURL string
}

func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) *QStashPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	breaker := resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("qstash circuit breaker state changed", "from", from, "to", to)
	})

	return &QStashPublisher{
		client:           client,
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:            strings.TrimSpace(cfg.Token),
		targetBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.TargetBaseURL), "/"),
		retries:          max(cfg.Retries, 0),
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger,
		breaker:          breaker,
	}
}

// Enqueue publishes payload for delivery to path after delay. A non-empty deduplicationID
// collapses repeated publishes of the same run.
func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	if err := p.breaker.Allow(); err != nil {
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "state", p.breaker.State())
		return crerr.Wrap(err, "qstash is temporarily unavailable")
	}

	target, err := p.resolveTarget(path)
	if err != nil {
		return err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal job payload")
	}

	deduplicationID = strings.TrimSpace(deduplicationID)
	headers := p.publishHeaders(delay, deduplicationID)
	p.annotate(ctx, target, headers, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.publishURL, bytes.NewReader(body))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	for _, h := range headers {
		req.Header.Set(h.name, h.value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: publish qstash job target_url=%s: %v", errQStashTransient, target.targetURL, err)
		p.recordCircuitResult(callErr)
		return callErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if callErr := classifyPublishResponse(resp, target); callErr != nil {
		p.recordCircuitResult(callErr)
		return callErr
	}

	p.logger.InfoContext(ctx, "qstash job published",
		"path", target.path,
		"delay", formatDelay(delay),
		"deduplication_id", deduplicationID,
	)
	p.recordCircuitResult(nil)
	return nil
}

func (p *QStashPublisher) resolveTarget(path string) (publishTarget, error) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return publishTarget{}, crerr.New("job path is required")
	}

	baseURL, err := validateHTTPBaseURL(p.baseURL)
	if err != nil {
		return publishTarget{}, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := validateHTTPBaseURL(p.targetBaseURL)
	if err != nil {
		return publishTarget{}, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	targetURL := targetBaseURL + path
	return publishTarget{
		path:       path,
		targetURL:  targetURL,
		publishURL: baseURL + "/v2/publish/" + targetURL,
	}, nil
}

// publishHeader is one request header. masked replaces value in log previews.
type publishHeader struct {
	name   string
	value  string
	masked string
}

func (p *QStashPublisher) publishHeaders(delay time.Duration, deduplicationID string) []publishHeader {
	headers := []publishHeader{
		{name: "Authorization", value: "Bearer " + p.token, masked: "Bearer ***"},
		{name: "Content-Type", value: "application/json"},
		{name: "Upstash-Method", value: http.MethodPost},
	}
	if p.retries > 0 {
		headers = append(headers, publishHeader{name: "Upstash-Retries", value: strconv.Itoa(p.retries)})
	}
	if delay > 0 {
		headers = append(headers, publishHeader{name: "Upstash-Delay", value: formatDelay(delay)})
	}
	if deduplicationID != "" {
		headers = append(headers, publishHeader{name: "Upstash-Deduplication-Id", value: deduplicationID})
	}
	if p.internalJobToken != "" {
		headers = append(headers, publishHeader{name: "Upstash-Forward-X-Internal-Job-Token", value: p.internalJobToken, masked: "***"})
	}
	return headers
}

func (p *QStashPublisher) annotate(ctx context.Context, target publishTarget, headers []publishHeader, body []byte) {
	bodyText := truncateForLog(string(body), maxLoggedBodyBytes)
	preview := curlPreview(target.publishURL, headers, bodyText)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", target.targetURL),
			attribute.String("qstash.path", target.path),
			attribute.String("qstash.request_body", bodyText),
			attribute.String("qstash.request_curl_preview", preview),
		)
	}
	p.logger.DebugContext(ctx, "qstash publish request", "path", target.path, "target_url", target.targetURL, "curl_preview", preview)
}

func classifyPublishResponse(resp *http.Response, target publishTarget) error {
	if resp.StatusCode/100 == 2 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	detail := fmt.Sprintf("publish qstash job status=%d target_url=%s body=%s", resp.StatusCode, target.targetURL, strings.TrimSpace(string(raw)))
	if isQStashRetryableStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s", errQStashTransient, detail)
	}
	return crerr.New(detail)
}

// formatDelay renders delay in whole seconds, the unit Upstash-Delay accepts.
func formatDelay(delay time.Duration) string {
	seconds := int(delay.Round(time.Second).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.Itoa(seconds) + "s"
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

// curlPreview renders an equivalent curl command with secrets masked.
func curlPreview(publishURL string, headers []publishHeader, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X POST ")
	_, _ = buf.WriteString(shellQuote(publishURL))
	for _, h := range headers {
		value := h.value
		if h.masked != "" {
			value = h.masked
		}
		_, _ = buf.WriteString(" -H ")
		_, _ = buf.WriteString(shellQuote(h.name + ": " + value))
	}
	_, _ = buf.WriteString(" -d ")
	_, _ = buf.WriteString(shellQuote(body))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func truncateForLog(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit] + "...(truncated)"
}

func (p *QStashPublisher) recordCircuitResult(err error) {
	p.breaker.Record(err != nil && stderrors.Is(err, errQStashTransient))
}

func isQStashRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
