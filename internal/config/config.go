package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"

	RefreshTrackerMemory = "memory"
	RefreshTrackerRedis  = "redis"

	TransportNetHTTP  = "nethttp"
	TransportFastHTTP = "fasthttp"

	SchedulerModeInternal = "internal"
	SchedulerModeQStash   = "qstash"
	SchedulerModeOff      = "off"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	StoreBackend                string
	DBURL                       string
	DBDisablePreparedBinary     bool
	RefreshTracker              string
	RedisURL                    string
	CacheEnabled                bool
	CacheTTL                    time.Duration
	CORSAllowedOrigins          []string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	APIRateLimitRPS             float64
	APIRateLimitBurst           int
	PprofEnabled                bool
	PprofAddr                   string
	SwaggerEnabled              bool
	UpstreamBaseURL             string
	UpstreamTransport           string
	UpstreamTimeout             time.Duration
	UpstreamRatePerSecond       float64
	UpstreamRateBurst           int
	UpstreamThrottleCeiling     int
	UpstreamRotateProbability   float64
	UpstreamMaxRetries          int
	UpstreamMaxBlockedRetries   int
	UpstreamMaxRateLimited      int
	UpstreamBackoffFactor       float64
	UpstreamMaxBackoff          time.Duration
	UpstreamPageSize            int
	UpstreamHighVolumeSportID   int64
	UpstreamHighVolumePageSize  int
	UpstreamCircuitEnabled      bool
	UpstreamCircuitFailureCount int
	UpstreamCircuitOpenTimeout  time.Duration
	UpstreamCircuitHalfOpenMax  int
	FeedStalenessTTL            time.Duration
	NormalizerMaxRecords        int
	RefreshDelayMin             time.Duration
	RefreshDelayMax             time.Duration
	RefreshWorkers              int
	RefreshSchedulerMode        string
	RefreshScheduleInterval     time.Duration
	UptraceEnabled              bool
	UptraceDSN                  string
	UptraceLogsEnabled          bool
	UptraceCaptureRequestBody   bool
	UptraceRequestBodyMaxBytes  int
	BetterStackEnabled          bool
	BetterStackEndpoint         string
	BetterStackToken            string
	BetterStackTimeout          time.Duration
	BetterStackMinLevel         logging.Level
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
	InternalJobToken            string
	QStashBaseURL               string
	QStashToken                 string
	QStashTargetBaseURL         string
	QStashRetries               int
	QStashCircuitEnabled        bool
	QStashCircuitFailureCount   int
	QStashCircuitOpenTimeout    time.Duration
	QStashCircuitHalfOpenMaxReq int
	LogLevel                    logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	storeBackend, err := parseChoice("STORE_BACKEND", getEnv("STORE_BACKEND", StoreBackendMemory), StoreBackendMemory, StoreBackendPostgres)
	if err != nil {
		return Config{}, err
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if storeBackend == StoreBackendPostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when STORE_BACKEND=postgres")
	}

	refreshTracker, err := parseChoice("REFRESH_TRACKER", getEnv("REFRESH_TRACKER", RefreshTrackerMemory), RefreshTrackerMemory, RefreshTrackerRedis)
	if err != nil {
		return Config{}, err
	}
	redisURL := strings.TrimSpace(getEnv("REDIS_URL", ""))
	if refreshTracker == RefreshTrackerRedis && redisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required when REFRESH_TRACKER=redis")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}
	betterStackMinLevel := logging.ParseLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error"))

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	upstreamTransport, err := parseChoice("UPSTREAM_TRANSPORT", getEnv("UPSTREAM_TRANSPORT", TransportNetHTTP), TransportNetHTTP, TransportFastHTTP)
	if err != nil {
		return Config{}, err
	}
	upstreamTimeout, err := time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_TIMEOUT: %w", err)
	}
	if upstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	upstreamRate, err := getEnvAsFloat("UPSTREAM_RATE_PER_SECOND", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_RATE_PER_SECOND: %w", err)
	}
	if upstreamRate <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_RATE_PER_SECOND must be > 0")
	}
	upstreamBurst, err := getEnvAsInt("UPSTREAM_RATE_BURST", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_RATE_BURST: %w", err)
	}
	if upstreamBurst < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_RATE_BURST must be >= 1")
	}
	upstreamThrottleCeiling, err := getEnvAsInt("UPSTREAM_THROTTLE_CEILING", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_THROTTLE_CEILING: %w", err)
	}
	if upstreamThrottleCeiling < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_THROTTLE_CEILING must be >= 1")
	}
	upstreamRotateProbability, err := getEnvAsFloat("UPSTREAM_ROTATE_PROBABILITY", 0.2)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_ROTATE_PROBABILITY: %w", err)
	}
	if upstreamRotateProbability < 0 || upstreamRotateProbability > 1 {
		return Config{}, fmt.Errorf("UPSTREAM_ROTATE_PROBABILITY must be between 0 and 1")
	}
	upstreamMaxRetries, err := getEnvAsInt("UPSTREAM_MAX_RETRIES", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_MAX_RETRIES: %w", err)
	}
	if upstreamMaxRetries < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_RETRIES must be >= 0")
	}
	upstreamMaxBlockedRetries, err := getEnvAsInt("UPSTREAM_MAX_BLOCKED_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_MAX_BLOCKED_RETRIES: %w", err)
	}
	if upstreamMaxBlockedRetries < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_BLOCKED_RETRIES must be >= 0")
	}
	upstreamMaxRateLimited, err := getEnvAsInt("UPSTREAM_MAX_RATE_LIMITED_RETRIES", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_MAX_RATE_LIMITED_RETRIES: %w", err)
	}
	if upstreamMaxRateLimited < 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_RATE_LIMITED_RETRIES must be >= 0")
	}
	upstreamBackoffFactor, err := getEnvAsFloat("UPSTREAM_BACKOFF_FACTOR", 1.5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_BACKOFF_FACTOR: %w", err)
	}
	if upstreamBackoffFactor <= 1 {
		return Config{}, fmt.Errorf("UPSTREAM_BACKOFF_FACTOR must be > 1")
	}
	upstreamMaxBackoff, err := time.ParseDuration(getEnv("UPSTREAM_MAX_BACKOFF", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_MAX_BACKOFF: %w", err)
	}
	if upstreamMaxBackoff <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_MAX_BACKOFF must be > 0")
	}
	upstreamPageSize, err := getEnvAsInt("UPSTREAM_PAGE_SIZE", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_PAGE_SIZE: %w", err)
	}
	if upstreamPageSize < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_PAGE_SIZE must be >= 1")
	}
	upstreamHighVolumeSportID, err := getEnvAsInt("UPSTREAM_HIGH_VOLUME_SPORT_ID", 7)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_HIGH_VOLUME_SPORT_ID: %w", err)
	}
	upstreamHighVolumePageSize, err := getEnvAsInt("UPSTREAM_HIGH_VOLUME_PAGE_SIZE", 250)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_HIGH_VOLUME_PAGE_SIZE: %w", err)
	}
	if upstreamHighVolumePageSize < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_HIGH_VOLUME_PAGE_SIZE must be >= 1")
	}
	upstreamCircuitEnabled, err := strconv.ParseBool(getEnv("UPSTREAM_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_ENABLED: %w", err)
	}
	upstreamCircuitFailureCount, err := getEnvAsInt("UPSTREAM_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if upstreamCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	upstreamCircuitOpenTimeout, err := time.ParseDuration(getEnv("UPSTREAM_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if upstreamCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	upstreamCircuitHalfOpenMax, err := getEnvAsInt("UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if upstreamCircuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("UPSTREAM_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	feedStalenessTTL, err := time.ParseDuration(getEnv("FEED_STALENESS_TTL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_STALENESS_TTL: %w", err)
	}
	if feedStalenessTTL <= 0 {
		return Config{}, fmt.Errorf("FEED_STALENESS_TTL must be > 0")
	}
	normalizerMaxRecords, err := getEnvAsInt("NORMALIZER_MAX_RECORDS", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse NORMALIZER_MAX_RECORDS: %w", err)
	}
	if normalizerMaxRecords < 0 {
		return Config{}, fmt.Errorf("NORMALIZER_MAX_RECORDS must be >= 0")
	}
	refreshDelayMin, err := time.ParseDuration(getEnv("REFRESH_DELAY_MIN", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_DELAY_MIN: %w", err)
	}
	refreshDelayMax, err := time.ParseDuration(getEnv("REFRESH_DELAY_MAX", "7s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_DELAY_MAX: %w", err)
	}
	if refreshDelayMin < 0 || refreshDelayMax < refreshDelayMin {
		return Config{}, fmt.Errorf("REFRESH_DELAY_MAX must be >= REFRESH_DELAY_MIN >= 0")
	}
	refreshWorkers, err := getEnvAsInt("REFRESH_WORKERS", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_WORKERS: %w", err)
	}
	if refreshWorkers < 1 {
		return Config{}, fmt.Errorf("REFRESH_WORKERS must be >= 1")
	}
	schedulerMode, err := parseChoice("REFRESH_SCHEDULER_MODE", getEnv("REFRESH_SCHEDULER_MODE", SchedulerModeInternal), SchedulerModeInternal, SchedulerModeQStash, SchedulerModeOff)
	if err != nil {
		return Config{}, err
	}
	refreshScheduleInterval, err := time.ParseDuration(getEnv("REFRESH_SCHEDULE_INTERVAL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_SCHEDULE_INTERVAL: %w", err)
	}
	if refreshScheduleInterval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_SCHEDULE_INTERVAL must be > 0")
	}

	apiRateLimitRPS, err := getEnvAsFloat("API_RATE_LIMIT_RPS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RATE_LIMIT_RPS: %w", err)
	}
	if apiRateLimitRPS < 0 {
		return Config{}, fmt.Errorf("API_RATE_LIMIT_RPS must be >= 0")
	}
	apiRateLimitBurst, err := getEnvAsInt("API_RATE_LIMIT_BURST", 20)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RATE_LIMIT_BURST: %w", err)
	}
	if apiRateLimitBurst < 1 {
		return Config{}, fmt.Errorf("API_RATE_LIMIT_BURST must be >= 1")
	}

	qstashRetries, err := getEnvAsInt("QSTASH_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_RETRIES: %w", err)
	}
	if qstashRetries < 0 {
		return Config{}, fmt.Errorf("QSTASH_RETRIES must be >= 0")
	}
	qstashCircuitEnabled, err := strconv.ParseBool(getEnv("QSTASH_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_CIRCUIT_ENABLED: %w", err)
	}
	qstashCircuitFailureCount, err := getEnvAsInt("QSTASH_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if qstashCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("QSTASH_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	qstashCircuitOpenTimeout, err := time.ParseDuration(getEnv("QSTASH_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if qstashCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("QSTASH_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	qstashCircuitHalfOpenMaxReq, err := getEnvAsInt("QSTASH_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse QSTASH_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if qstashCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("QSTASH_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	qstashBaseURL := strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io"))
	qstashToken := strings.TrimSpace(getEnv("QSTASH_TOKEN", ""))
	qstashTargetBaseURL := strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", ""))
	internalJobToken := strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))
	if schedulerMode == SchedulerModeQStash {
		if qstashToken == "" {
			return Config{}, fmt.Errorf("QSTASH_TOKEN is required when REFRESH_SCHEDULER_MODE=qstash")
		}
		if qstashTargetBaseURL == "" {
			return Config{}, fmt.Errorf("QSTASH_TARGET_BASE_URL is required when REFRESH_SCHEDULER_MODE=qstash")
		}
		if internalJobToken == "" {
			return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required when REFRESH_SCHEDULER_MODE=qstash")
		}
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 getEnv("APP_SERVICE_NAME", "prizepicks-feed-api"),
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		StoreBackend:                storeBackend,
		DBURL:                       dbURL,
		DBDisablePreparedBinary:     true,
		RefreshTracker:              refreshTracker,
		RedisURL:                    redisURL,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		APIRateLimitRPS:             apiRateLimitRPS,
		APIRateLimitBurst:           apiRateLimitBurst,
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		SwaggerEnabled:              swaggerEnabled,
		UpstreamBaseURL:             strings.TrimRight(strings.TrimSpace(getEnv("UPSTREAM_BASE_URL", "https://api.prizepicks.com")), "/"),
		UpstreamTransport:           upstreamTransport,
		UpstreamTimeout:             upstreamTimeout,
		UpstreamRatePerSecond:       upstreamRate,
		UpstreamRateBurst:           upstreamBurst,
		UpstreamThrottleCeiling:     upstreamThrottleCeiling,
		UpstreamRotateProbability:   upstreamRotateProbability,
		UpstreamMaxRetries:          upstreamMaxRetries,
		UpstreamMaxBlockedRetries:   upstreamMaxBlockedRetries,
		UpstreamMaxRateLimited:      upstreamMaxRateLimited,
		UpstreamBackoffFactor:       upstreamBackoffFactor,
		UpstreamMaxBackoff:          upstreamMaxBackoff,
		UpstreamPageSize:            upstreamPageSize,
		UpstreamHighVolumeSportID:   int64(upstreamHighVolumeSportID),
		UpstreamHighVolumePageSize:  upstreamHighVolumePageSize,
		UpstreamCircuitEnabled:      upstreamCircuitEnabled,
		UpstreamCircuitFailureCount: upstreamCircuitFailureCount,
		UpstreamCircuitOpenTimeout:  upstreamCircuitOpenTimeout,
		UpstreamCircuitHalfOpenMax:  upstreamCircuitHalfOpenMax,
		FeedStalenessTTL:            feedStalenessTTL,
		NormalizerMaxRecords:        normalizerMaxRecords,
		RefreshDelayMin:             refreshDelayMin,
		RefreshDelayMax:             refreshDelayMax,
		RefreshWorkers:              refreshWorkers,
		RefreshSchedulerMode:        schedulerMode,
		RefreshScheduleInterval:     refreshScheduleInterval,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		UptraceLogsEnabled:          uptraceLogsEnabled,
		UptraceCaptureRequestBody:   uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes:  uptraceRequestBodyMaxBytes,
		BetterStackEnabled:          betterStackEnabled,
		BetterStackEndpoint:         betterStackEndpoint,
		BetterStackToken:            strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:          betterStackTimeout,
		BetterStackMinLevel:         betterStackMinLevel,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
		InternalJobToken:            internalJobToken,
		QStashBaseURL:               qstashBaseURL,
		QStashToken:                 qstashToken,
		QStashTargetBaseURL:         qstashTargetBaseURL,
		QStashRetries:               qstashRetries,
		QStashCircuitEnabled:        qstashCircuitEnabled,
		QStashCircuitFailureCount:   qstashCircuitFailureCount,
		QStashCircuitOpenTimeout:    qstashCircuitOpenTimeout,
		QStashCircuitHalfOpenMaxReq: qstashCircuitHalfOpenMaxReq,
	}
	if cfg.UpstreamBaseURL == "" {
		return Config{}, fmt.Errorf("UPSTREAM_BASE_URL cannot be empty")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	cfg.DBDisablePreparedBinary = dbDisablePreparedBinary

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}

	// Stale reads may block on an upstream refresh, so the write timeout is generous.
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "120s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout
	cfg.LogLevel = logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info"))

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseChoice(key, raw string, allowed ...string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, item := range allowed {
		if value == item {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q: valid values are %s", key, raw, strings.Join(allowed, ", "))
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
