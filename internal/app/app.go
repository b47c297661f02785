package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/prizepicks-feed/external/jobqueue"
	"github.com/riskibarqy/prizepicks-feed/external/prizepicks"
	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/prizepicks-feed/internal/platform/id"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/identity"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/ratelimit"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/resilience"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

// Services is the wired service graph shared by the API server and the operator CLI.
type Services struct {
	Query       *usecase.QueryService
	Refresher   *usecase.RefreshCoordinator
	RefreshJobs *usecase.RefreshJobService
	Scheduler   *usecase.RefreshScheduler

	cfg    config.Config
	store  *store
	logger *logging.Logger
}

func NewServices(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Services, error) {
	if logger == nil {
		logger = logging.Default()
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	feed, err := newFeedClient(cfg, logger)
	if err != nil {
		_ = st.close()
		return nil, err
	}

	staleness := usecase.NewStalenessCache(st.tracker, nil, usecase.StalenessConfig{TTL: cfg.FeedStalenessTTL}, logger)
	refresher := usecase.NewRefreshCoordinator(
		feed,
		st.sports,
		st.projections,
		st.players,
		st.games,
		staleness,
		usecase.RefreshConfig{
			DelayMin: cfg.RefreshDelayMin,
			DelayMax: cfg.RefreshDelayMax,
			Workers:  cfg.RefreshWorkers,
		},
		logger,
	)
	query := usecase.NewQueryService(st.sports, st.projections, st.players, st.games, refresher, staleness, logger)

	queue := usecase.NewNoopJobQueue()
	if cfg.RefreshSchedulerMode == config.SchedulerModeQStash {
		queue = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, logger)
	}
	jobs := usecase.NewRefreshJobService(refresher, queue, st.dispatches, usecase.RefreshJobConfig{
		Interval: cfg.RefreshScheduleInterval,
	}, logger)

	return &Services{
		Query:       query,
		Refresher:   refresher,
		RefreshJobs: jobs,
		Scheduler:   usecase.NewRefreshScheduler(refresher, cfg.RefreshScheduleInterval, logger),
		cfg:         cfg,
		store:       st,
		logger:      logger,
	}, nil
}

func newFeedClient(cfg config.Config, logger *logging.Logger) (*prizepicks.Client, error) {
	doer, err := prizepicks.NewDoer(cfg.UpstreamTransport, cfg.UpstreamTimeout)
	if err != nil {
		return nil, err
	}

	return prizepicks.NewClient(prizepicks.ClientConfig{
		Doer:    doer,
		BaseURL: cfg.UpstreamBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.UpstreamCircuitEnabled,
			FailureThreshold: cfg.UpstreamCircuitFailureCount,
			OpenTimeout:      cfg.UpstreamCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.UpstreamCircuitHalfOpenMax,
		},
		Retry: prizepicks.RetryPolicy{
			MaxRetries:            cfg.UpstreamMaxRetries,
			MaxBlockedRetries:     cfg.UpstreamMaxBlockedRetries,
			MaxRateLimitedRetries: cfg.UpstreamMaxRateLimited,
			Backoff: resilience.Backoff{
				Factor: cfg.UpstreamBackoffFactor,
				Max:    cfg.UpstreamMaxBackoff,
			},
		},
		Limiter:            ratelimit.NewTokenBucket(cfg.UpstreamRatePerSecond, cfg.UpstreamRateBurst),
		Throttle:           ratelimit.NewThrottleQueue(0, cfg.UpstreamThrottleCeiling),
		Identity:           identity.NewManager(cfg.UpstreamRotateProbability, idgen.NewUUIDGenerator()),
		Normalizer:         prizepicks.NewNormalizer(prizepicks.NormalizerConfig{MaxRecords: cfg.NormalizerMaxRecords, Logger: logger}),
		PageSize:           cfg.UpstreamPageSize,
		HighVolumeSportID:  cfg.UpstreamHighVolumeSportID,
		HighVolumePageSize: cfg.UpstreamHighVolumePageSize,
	}), nil
}

// StartScheduler starts the refresh schedule selected by REFRESH_SCHEDULER_MODE. The internal
// ticker stops with ctx.
func (s *Services) StartScheduler(ctx context.Context) error {
	switch s.cfg.RefreshSchedulerMode {
	case config.SchedulerModeInternal:
		go s.Scheduler.Run(ctx)
		return nil
	case config.SchedulerModeQStash:
		result, err := s.RefreshJobs.Bootstrap(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap refresh job chain: %w", err)
		}
		s.logger.InfoContext(ctx, "refresh job chain bootstrapped", "dispatch_id", result.DispatchID)
		return nil
	default:
		s.logger.InfoContext(ctx, "refresh scheduler disabled", "mode", s.cfg.RefreshSchedulerMode)
		return nil
	}
}

func (s *Services) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.close()
}

func NewHTTPServer(cfg config.Config, services *Services, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(
		services.Query,
		services.Refresher,
		services.RefreshJobs,
		services.store.checkers,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		RateLimitRPS:       cfg.APIRateLimitRPS,
		RateLimitBurst:     cfg.APIRateLimitBurst,
	})

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}
