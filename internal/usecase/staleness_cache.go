package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/cache"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
)

const (
	DefaultStalenessTTL = 15 * time.Minute

	refreshKeyAll     = "refresh:all"
	refreshKeySports  = "refresh:sports"
	scopeAll          = "all"
	cacheKeySportList = "sports:list"
)

// RefreshTracker records when a scope was last refreshed. Markers expire after ttl.
type RefreshTracker interface {
	MarkRefreshed(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	LastRefreshed(ctx context.Context, key string) (time.Time, bool, error)
}

type StalenessConfig struct {
	TTL time.Duration
	// ResultTTL bounds cached query results; it defaults to TTL.
	ResultTTL time.Duration
}

// StalenessCache decides whether a scope needs a refresh and memoizes query results
// derived from the store until the next refresh of the scope.
type StalenessCache struct {
	tracker   RefreshTracker
	results   *cache.Store
	ttl       time.Duration
	resultTTL time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

func NewStalenessCache(tracker RefreshTracker, results *cache.Store, cfg StalenessConfig, logger *logging.Logger) *StalenessCache {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultStalenessTTL
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = cfg.TTL
	}
	if results == nil {
		results = cache.NewStore(cfg.ResultTTL)
	}

	return &StalenessCache{
		tracker:   tracker,
		results:   results,
		ttl:       cfg.TTL,
		resultTTL: cfg.ResultTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *StalenessCache) TTL() time.Duration {
	return c.ttl
}

// IsStale reports whether key has no marker or its marker is older than the TTL. Tracker
// failures count as stale.
func (c *StalenessCache) IsStale(ctx context.Context, key string) bool {
	if c.tracker == nil {
		return true
	}
	at, ok, err := c.tracker.LastRefreshed(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "read refresh marker failed", "key", key, "error", err)
		return true
	}
	if !ok {
		return true
	}
	return c.now().Sub(at) >= c.ttl
}

func (c *StalenessCache) MarkRefreshed(ctx context.Context, key string) error {
	if c.tracker == nil {
		return nil
	}
	if err := c.tracker.MarkRefreshed(ctx, key, c.now().UTC(), c.ttl); err != nil {
		return fmt.Errorf("mark refreshed key=%s: %w", key, err)
	}
	return nil
}

// Remember returns the cached result for key or loads and caches it.
func (c *StalenessCache) Remember(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	return c.results.GetOrLoad(ctx, key, loader)
}

// InvalidateSport drops every cached result derived from the sport, including the
// unscoped ones that aggregate all sports.
func (c *StalenessCache) InvalidateSport(ctx context.Context, sportID int64) {
	scope := sportScope(&sportID)
	removed := 0
	for _, prefix := range []string{
		"projections:" + scope + ":",
		"projections:" + scopeAll + ":",
	} {
		removed += c.results.DeletePrefix(ctx, prefix)
	}
	for _, key := range []string{
		playersCacheKey(&sportID),
		playersCacheKey(nil),
		gamesCacheKey(&sportID),
		gamesCacheKey(nil),
		summaryCacheKey(sportID),
	} {
		c.results.Delete(ctx, key)
	}
	c.logger.DebugContext(ctx, "invalidated derived caches", "sport_id", sportID, "prefixed_entries", removed)
}

func (c *StalenessCache) InvalidateSports(ctx context.Context) {
	c.results.Delete(ctx, cacheKeySportList)
	c.results.DeletePrefix(ctx, "summary:")
}

func refreshKeyForSport(sportID int64) string {
	return "refresh:sport:" + strconv.FormatInt(sportID, 10)
}

func sportScope(sportID *int64) string {
	if sportID == nil {
		return scopeAll
	}
	return strconv.FormatInt(*sportID, 10)
}

func projectionsCacheKey(filter projection.Filter) string {
	return "projections:" + sportScope(filter.SportID) + ":" +
		strings.ToLower(strings.TrimSpace(filter.PlayerName)) + ":" +
		strings.ToLower(strings.TrimSpace(filter.StatType))
}

func playersCacheKey(sportID *int64) string {
	return "players:" + sportScope(sportID)
}

func gamesCacheKey(sportID *int64) string {
	return "games:" + sportScope(sportID)
}

func summaryCacheKey(sportID int64) string {
	return "summary:" + strconv.FormatInt(sportID, 10)
}
