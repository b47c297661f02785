package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	queryService   *usecase.QueryService
	refresher      *usecase.RefreshCoordinator
	refreshJobs    *usecase.RefreshJobService
	healthCheckers map[string]HealthChecker
	logger         *logging.Logger
	validator      *validator.Validate
}

func NewHandler(
	queryService *usecase.QueryService,
	refresher *usecase.RefreshCoordinator,
	refreshJobs *usecase.RefreshJobService,
	healthCheckers map[string]HealthChecker,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		queryService:   queryService,
		refresher:      refresher,
		refreshJobs:    refreshJobs,
		healthCheckers: healthCheckers,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), "httpapi.Handler.Root")
	defer span.End()

	writeSuccess(w, http.StatusOK, map[string]string{
		"message": "PrizePicks projections feed",
		"docs":    "/docs",
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	status := map[string]string{"status": "ok"}
	for name, checker := range h.healthCheckers {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			writeError(ctx, w, fmt.Errorf("%w: %s: %v", usecase.ErrDependencyUnavailable, name, err))
			return
		}
		status[name] = "ok"
	}

	writeSuccess(w, http.StatusOK, status)
}

func (h *Handler) ListSports(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSports")
	defer span.End()

	items, err := h.queryService.ListSports(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list sports failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]sportDTO, 0, len(items))
	for _, item := range items {
		out = append(out, sportToDTO(item))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) GetSportSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSportSummary")
	defer span.End()

	sportID, err := parsePathID(r.PathValue("sportID"), "sportID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.queryService.GetSportSummary(ctx, sportID)
	if err != nil {
		h.logger.WarnContext(ctx, "get sport summary failed", "sport_id", sportID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, sportSummaryToDTO(summary))
}

func (h *Handler) ListProjections(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListProjections")
	defer span.End()

	query, err := decodeProjectionQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	filter := projection.Filter{
		SportID:    query.SportID,
		PlayerName: query.PlayerName,
		StatType:   query.StatType,
	}
	page, err := h.queryService.ListProjections(ctx, filter, query.pageRequest())
	if err != nil {
		h.logger.WarnContext(ctx, "list projections failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, projectionPageToDTO(page))
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	sportID, err := parseOptionalSportID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.queryService.ListPlayers(ctx, sportID)
	if err != nil {
		h.logger.WarnContext(ctx, "list players failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]playerDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerToDTO(item))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) FindPlayerByName(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FindPlayerByName")
	defer span.End()

	name := strings.TrimSpace(r.PathValue("name"))
	item, err := h.queryService.FindPlayerByName(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "find player failed", "name", name, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, playerToDTO(item))
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGames")
	defer span.End()

	sportID, err := parseOptionalSportID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.queryService.ListGames(ctx, sportID)
	if err != nil {
		h.logger.WarnContext(ctx, "list games failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]gameDTO, 0, len(items))
	for _, item := range items {
		out = append(out, gameToDTO(item))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) FindGameByID(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FindGameByID")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	item, err := h.queryService.FindGameByID(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "find game failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, gameToDTO(item))
}
