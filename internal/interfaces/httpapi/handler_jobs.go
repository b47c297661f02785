package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

func (h *Handler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshAll")
	defer span.End()

	if h.refresher == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh coordinator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.refresher.RefreshAll(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh all failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) RefreshSport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshSport")
	defer span.End()

	if h.refresher == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh coordinator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	sportID, err := parsePathID(r.PathValue("sportID"), "sportID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.refresher.RefreshSport(ctx, sportID)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh sport failed", "sport_id", sportID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report)
}

// RunRefreshAllJob handles the queued refresh callback and schedules the next run.
func (h *Handler) RunRefreshAllJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshAllJob")
	defer span.End()

	if h.refreshJobs == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh job service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeRefreshRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.refreshJobs.RunRefreshAll(ctx, usecase.RefreshJobInput{
		DispatchID:  req.DispatchID,
		EnqueueNext: true,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run refresh all job failed", "dispatch_id", req.DispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

const maxRefreshRequestBytes = 64 << 10

func decodeRefreshRequest(r *http.Request) (refreshRequest, error) {
	if r.Body == nil {
		return refreshRequest{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRefreshRequestBytes))
	if err != nil {
		return refreshRequest{}, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return refreshRequest{}, nil
	}

	var req refreshRequest
	if err := strictJSON.Unmarshal(body, &req); err != nil {
		return refreshRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
