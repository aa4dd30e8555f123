package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/riskibarqy/ipl-snapshot/internal/usecase"
)

// SnapshotReader is the usecase surface the handlers need.
type SnapshotReader interface {
	Get(ctx context.Context) (usecase.SnapshotResult, error)
	Status(ctx context.Context) (usecase.SnapshotStatus, error)
	Refresh(ctx context.Context) (usecase.SnapshotResult, error)
}

type Handler struct {
	snapshots SnapshotReader
	metrics   http.Handler
	cacheTTL  time.Duration
	logger    *logging.Logger
}

// NewHandler wires the snapshot endpoints. metrics may be nil when the
// Prometheus endpoint is disabled.
func NewHandler(snapshots SnapshotReader, metrics http.Handler, cacheTTL time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		snapshots: snapshots,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSnapshot serves the bare snapshot document. Cache and provenance
// details travel in headers so the body stays what the UI expects.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSnapshot")
	defer span.End()

	result, err := h.snapshots.Get(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get snapshot failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	span.SetAttributes(snapshotAttributes(result)...)

	header := w.Header()
	header.Set("X-Cache", string(result.CacheStatus))
	header.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(h.cacheTTL.Seconds())))
	header.Set("X-Snapshot-Sources", result.Provenance.String())
	writeJSON(ctx, w, http.StatusOK, result.Snapshot)
}

func (h *Handler) GetSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSnapshotStatus")
	defer span.End()

	status, err := h.snapshots.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get snapshot status failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeSuccess(ctx, w, http.StatusOK, status)
}

func (h *Handler) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshSnapshot")
	defer span.End()

	result, err := h.snapshots.Refresh(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "refresh snapshot failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("X-Cache", string(result.CacheStatus))
	writeSuccess(ctx, w, http.StatusOK, refreshDTO{
		CacheStatus: string(result.CacheStatus),
		FetchedAt:   result.FetchedAt.UTC().Format(time.RFC3339),
		Provenance:  provenanceToDTO(result),
	})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

type refreshDTO struct {
	CacheStatus string            `json:"cacheStatus"`
	FetchedAt   string            `json:"fetchedAt"`
	Provenance  map[string]string `json:"provenance"`
}

func provenanceToDTO(result usecase.SnapshotResult) map[string]string {
	out := make(map[string]string, len(result.Provenance))
	for section, source := range result.Provenance {
		out[string(section)] = source
	}
	return out
}
