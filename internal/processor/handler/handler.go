// Package handler exposes the manual due-cycle trigger. The cron scheduler
// is the normal driver; this endpoint exists for operations and backfills.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paychain/internal/processor"
	"paychain/pkg/derrors"
	"paychain/pkg/platform/httputil"
	"paychain/pkg/requestcontext"
)

// Runner runs one due cycle.
type Runner interface {
	RunDueCycle(ctx context.Context, asOf time.Time) (*processor.Report, error)
}

// Handler wires the admin trigger to the processor.
type Handler struct {
	runner Runner
	logger *slog.Logger
}

// New constructs the admin handler.
func New(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Register mounts the admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/due-cycle/run", h.HandleRun)
}

// HandleRun handles POST /admin/due-cycle/run. The optional as_of query
// parameter (YYYY-MM-DD) backdates or forward-dates the cycle; it defaults
// to the request time.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "as_of must be a YYYY-MM-DD date"))
			return
		}
		asOf = parsed
	}

	report, err := h.runner.RunDueCycle(ctx, asOf)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual due cycle failed",
			"request_id", requestcontext.RequestID(ctx),
			"as_of", asOf.Format(time.DateOnly),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}
