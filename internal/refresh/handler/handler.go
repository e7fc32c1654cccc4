package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientpulse/internal/refresh/models"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/httputil"
	"clientpulse/pkg/requestcontext"
)

// Service triggers refresh passes and reports the published generation.
type Service interface {
	Refresh(ctx context.Context, scope models.Scope) (*models.Outcome, error)
	Status(ctx context.Context) (*models.State, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/refresh", h.HandleRefresh)
	r.Get("/refresh", h.HandleStatus)
}

// HandleRefresh runs a pass synchronously and returns its outcome.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RefreshRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	out, err := h.service.Refresh(ctx, req.ToScope())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "refresh failed", "request_id", requestcontext.RequestID(ctx), "error", err)
		} else {
			h.logger.WarnContext(ctx, "refresh rejected", "request_id", requestcontext.RequestID(ctx), "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}
