package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clientpulse/internal/health/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/httputil"
	"clientpulse/pkg/requestcontext"
)

// Service defines the health reads exposed over HTTP.
type Service interface {
	Current(ctx context.Context, clientID id.ClientID, minRefreshedAt *time.Time) (*models.CurrentHealth, error)
	History(ctx context.Context, clientID id.ClientID, from, to time.Time) ([]*models.Snapshot, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/clients/{id}/health", h.HandleCurrent)
	r.Get("/clients/{id}/health/history", h.HandleHistory)
}

// HandleCurrent serves the latest published snapshot. With
// ?min_refreshed_at= the response is flagged stale when the last refresh
// predates it.
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var minRefreshedAt *time.Time
	if raw := r.URL.Query().Get("min_refreshed_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "min_refreshed_at must be an RFC3339 timestamp"))
			return
		}
		minRefreshedAt = &t
	}
	res, err := h.service.Current(ctx, clientID, minRefreshedAt)
	if err != nil {
		h.writeServiceError(ctx, w, "get health failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := dateParam(r, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.History(ctx, clientID, from, to)
	if err != nil {
		h.writeServiceError(ctx, w, "get health history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"snapshots": list})
}

func dateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a YYYY-MM-DD date", name)
	}
	return t, nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
