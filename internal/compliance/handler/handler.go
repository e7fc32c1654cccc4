package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/httputil"
	"clientpulse/pkg/requestcontext"
)

// Service defines the compliance operations exposed over HTTP.
type Service interface {
	Result(ctx context.Context, clientID id.ClientID, year int) (*models.Result, error)
	PortfolioSummary(ctx context.Context, year int) (*models.PortfolioSummary, error)
	ListEvents(ctx context.Context, clientID id.ClientID, year int) ([]*models.EngagementEvent, error)
	AssignSegment(ctx context.Context, req *models.AssignSegmentRequest) (*models.SegmentAssignment, error)
	ListSegments(ctx context.Context, clientID id.ClientID) ([]*models.SegmentAssignment, error)
	AddExclusion(ctx context.Context, req *models.ExclusionRequest) (*models.Exclusion, error)
	RemoveExclusion(ctx context.Context, req *models.ExclusionRequest) error
	DefineEventType(ctx context.Context, req *models.DefineEventTypeRequest) (*models.EventType, error)
	ListEventTypes(ctx context.Context) ([]*models.EventType, error)
	SetTierRequirement(ctx context.Context, req *models.SetTierRequirementRequest) (*models.TierRequirement, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts compliance routes on r. Admin routes are registered with
// full paths so several modules can share the /admin prefix.
func (h *Handler) Register(r chi.Router) {
	r.Get("/clients/{id}/compliance", h.HandleGetCompliance)
	r.Get("/clients/{id}/events", h.HandleListEvents)
	r.Get("/portfolio/compliance", h.HandlePortfolio)

	r.Post("/admin/event-types", h.HandleDefineEventType)
	r.Get("/admin/event-types", h.HandleListEventTypes)
	r.Post("/admin/tier-requirements", h.HandleSetTierRequirement)
	r.Post("/admin/segments", h.HandleAssignSegment)
	r.Get("/admin/clients/{id}/segments", h.HandleListSegments)
	r.Post("/admin/exclusions", h.HandleAddExclusion)
	r.Delete("/admin/exclusions", h.HandleRemoveExclusion)
}

func (h *Handler) HandleGetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Result(ctx, clientID, year)
	if err != nil {
		h.writeServiceError(ctx, w, "get compliance failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.service.ListEvents(ctx, clientID, year)
	if err != nil {
		h.writeServiceError(ctx, w, "list events failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := yearParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.PortfolioSummary(ctx, year)
	if err != nil {
		h.writeServiceError(ctx, w, "portfolio summary failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleDefineEventType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.DefineEventTypeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	et, err := h.service.DefineEventType(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "define event type failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, et)
}

func (h *Handler) HandleListEventTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.ListEventTypes(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list event types failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"event_types": list})
}

func (h *Handler) HandleSetTierRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SetTierRequirementRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	tr, err := h.service.SetTierRequirement(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "set tier requirement failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tr)
}

func (h *Handler) HandleAssignSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AssignSegmentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.AssignSegment(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "assign segment failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleListSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListSegments(ctx, clientID)
	if err != nil {
		h.writeServiceError(ctx, w, "list segments failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"segments": list})
}

func (h *Handler) HandleAddExclusion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ExclusionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.AddExclusion(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "add exclusion failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) HandleRemoveExclusion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ExclusionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.RemoveExclusion(ctx, req); err != nil {
		h.writeServiceError(ctx, w, "remove exclusion failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// yearParam reads ?year=, defaulting to the request's calendar year.
func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return requestcontext.Now(r.Context()).Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "year must be a four digit number")
	}
	return year, nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
