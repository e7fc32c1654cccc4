package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientpulse/internal/ingest/models"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/httputil"
	"clientpulse/pkg/requestcontext"
)

// Service applies raw feed rows.
type Service interface {
	IngestMeetings(ctx context.Context, source string, rows []models.MeetingRow) (*models.Report, error)
	IngestSurveys(ctx context.Context, source string, rows []models.SurveyRow) (*models.Report, error)
	IngestAging(ctx context.Context, source string, rows []models.AgingRow) (*models.Report, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/ingest/meetings", h.HandleMeetings)
	r.Post("/ingest/surveys", h.HandleSurveys)
	r.Post("/ingest/aging", h.HandleAging)
}

// Row-level rejections are reported in a 200 response. Only malformed
// bodies and storage failures produce an error status.

func (h *Handler) HandleMeetings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.MeetingBatch](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.service.IngestMeetings(ctx, req.Source, req.Rows)
	h.respond(ctx, w, report, err)
}

func (h *Handler) HandleSurveys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SurveyBatch](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.service.IngestSurveys(ctx, req.Source, req.Rows)
	h.respond(ctx, w, report, err)
}

func (h *Handler) HandleAging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AgingBatch](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	report, err := h.service.IngestAging(ctx, req.Source, req.Rows)
	h.respond(ctx, w, report, err)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, report *models.Report, err error) {
	if err != nil {
		attrs := []any{"request_id", requestcontext.RequestID(ctx), "error", err}
		if report != nil {
			attrs = append(attrs, "feed", string(report.Feed), "accepted_before_failure", report.Accepted)
		}
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "ingest failed", attrs...)
		} else {
			h.logger.WarnContext(ctx, "ingest failed", attrs...)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
