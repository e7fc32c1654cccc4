package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clientpulse/internal/identity/models"
	id "clientpulse/pkg/domain"
	dErrors "clientpulse/pkg/domain-errors"
	"clientpulse/pkg/platform/httputil"
	"clientpulse/pkg/requestcontext"
)

// Service defines the identity operations exposed over HTTP.
type Service interface {
	Resolve(ctx context.Context, rawName string) (*models.Resolution, error)
	ResolveBatch(ctx context.Context, rawName string) (*models.Resolution, error)
	CreateClient(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error)
	DeactivateClient(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	CreateAlias(ctx context.Context, req *models.CreateAliasRequest) (*models.Alias, bool, error)
	DeactivateAlias(ctx context.Context, displayName string) error
	ListUnresolved(ctx context.Context, includeResolved bool) ([]*models.UnresolvedName, error)
}

// Handler serves name resolution and identity administration.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts identity routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/resolve", h.HandleResolve)
	r.Post("/admin/clients", h.HandleCreateClient)
	r.Post("/admin/clients/{id}/deactivate", h.HandleDeactivateClient)
	r.Post("/admin/aliases", h.HandleCreateAlias)
	r.Delete("/admin/aliases/{display_name}", h.HandleDeactivateAlias)
	r.Get("/admin/unresolved", h.HandleListUnresolved)
}

// HandleResolve resolves ?name= using the online steps, or with
// mode=batch the fuzzy reconciliation step as well.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")

	var (
		res *models.Resolution
		err error
	)
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "online":
		res, err = h.service.Resolve(ctx, name)
	case "batch":
		res, err = h.service.ResolveBatch(ctx, name)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "mode must be online or batch"))
		return
	}
	if err != nil {
		h.writeServiceError(ctx, w, "resolve failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateClientRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.CreateClient(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "create client failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleDeactivateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.DeactivateClient(ctx, clientID)
	if err != nil {
		h.writeServiceError(ctx, w, "deactivate client failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleCreateAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateAliasRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, created, err := h.service.CreateAlias(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "create alias failed", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, a)
}

func (h *Handler) HandleDeactivateAlias(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeactivateAlias(ctx, chi.URLParam(r, "display_name")); err != nil {
		h.writeServiceError(ctx, w, "deactivate alias failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListUnresolved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	includeResolved := false
	if raw := r.URL.Query().Get("include_resolved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "include_resolved must be a boolean"))
			return
		}
		includeResolved = v
	}
	list, err := h.service.ListUnresolved(ctx, includeResolved)
	if err != nil {
		h.writeServiceError(ctx, w, "list unresolved failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"unresolved": list})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
