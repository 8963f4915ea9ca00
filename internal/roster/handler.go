package roster

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ringside-hq/ringside/internal/platform/httpx"
	"github.com/ringside-hq/ringside/internal/shared"
)

// Handler exposes the roster engine over HTTP. Typed guard rejections pass
// through to the caller unchanged in the problem detail.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers roster routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.remove)
		r.Post("/restore", h.restore)
		r.Get("/status", h.statusAt)
		r.Get("/debut", h.debut)
		r.Get("/last-stint", h.lastStint)
		r.Get("/history/{kind}", h.history)
		r.Post("/transitions/{transition}", h.transition)
	})
}

// respondError maps engine errors onto problem responses. Guard rejections
// are expected business outcomes; invariant faults mean corrupted period
// state and abort with a 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case IsGuardRejection(err):
		httpx.Problem(w, http.StatusConflict, "Transition Rejected", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrKindNotTracked):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrNameRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case IsInvariantFault(err):
		h.logger.Error("period invariant violated", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	default:
		h.logger.Error("roster request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

type createRequest struct {
	Kind    EntityKind `json:"kind" validate:"required"`
	Name    string     `json:"name" validate:"required,max=200"`
	StartAt *time.Time `json:"start_at,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entity, err := h.service.Create(r.Context(), CreateParams(req))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entity)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	filter := ListFilter{
		Kind:           EntityKind(strings.ToUpper(r.URL.Query().Get("kind"))),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		Limit:          perPage,
		Offset:         (page - 1) * perPage,
	}
	entities, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      entities,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	entity, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entity)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.Restore(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) statusAt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "at must be RFC3339")
			return
		}
		at = parsed
	}
	status, err := h.service.StatusAt(r.Context(), id, at)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": status, "at": at})
}

func (h *Handler) debut(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	debut, err := h.service.Debut(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"debut": debut})
}

func (h *Handler) lastStint(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	period, err := h.service.LastStint(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	kind := PeriodKind(strings.ToUpper(chi.URLParam(r, "kind")))
	if !kind.IsValid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown period kind")
		return
	}
	periods, err := h.service.History(r.Context(), id, kind)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": periods})
}

type transitionRequest struct {
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	var at time.Time
	if req.EffectiveAt != nil {
		at = *req.EffectiveAt
	}

	var entity *Entity
	var err error
	switch Transition(strings.ToUpper(chi.URLParam(r, "transition"))) {
	case TransitionEmploy:
		entity, err = h.service.Employ(r.Context(), id, at)
	case TransitionRelease:
		entity, err = h.service.Release(r.Context(), id, at)
	case TransitionSuspend:
		entity, err = h.service.Suspend(r.Context(), id, at)
	case TransitionReinstate:
		entity, err = h.service.Reinstate(r.Context(), id, at)
	case TransitionInjure:
		entity, err = h.service.Injure(r.Context(), id, at)
	case TransitionHeal:
		entity, err = h.service.Heal(r.Context(), id, at)
	case TransitionRetire:
		entity, err = h.service.Retire(r.Context(), id, at)
	case TransitionUnretire:
		entity, err = h.service.Unretire(r.Context(), id, at)
	case TransitionActivate:
		entity, err = h.service.Activate(r.Context(), id, at)
	case TransitionDeactivate:
		entity, err = h.service.Deactivate(r.Context(), id, at)
	case TransitionJoin:
		if req.GroupID == nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "group_id is required to join")
			return
		}
		entity, err = h.service.Join(r.Context(), id, *req.GroupID, at)
	case TransitionLeave:
		entity, err = h.service.Leave(r.Context(), id, at)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown transition")
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entity)
}

func (h *Handler) entityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
