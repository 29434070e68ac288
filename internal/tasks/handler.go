package tasks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskhub/taskhub/internal/platform/httpx"
	"github.com/taskhub/taskhub/internal/shared"
)

// TaskService is the subset of Service the HTTP layer depends on.
type TaskService interface {
	List(ctx context.Context, principal shared.Principal, q ListQuery) (ListResult, error)
	Get(ctx context.Context, principal shared.Principal, id string) (*TaskView, error)
	Create(ctx context.Context, principal shared.Principal, in Input) (*TaskView, error)
	Update(ctx context.Context, principal shared.Principal, id string, in Input) (*TaskView, error)
	Delete(ctx context.Context, principal shared.Principal, id string) error
	Stats(ctx context.Context, principal shared.Principal) (Stats, error)
}

// Handler exposes task endpoints. Routes expect a principal in the request
// context, so mount them behind auth.Guard.
type Handler struct {
	logger  *slog.Logger
	service TaskService
	errors  *httpx.ErrorResponder
}

// NewHandler builds a new task handler.
func NewHandler(logger *slog.Logger, service TaskService, errs *httpx.ErrorResponder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, errors: errs}
}

// MountRoutes registers task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats/dashboard", h.stats)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type taskResponse struct {
	Message string    `json:"message,omitempty"`
	Task    *TaskView `json:"task"`
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.errors.Respond(w, r, shared.ErrUnauthenticated)
	}
	return p, ok
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	q, err := ParseListQuery(p.ID, r.URL.Query())
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	result, err := h.service.List(r.Context(), p, q)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), p)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, taskResponse{Task: view})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	view, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	h.logger.Info("task created", slog.String("task_id", view.ID.String()), slog.String("user_id", p.ID.String()))
	httpx.JSON(w, http.StatusCreated, taskResponse{Message: "Task created successfully", Task: view})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var in Input
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	view, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, taskResponse{Message: "Task updated successfully", Task: view})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	h.logger.Info("task deleted", slog.String("task_id", chi.URLParam(r, "id")), slog.String("user_id", p.ID.String()))
	httpx.Message(w, http.StatusOK, "Task deleted successfully")
}
