package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/platform/httpx"
	"github.com/taskhub/taskhub/internal/shared"
)

// AuthService is the subset of Service the HTTP layer depends on.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
	Login(ctx context.Context, in LoginInput) (AuthResult, error)
	CurrentUser(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*User, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service AuthService
	errors  *httpx.ErrorResponder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service AuthService, errs *httpx.ErrorResponder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, errors: errs}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(Guard(h.service, h.errors))
		r.Get("/me", h.handleMe)
		r.Put("/profile", h.handleProfile)
	})
}

type authResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

type userResponse struct {
	Message string   `json:"message,omitempty"`
	User    UserView `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		Token:   result.Token,
		User:    result.User.Summary(),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   result.Token,
		User:    result.User.Summary(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.errors.Respond(w, r, shared.ErrUnauthenticated)
		return
	}
	user, err := h.service.CurrentUser(r.Context(), principal.ID)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user.Profile()})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.errors.Respond(w, r, shared.ErrUnauthenticated)
		return
	}
	var in ProfileInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), principal.ID, in)
	if err != nil {
		h.errors.Respond(w, r, err)
		return
	}
	h.logger.Info("profile updated", slog.String("user_id", principal.ID.String()))
	httpx.JSON(w, http.StatusOK, userResponse{Message: "Profile updated successfully", User: user.Profile()})
}
