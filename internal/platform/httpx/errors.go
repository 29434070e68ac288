package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskhub/taskhub/internal/shared"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Details []shared.FieldError `json:"details,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

// ErrorResponder maps domain errors to HTTP responses and logs them with
// request context.
type ErrorResponder struct {
	Logger *slog.Logger
	// Verbose exposes underlying server error text. Disabled in production.
	Verbose bool
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthenticated),
		errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrPrincipalInactive),
		errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes the error response for err.
func (e *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	body := ErrorBody{Code: shared.Kind(err)}

	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Error = "Validation failed"
		body.Details = verr.Fields
	case status == http.StatusInternalServerError:
		body.Error = "Server error"
		if e != nil && e.Verbose {
			body.Error = err.Error()
		}
	default:
		body.Error = publicMessage(err)
	}

	e.log(r, status, err)
	JSON(w, status, body)
}

// Fail writes a 500 response for a recovered panic. Stack is only included
// when the responder is verbose.
func (e *ErrorResponder) Fail(w http.ResponseWriter, r *http.Request, recovered any, stack []byte) {
	body := ErrorBody{Error: "Internal Server Error", Code: "ServerError"}
	if e != nil && e.Verbose {
		if err, ok := recovered.(error); ok {
			body.Error = err.Error()
		} else if s, ok := recovered.(string); ok {
			body.Error = s
		}
		body.Stack = string(stack)
	}
	if e != nil && e.Logger != nil {
		e.Logger.Error("unhandled panic",
			slog.Any("panic", recovered),
			slog.String("stack", string(stack)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("ip", r.RemoteAddr),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	JSON(w, http.StatusInternalServerError, body)
}

func (e *ErrorResponder) log(r *http.Request, status int, err error) {
	if e == nil || e.Logger == nil {
		return
	}
	attrs := []any{
		slog.Any("error", err),
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("ip", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		e.Logger.Error("request failed", attrs...)
		return
	}
	e.Logger.Warn("request rejected", attrs...)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		return "User already exists with this email"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, shared.ErrUnauthenticated):
		return "Access denied. No token provided."
	case errors.Is(err, shared.ErrTokenExpired):
		return "Token expired."
	case errors.Is(err, shared.ErrPrincipalInactive):
		return "Invalid token. User not found or inactive."
	case errors.Is(err, shared.ErrInvalidToken):
		return "Invalid token."
	case errors.Is(err, shared.ErrForbidden):
		return "Access denied"
	case errors.Is(err, shared.ErrNotFound):
		return upperFirst(err.Error())
	default:
		return err.Error()
	}
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
