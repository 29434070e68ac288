package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskhub/taskhub/internal/platform/httpx"
	"github.com/taskhub/taskhub/internal/shared"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (shared.Principal, error)
}

// Guard returns middleware that admits only requests carrying a valid bearer
// token for an active account.
func Guard(authn Authenticator, errs *httpx.ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				errs.Respond(w, r, err)
				return
			}
			principal, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				errs.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", shared.ErrUnauthenticated
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", shared.ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", shared.ErrUnauthenticated
	}
	return token, nil
}
