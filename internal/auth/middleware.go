package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// RequireMechanic rejects requests without a valid bearer token and stores the
// resolved Principal in the request context.
func RequireMechanic(tokens Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			principal, err := tokens.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, httpx.ErrUnauthorized) {
					logger.Error("resolve bearer token", slog.Any("error", err))
					httpx.RespondError(w, err)
					return
				}
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tallercar"`)
	httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "valid bearer token required")
}
