package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "tracelot/pkg/domain"
)

// HolderVerifier validates a bearer token and returns the holder identity
// it asserts.
type HolderVerifier interface {
	VerifyToken(tokenString string) (id.HolderID, error)
}

type contextKeyHolderID struct{}

// GetHolder retrieves the authenticated holder identity from the context.
// Returns HolderNone when the request was not authenticated.
func GetHolder(ctx context.Context) id.HolderID {
	if holder, ok := ctx.Value(contextKeyHolderID{}).(id.HolderID); ok {
		return holder
	}
	return id.HolderNone
}

// WithHolder injects a holder identity into a context. Useful for service
// unit tests that don't run the full HTTP middleware chain.
func WithHolder(ctx context.Context, holder id.HolderID) context.Context {
	return context.WithValue(ctx, contextKeyHolderID{}, holder)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireHolder rejects requests without a valid bearer token and stores the
// asserted holder identity in the request context for handlers.
func RequireHolder(verifier HolderVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			holder, err := verifier.VerifyToken(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyHolderID{}, holder)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
