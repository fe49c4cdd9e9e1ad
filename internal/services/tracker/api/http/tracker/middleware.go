package tracker

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/orion/internal/platform/errors"
	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/platform/requestctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RequireUser rejects requests without a valid bearer token and stores the
// token's user id in the request context. Handlers resolve that id to a user
// inside their own unit of work.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.WriteError(w, r, errNotAuthenticated)
			return
		}
		subject, err := s.tokens.Validate(raw)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeInvalidToken, "Invalid token", err))
			return
		}

		trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("enduser.id", userID))
		next.ServeHTTP(w, r.WithContext(requestctx.WithUserID(r.Context(), userID)))
	})
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, credentials, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return "", false
	}
	return credentials, true
}
