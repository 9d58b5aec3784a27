package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type participantContextKey string

const participantKey participantContextKey = "participant"

func withParticipant(ctx context.Context, participantID string) context.Context {
	return context.WithValue(ctx, participantKey, participantID)
}

func participantFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(participantKey).(string); ok {
		return v
	}
	return ""
}

// requireParticipant takes the caller identity from the trusted gateway header.
// Whether that identity may act on a negotiation is decided by the service.
func (s *Server) requireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(s.participantHeader))
		if id == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+s.participantHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(withParticipant(r.Context(), id)))
	})
}
