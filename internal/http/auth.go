package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"voicebudget/internal/core"
	"voicebudget/internal/log"
	"voicebudget/internal/storage"
)

type contextKey string

const identityContextKey contextKey = "identity"

// TokenResolver maps a bearer token to a user identity.
type TokenResolver interface {
	GetUserByToken(ctx context.Context, token string) (core.Identity, error)
}

// resolveIdentity reads the Authorization header and resolves the bearer
// token. Returns nil for missing, malformed, or unknown tokens; it never
// fails the request itself. Handlers decide whether nil is acceptable.
func (s *Server) resolveIdentity(r *http.Request) *core.Identity {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return nil
	}

	identity, err := s.tokens.GetUserByToken(r.Context(), token)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.ErrorContext(r.Context(), "token lookup failed",
				log.FieldError, err.Error())
		}
		return nil
	}
	return &identity
}

func withIdentity(ctx context.Context, identity *core.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func identityFrom(ctx context.Context) *core.Identity {
	if identity, ok := ctx.Value(identityContextKey).(*core.Identity); ok {
		return identity
	}
	return nil
}

// requireAuth rejects requests without a resolved identity. The voice
// endpoint skips this so the transcript survives an expired session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "missing or invalid API token")
			return
		}
		next(w, r)
	}
}
