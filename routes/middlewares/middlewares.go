package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/gofrs/uuid"

	"github.com/mbolis/quick-form/fill"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
)

type ctxKey int

const (
	fillSessionIDKey ctxKey = iota
	fillSessionKey
)

// Admin middleware to check for the 'admin' role in a JWT.
func Admin(auth *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(jwtauth.Verifier(auth), jwtauth.Authenticator, admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "admin.claims")
			return
		}

		if !hasRole(claims["roles"], "admin") {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "admin.roles")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// hasRole accepts roles either as a comma separated string or as a list.
func hasRole(claim any, want string) bool {
	var roles []string
	switch v := claim.(type) {
	case string:
		roles = strings.Split(v, ",")
	case []string:
		roles = v
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	for _, role := range roles {
		if strings.TrimSpace(role) == want {
			return true
		}
	}
	return false
}

// FillSession loads the fill session named by the {sessionId} URL param.
func FillSession(sessions *fill.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			param := chi.URLParam(r, "sessionId")
			id, err := uuid.FromString(param)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.session_id")
				return
			}
			s, ok := sessions.Get(id)
			if !ok {
				httpx.LogNotFound(w, "fill.session", id)
				return
			}

			ctx := context.WithValue(r.Context(), fillSessionIDKey, id)
			ctx = context.WithValue(ctx, fillSessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetFillSession returns the session loaded by FillSession.
func GetFillSession(r *http.Request) (uuid.UUID, *fill.Session) {
	id, _ := r.Context().Value(fillSessionIDKey).(uuid.UUID)
	s, _ := r.Context().Value(fillSessionKey).(*fill.Session)
	return id, s
}
