package authz

import (
	"log/slog"
	"net/http"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Middleware wires the permission table into HTTP routing.
type Middleware struct {
	Logger *slog.Logger
}

// Principal describes the authenticated actor extracted from the session.
type Principal struct {
	UserID int64
	Role   Role
}

// PrincipalFromContext resolves the request principal, or false when
// unauthenticated.
func PrincipalFromContext(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == 0 {
		return Principal{}, false
	}
	return Principal{UserID: sess.UserID(), Role: Role(sess.Role())}, true
}

// Require guards a route group with a single operation check.
func (m Middleware) Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if err := Require(principal.Role, op); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("authorization denied",
						slog.Int64("user_id", principal.UserID),
						slog.String("role", string(principal.Role)),
						slog.String("operation", string(op)))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
