package handlers

import (
	"context"
	"net/http"

	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/security"
	"github.com/username/taxinator/src/utils"
)

type contextKey string

const roleContextKey = contextKey("callerRole")

// RoleHeader carries the caller-supplied persona tag. This is a coarse
// capability check, not authentication.
const RoleHeader = "X-User-Role"

// RequireCapability wraps a handler with the role capability check: missing
// header is 401, unknown role 400, disallowed role 403.
func RequireCapability(capability security.Capability, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(RoleHeader)
		if raw == "" {
			utils.SendJSONError(w, "Missing X-User-Role header; specify provider, broker_admin, internal_ops, api_client, or tax_engine.", http.StatusUnauthorized)
			return
		}
		role, err := security.ParseRole(raw)
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !security.Allowed(capability, role) {
			logger.L.Warn("Role not permitted for operation", "role", role, "capability", capability, "path", r.URL.Path)
			utils.SendJSONError(w, "Role '"+string(role)+"' is not permitted for this operation", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), roleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RoleFromContext returns the validated caller role, if any.
func RoleFromContext(ctx context.Context) (security.Role, bool) {
	role, ok := ctx.Value(roleContextKey).(security.Role)
	return role, ok
}
