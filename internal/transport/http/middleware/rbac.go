package middleware

import (
	"context"
	"net/http"

	"nomina/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission rejects anonymous callers with 401 and callers whose role
// lacks permission with 403. A failed lookup is reported as 503 so clients
// retry instead of treating it as a denial.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok || user.TenantID == "" {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}

			allowed, err := store.HasPermission(r.Context(), user.RoleID, permission)
			if err != nil {
				api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "permission check failed", reqID)
				return
			}
			if !allowed {
				api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient permissions", map[string]string{"permission": permission}, reqID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
