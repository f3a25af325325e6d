// internal/rules/middleware.go
//
// Chi middleware helpers that enforce role-based access.

package rules

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/auth"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/tenant"
)

var errNoTenant = errors.New("rules: no tenant in request")

// RequireRole ensures the current user holds any of names.
func RequireRole(names ...string) func(http.Handler) http.Handler {
	if len(names) == 0 {
		panic("rules.RequireRole: at least one role name must be supplied")
	}
	allowSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowSet[n] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := currentRoles(w, r)
			if !ok {
				return
			}
			for _, name := range roles {
				if _, ok := allowSet[name]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			httperr.Write(w, r, http.StatusForbidden, nil)
		})
	}
}

// RequirePermission verifies the user's roles allow component/action.
func RequirePermission(component, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := currentRoles(w, r)
			if !ok {
				return
			}
			allowed, err := RoleAllowed(r.Context(), tenant.Current(r.Context()).GetDB(), roles, component, action)
			if err != nil {
				zap.L().Error("rules role allowed", zap.Error(err))
				httperr.Write(w, r, http.StatusInternalServerError, err)
				return
			}
			if !allowed {
				httperr.Write(w, r, http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentRoles writes the error response itself and returns ok=false when
// the request cannot proceed.
func currentRoles(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	uid, ok := auth.UserID(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, nil)
		return nil, false
	}
	t := tenant.Current(r.Context())
	if t == nil || t.GetDB() == nil {
		httperr.Write(w, r, http.StatusInternalServerError, errNoTenant)
		return nil, false
	}
	roles, err := UserRoles(r.Context(), t.GetDB(), uid)
	if err != nil {
		zap.L().Error("rules user roles", zap.Error(err))
		httperr.Write(w, r, http.StatusInternalServerError, err)
		return nil, false
	}
	return roles, true
}
