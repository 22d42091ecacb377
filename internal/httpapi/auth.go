package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"qms/clinic-queue/internal/log"
	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/store"
)

type authContextKey struct{}

// AuthMiddleware requires a live staff session on /admin/ routes.
func AuthMiddleware(staffStore store.StaffStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		_, staff, err := staffStore.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			log.FromContext(r.Context()).WithError(err).Error("session lookup failed")
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, staff)
		ctx = log.ToContext(ctx, log.FromContext(ctx).WithField("staff_id", staff.StaffID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func staffFromContext(ctx context.Context) (models.Staff, bool) {
	staff, ok := ctx.Value(authContextKey{}).(models.Staff)
	return staff, ok
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requestIDFromRequest(r *http.Request) string {
	if requestID, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	return r.URL.Path != "/admin" && !strings.HasPrefix(r.URL.Path, "/admin/")
}
