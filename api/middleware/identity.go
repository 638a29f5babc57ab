package middleware

import (
	"net/http"
	"strings"
)

// Identity copies the caller-supplied staff and restaurant identifiers into
// the request context. Authentication happens upstream at the platform
// gateway; these headers only scope logging and idempotency keys.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if staffID := strings.TrimSpace(r.Header.Get("X-Staff-ID")); staffID != "" {
				ctx = WithStaffID(ctx, staffID)
			}
			if restaurantID := strings.TrimSpace(r.Header.Get("X-Restaurant-ID")); restaurantID != "" {
				ctx = WithRestaurantID(ctx, restaurantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
