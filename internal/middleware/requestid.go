// Package middleware holds the HTTP middleware shared by the relay's
// servers.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id between the relay and its
// internal callers.
const HeaderRequestID = "X-Request-ID"

type contextKey string

const requestIDKey = contextKey("relay-request-id")

// RequestID tags every request with a correlation id and echoes it on the
// response. A caller-supplied id is honored only when it parses as a UUID;
// anything else is replaced, so vendor-controlled junk never reaches log
// fields or response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request's correlation id, or "" when the request
// did not pass through the middleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
