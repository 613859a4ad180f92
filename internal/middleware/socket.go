package middleware

import (
	"context"
	"net/http"
	"strings"
)

// SocketIDHeader names the realtime connection that issued a request. Events
// caused by the request are not echoed back to that connection.
const SocketIDHeader = "X-Socket-Id"

const socketIDKey contextKey = "huddle_socket_id"

const maxSocketIDLength = 64

func SocketID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SocketIDHeader))
		if id != "" && len(id) <= maxSocketIDLength {
			r = r.WithContext(context.WithValue(r.Context(), socketIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// SocketIDFromContext returns the caller's socket id, or "".
func SocketIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(socketIDKey).(string)
	return id
}
