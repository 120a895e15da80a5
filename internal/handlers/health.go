package handlers

import (
	"context"
	"net/http"
)

// Pinger is the slice of the store used by the liveness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the storage backend is reachable.
func Health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
