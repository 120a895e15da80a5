package handlers

import (
	"encoding/json"
	"net/http"
)

// problem is the error envelope returned to clients: a status, a
// human-readable detail, and optional field-level reasons for validation
// and domain failures.
type problem struct {
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeProblem(w http.ResponseWriter, status int, detail string, fieldErrors map[string][]string) {
	writeJSON(w, status, problem{Status: status, Detail: detail, Errors: fieldErrors})
}
