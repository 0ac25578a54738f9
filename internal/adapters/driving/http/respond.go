package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed request
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"immutable snapshot"`
	Code  string `json:"code,omitempty" example:"IMMUTABLE_SNAPSHOT"`
}

// StatusResponse acknowledges requests that return nothing else
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// maxBodyBytes bounds request bodies. Record sets of long reports are the
// largest payloads.
const maxBodyBytes = 32 << 20

// decodeBody reads a JSON body into v. On failure it writes a 400 and
// returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
