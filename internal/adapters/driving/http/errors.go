package http

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// errorStatus maps a domain sentinel to its HTTP status and error code.
// Order matters: the first match wins.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNodeNotFound, http.StatusNotFound, "NODE_NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrAlreadyIngested, http.StatusConflict, "ALREADY_INGESTED"},
	{domain.ErrDuplicateStage, http.StatusConflict, "DUPLICATE_STAGE"},
	{domain.ErrOutOfOrderAdvance, http.StatusConflict, "OUT_OF_ORDER_ADVANCE"},
	{domain.ErrStructuralImmutability, http.StatusConflict, "STRUCTURAL_IMMUTABILITY"},
	{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{domain.ErrTaskNotPending, http.StatusConflict, "TASK_NOT_PENDING"},
	{domain.ErrInvalidTreeShape, http.StatusUnprocessableEntity, "INVALID_TREE_SHAPE"},
	{domain.ErrInvalidDedup, http.StatusUnprocessableEntity, "INVALID_DEDUP"},
	{domain.ErrDedupCycle, http.StatusUnprocessableEntity, "DEDUP_CYCLE"},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity, "INVALID_INPUT"},
	{domain.ErrImmutableSnapshot, http.StatusLocked, "IMMUTABLE_SNAPSHOT"},
	{domain.ErrAdvanceInProgress, http.StatusLocked, "ADVANCE_IN_PROGRESS"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	{domain.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
	{domain.ErrSessionNotFound, http.StatusUnauthorized, "SESSION_NOT_FOUND"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
}

// statusFor returns the status and code for err, or 500 for unknown errors.
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// writeServiceError writes err as an ErrorResponse. Unknown errors are logged
// and their message is not exposed.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
