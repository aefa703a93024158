package httpadapter

import (
	"errors"
	"net/http"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrValidation), domain.IsKind(err, domain.ErrVectorization):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCooldown):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrLockContention):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Needed    int    `json:"needed,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorBody keeps internal detail out of 5xx responses.
func errorBody(err error, status int, requestID string) errorResponse {
	resp := errorResponse{RequestID: requestID}

	var insufficient *domain.InsufficientContentError
	switch {
	case errors.As(err, &insufficient):
		resp.Error = insufficient.Error()
		resp.Needed = insufficient.Needed - insufficient.Have
	case status >= http.StatusInternalServerError:
		resp.Error = http.StatusText(status)
	default:
		resp.Error = err.Error()
	}
	return resp
}
