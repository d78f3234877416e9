// Package server provides the HTTP REST API for the risk sentinel.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/risk-sentinel/internal/job"
	"github.com/jonathan/risk-sentinel/internal/oracle"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var conflict *job.ConflictError
	var notFound *job.NotFoundError
	var notRunning *job.NotRunningError
	var timeout *oracle.TimeoutError
	var unreachable *oracle.UnreachableError

	switch {
	case errors.As(err, &conflict), errors.As(err, &notRunning):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &unreachable):
		return http.StatusBadGateway
	default:
		var validation *ErrValidation
		if errors.As(err, &validation) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
