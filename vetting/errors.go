package vetting

import (
	"errors"
	"net/http"
)

// Stable error codes returned to API clients.
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeBatchTooLarge         = "BATCH_TOO_LARGE"
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"
	CodeScoringFailed         = "SCORING_FAILED"
)

// ErrClassifierUnavailable is returned when no model is loaded. The service
// never falls back to a score without one.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Error is an analysis failure with an API error code and HTTP status.
type Error struct {
	Code   string
	Status int
	Err    error
}

func (e *Error) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// ErrorBody is the JSON shape of a failed request.
type ErrorBody struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

func invalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Status: http.StatusBadRequest, Err: errors.New(msg)}
}

// errorBody maps any error onto its API representation.
func errorBody(err error) (int, ErrorBody) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, ErrorBody{ErrorCode: e.Code, Error: e.Err.Error()}
	}
	return http.StatusInternalServerError, ErrorBody{ErrorCode: CodeScoringFailed, Error: err.Error()}
}
