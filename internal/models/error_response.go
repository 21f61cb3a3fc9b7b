package models

import "github.com/shopspring/decimal"

type ErrorKind string // Error taxonomy surfaced to callers

const (
	KindValidation     ErrorKind = "validation"
	KindEligibility    ErrorKind = "eligibility"
	KindTiming         ErrorKind = "timing"
	KindConcurrency    ErrorKind = "concurrency"
	KindState          ErrorKind = "state"
	KindIncompleteData ErrorKind = "incomplete_data"
	KindNotFound       ErrorKind = "not_found"
	KindInternal       ErrorKind = "internal"
)

// ErrorResponse describes an error with an HTTP status, a kind and a message.
type ErrorResponse struct {
	StatusCode    int              `json:"-"`
	Kind          ErrorKind        `json:"kind"`
	Message       string           `json:"reason"`
	CurrentLowest *decimal.Decimal `json:"currentLowest,omitempty"`
}

// NewErrorResponse creates a new error with a status code, kind and message.
func NewErrorResponse(statusCode int, kind ErrorKind, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message}
}

// NewNotLowerAnymore creates the concurrency rejection returned when a bid
// lost the race or was not below the floor; lowest is the value the caller
// must now beat.
func NewNotLowerAnymore(statusCode int, lowest decimal.Decimal) *ErrorResponse {
	return &ErrorResponse{
		StatusCode:    statusCode,
		Kind:          KindConcurrency,
		Message:       "bid is not lower than the current lowest anymore",
		CurrentLowest: &lowest,
	}
}

// Implementation of Error() to satisfy the error interface.
func (e *ErrorResponse) Error() string {
	return e.Message
}
