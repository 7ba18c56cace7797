package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// AppError is the error value every layer returns once the cause has been
// logged. It carries everything the HTTP boundary needs to answer.
type AppError struct {
	HTTPStatusCode int
	Status         string
	Message        string
	Errors         []string
}

func (e *AppError) Error() string {
	return e.Message
}

// List returns the detail list for the response body, falling back to the message.
func (e *AppError) List() []string {
	if len(e.Errors) > 0 {
		return e.Errors
	}

	return []string{e.Message}
}

func New(httpStatusCode int, status string, message string) error {
	return &AppError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

func NewWithErrors(httpStatusCode int, status string, message string, errs []string) error {
	return &AppError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
		Errors:         errs,
	}
}

// Destruct unwraps err into an AppError. Anything that is not an AppError is
// reported as an internal server error without leaking its text.
func Destruct(err error) *AppError {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae
	}

	return &AppError{
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         status.INTERNAL_SERVER_ERROR,
		Message:        "an error occurred while processing the request",
	}
}

// HasStatus reports whether err is an AppError with the given status code.
func HasStatus(err error, s string) bool {
	var ae *AppError
	if !stderrors.As(err, &ae) {
		return false
	}

	return ae.Status == s
}
