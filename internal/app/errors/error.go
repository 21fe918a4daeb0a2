package errors

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"
)

// Error codes for resource failures that clients branch on
const (
	CodeInsufficientFunds       = "INSUFFICIENT_FUNDS"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeInsufficientPoints      = "INSUFFICIENT_POINTS"
	CodeVoucherLimitReached     = "VOUCHER_LIMIT_REACHED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeAlreadyRefunded         = "ALREADY_REFUNDED"
	CodeAmountMismatch          = "AMOUNT_MISMATCH"
	CodeGatewayFailure          = "GATEWAY_FAILURE"
	CodeCheckoutInProgress      = "CHECKOUT_IN_PROGRESS"
)

type AppError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(statusCode int, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message ...string) *AppError {
	if len(message) > 0 {
		return NewAppError(http.StatusUnauthorized, message[0])
	}
	return NewAppError(http.StatusUnauthorized, "Unauthorized")
}

func NewForbiddenError(message ...string) *AppError {
	if len(message) > 0 {
		return NewAppError(http.StatusForbidden, message[0])
	}
	return NewAppError(http.StatusForbidden, "Forbidden")
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message)
}

// NewConflictError reports a resource failure such as insufficient funds or stock.
func NewConflictError(code, message string) *AppError {
	return &AppError{
		StatusCode: http.StatusConflict,
		Code:       code,
		Message:    message,
	}
}

func NewGatewayError(originalError error, message string) *AppError {
	if originalError != nil {
		logrus.WithField("cause", originalError.Error()).Warn(message)
	}
	return &AppError{
		StatusCode: http.StatusBadGateway,
		Code:       CodeGatewayFailure,
		Message:    message,
	}
}

func NewTooManyRequestsError(message string, limit int, resetAt int64) *AppError {
	return NewAppError(http.StatusTooManyRequests, fmt.Sprintf("%s (limit %d, resets at %d)", message, limit, resetAt))
}

func NewInternalServerError(originalError error, message string) *AppError {
	if originalError != nil {
		logrus.Errorf("[%s] %s", reflect.TypeOf(originalError).String(), originalError)
	}
	return NewAppError(http.StatusInternalServerError, message)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status of err, or 500 for foreign errors.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code of an AppError, or an empty string.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
