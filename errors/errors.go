package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrSubmissionQueueFull = fmt.Errorf("submission queue is full")
	ErrEmptyContent        = fmt.Errorf("message content is empty")
	ErrSessionClosed       = fmt.Errorf("session is closed")
	ErrSlowConsumer        = fmt.Errorf("session send buffer is full")
	ErrDeliveryPanic       = fmt.Errorf("member delivery panicked")

	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrUserAlreadyExists   = fmt.Errorf("a user with this email already exists")
	ErrInvalidCredentials  = fmt.Errorf("no active account found with the given credentials")
	ErrAccountNotVerified  = fmt.Errorf("account not verified, please verify your email with the OTP sent to you")
	ErrInvalidOTP          = fmt.Errorf("invalid OTP")
	ErrExpiredOTP          = fmt.Errorf("OTP has expired, please request a new one")
	ErrInvalidToken        = fmt.Errorf("invalid or expired token")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrValidation          = fmt.Errorf("validation failed")
	ErrMissingLocation     = fmt.Errorf("your profile does not have location data, please update latitude/longitude")
	ErrForbidden           = fmt.Errorf("you do not have permission to perform this action")
	ErrMessageStoreFailure = fmt.Errorf("message store failure")
)

// MapToHTTPStatus translates a service error into the status code answered to clients.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists),
		errors.Is(err, ErrAccountNotVerified),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrExpiredOTP),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrMissingLocation),
		errors.Is(err, ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
