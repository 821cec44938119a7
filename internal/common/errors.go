package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeDatabase   = "DATABASE_ERROR"
)

// AppError is an error with a stable code and a message safe to show a client.
// Cause keeps the sentinel (and any underlying error) for errors.Is.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

var (
	ErrNotFound     = errors.New("bill not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("record failed validation")
	ErrDatabase     = errors.New("bill storage failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// DatabaseError wraps a storage failure for op. The result matches both ErrDatabase
// and err with errors.Is.
func DatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeDatabase, op, fmt.Errorf("%w: %w", ErrDatabase, err))
}

// gRPC status helpers.

func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InternalErrorf(format string, args ...any) error {
	return InternalError(fmt.Sprintf(format, args...))
}
