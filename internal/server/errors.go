package server

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/gst-bills/internal/bills"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
)

// classify maps an application error onto a gRPC code and a client-facing message.
func classify(err error) (codes.Code, string) {
	var (
		short   *pipeline.InsufficientTextError
		service *llm.ServiceError
		parse   *llm.ParseError
		appErr  *common.AppError
	)
	switch {
	case errors.As(err, &short):
		return codes.FailedPrecondition, short.Error()
	case errors.Is(err, pipeline.ErrInvalidSource),
		errors.Is(err, bills.ErrInvalidEdit),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidInput):
		if errors.As(err, &appErr) {
			return codes.InvalidArgument, appErr.Message
		}
		return codes.InvalidArgument, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return codes.NotFound, err.Error()
	case errors.As(err, &service):
		// Upstream status and body are passed through as they came.
		if service.Status == http.StatusTooManyRequests {
			return codes.ResourceExhausted, service.Error()
		}
		return codes.Unavailable, service.Error()
	case errors.Is(err, common.ErrDatabase):
		if errors.As(err, &appErr) {
			return codes.Internal, common.ErrDatabase.Error() + ": " + appErr.Message
		}
		return codes.Internal, common.ErrDatabase.Error()
	case errors.As(err, &parse):
		return codes.Internal, "could not read the extraction reply"
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return codes.Canceled, "request canceled"
	}
	return codes.Internal, "internal error"
}

// toStatus converts an application error to a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code, msg := classify(err)
	switch code {
	case codes.InvalidArgument:
		return common.InvalidArgumentError(msg)
	case codes.NotFound:
		return common.NotFoundError(msg)
	case codes.Internal:
		return common.InternalError(msg)
	}
	return status.Error(code, msg)
}

var httpStatusByCode = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusUnprocessableEntity,
	codes.NotFound:           http.StatusNotFound,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Unavailable:        http.StatusBadGateway,
	codes.DeadlineExceeded:   http.StatusGatewayTimeout,
	codes.Canceled:           499,
}

// httpStatus converts an application error to an HTTP status and message.
func httpStatus(err error) (int, string) {
	code, msg := classify(err)
	if s, ok := httpStatusByCode[code]; ok {
		return s, msg
	}
	return http.StatusInternalServerError, msg
}
