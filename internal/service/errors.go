package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/middleware"
)

// toConnectError maps a domain error kind onto a Connect code. Errors that
// already carry a code pass through.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, apperr.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, apperr.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, apperr.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, apperr.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, apperr.ErrDependency):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// validate checks a request message's struct tags.
func validate(msg any) error {
	if err := apperr.Validate(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// callerID returns the authenticated user or an Unauthenticated error.
func callerID(ctx context.Context) (int64, error) {
	id := middleware.GetUserID(ctx)
	if id == 0 {
		return 0, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return id, nil
}
