package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/uvcnode/internal/input"
)

// inputError maps input package errors onto HTTP status codes.
func inputError(msg string, err error) error {
	var validation *input.ValidationError
	var device *input.DeviceCommandError

	switch {
	case errors.As(err, &validation), errors.Is(err, input.ErrUnknownGroup):
		return huma.Error400BadRequest(msg, err)
	case errors.Is(err, input.ErrControlNotFound):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, input.ErrNotRunning), errors.Is(err, input.ErrSlotClosed):
		return huma.Error409Conflict(msg, err)
	case errors.As(err, &device):
		return huma.Error502BadGateway(msg, err)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
