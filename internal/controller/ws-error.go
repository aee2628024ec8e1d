package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/validator"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

const (
	ErrCodeMalformedPayload = "MALFORMED_PAYLOAD"
	ErrCodeUnknownEvent     = "UNKNOWN_EVENT"
	ErrCodeNoVideo          = "NO_VIDEO"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnknownType      = "UNKNOWN_TYPE"
	ErrCodeInternal         = "INTERNAL"
)

type ErrorOutput struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// errorCode maps a handler error to the code reported to the client. Events
// for rooms that do not exist are dropped without a reply.
func errorCode(err error) (code string, reply bool) {
	var validationErrs validator.Errors
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "", false
	case errors.Is(err, domain.ErrMalformedPayload):
		return ErrCodeMalformedPayload, true
	case errors.Is(err, domain.ErrUnknownEvent):
		return ErrCodeUnknownEvent, true
	case errors.Is(err, domain.ErrNoVideo):
		return ErrCodeNoVideo, true
	case errors.Is(err, wsrouter.ErrUnknownType):
		return ErrCodeUnknownType, true
	case errors.As(err, &validationErrs),
		errors.Is(err, room.ErrInvalidParams),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrInvalidMessage):
		return ErrCodeInvalidInput, true
	default:
		return ErrCodeInternal, true
	}
}

func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	code, reply := errorCode(err)
	if !reply {
		c.logger.DebugContext(ctx, "message ignored", "error", err)
		return
	}

	if code == ErrCodeInternal {
		c.logger.ErrorContext(ctx, "failed to handle message", "error", err)
	} else {
		c.logger.InfoContext(ctx, "message rejected", "code", code, "error", err)
	}

	if err := c.gateway.Send(ctx, c.getConnIDFromCtx(ctx), &gateway.Message{
		Type: domain.MessageError,
		Payload: ErrorOutput{
			Message: err.Error(),
			Code:    code,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to send error", "error", err)
	}
}
