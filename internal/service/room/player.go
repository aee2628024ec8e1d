package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/internal/repository/room/inmemory"
)

// Control applies a control event to the room and broadcasts the result to
// every member, the sender included. A rejected event changes nothing.
func (s *service) Control(ctx context.Context, params *ControlParams) (ControlResponse, error) {
	var resp ControlResponse
	err := s.roomRepo.Apply(params.Code, func(e *inmemory.Entry) error {
		next, broadcast, err := domain.Reduce(e.State(), params.Type, params.Payload, s.nowMs())
		if err != nil {
			return err
		}

		e.SetState(next)
		resp.State = next

		if err := s.sender.Broadcast(ctx, e.ConnIDs(""), &gateway.Message{
			Type:    string(broadcast.Type),
			Payload: broadcast.Payload,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to broadcast control event", "error", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ControlResponse{}, fmt.Errorf("%w: %s", ErrRoomNotFound, params.Code)
		}

		return ControlResponse{}, fmt.Errorf("failed to apply control event: %w", err)
	}

	return resp, nil
}
