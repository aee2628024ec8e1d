package room

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchsync/internal/domain"
	"github.com/sharetube/watchsync/internal/gateway"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/internal/repository/room/inmemory"
)

func (s *service) guestName() string {
	return "Guest" + strconv.FormatInt(s.nowMs(), 10)
}

// Join adds the connection to the room, creating the room on first join. The
// joiner gets a SNAPSHOT and everyone else a PRESENCE JOIN, both enqueued
// under the room lock so no control broadcast can fall between the snapshot
// and the joiner's membership.
func (s *service) Join(ctx context.Context, params *JoinParams) (JoinResponse, error) {
	if err := validation.Validate(params.Code, RoomCodeRule...); err != nil {
		return JoinResponse{}, fmt.Errorf("%w: code: %w", ErrInvalidParams, err)
	}
	if err := validation.Validate(params.Username, UsernameRule...); err != nil {
		return JoinResponse{}, fmt.Errorf("%w: username: %w", ErrInvalidParams, err)
	}

	username := params.Username
	if username == "" {
		username = s.guestName()
	}

	member := domain.Member{
		ConnID:   params.ConnID,
		Username: username,
		RoomCode: params.Code,
	}

	var resp JoinResponse
	if err := s.roomRepo.ApplyOrCreate(params.Code, func(e *inmemory.Entry) error {
		e.AddMember(member)
		resp.State = e.State()
		resp.Members = e.Members()

		if err := s.sender.Send(ctx, params.ConnID, &gateway.Message{
			Type:    domain.MessageSnapshot,
			Payload: resp.State,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to send snapshot", "error", err)
		}

		return s.sender.Broadcast(ctx, e.ConnIDs(params.ConnID), &gateway.Message{
			Type: domain.MessagePresence,
			Payload: domain.Presence{
				Type:     domain.PresenceJoin,
				Username: username,
			},
		})
	}); err != nil {
		return JoinResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	resp.Member = member

	return resp, nil
}

// Disconnect removes the connection from every room it is a member of and
// tells the remaining members. Each room is checked under its own lock.
func (s *service) Disconnect(ctx context.Context, connID string) (DisconnectResponse, error) {
	codes := s.roomRepo.Codes()
	left := make([]string, 0)

	for _, code := range codes {
		if err := s.roomRepo.Apply(code, func(e *inmemory.Entry) error {
			member, err := e.RemoveMember(connID)
			if err != nil {
				return err
			}

			return s.sender.Broadcast(ctx, e.ConnIDs(""), &gateway.Message{
				Type: domain.MessagePresence,
				Payload: domain.Presence{
					Type:     domain.PresenceLeave,
					Username: member.Username,
				},
			})
		}); err != nil {
			if !errors.Is(err, room.ErrMemberNotFound) {
				s.logger.DebugContext(ctx, "failed to leave room", "room_code", code, "error", err)
			}
			continue
		}

		left = append(left, code)
	}
	slices.Sort(left)

	return DisconnectResponse{LeftRooms: left}, nil
}
