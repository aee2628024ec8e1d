package room

import (
	"context"
)

func (s *service) GetRoom(_ context.Context, code string) (GetRoomResponse, error) {
	r, ok := s.roomRepo.Get(code)
	if !ok {
		return GetRoomResponse{}, ErrRoomNotFound
	}

	return GetRoomResponse{
		Code:    r.Code,
		State:   r.State,
		Members: r.Members,
	}, nil
}
