package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/rest"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		"status":    "ok",
		"timestamp": c.clock.Now().UnixMilli(),
		"rooms":     len(c.roomService.RoomCodes()),
	})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	resp, err := c.roomService.GetRoom(r.Context(), code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) getVideo(w http.ResponseWriter, r *http.Request) {
	videoId, err := ytvideodata.ParseID(chi.URLParam(r, "video-id"))
	if err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}

	videoData, err := c.videoData.Get(r.Context(), videoId)
	if err != nil {
		if errors.Is(err, ytvideodata.ErrVideoNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "video not found"})
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get video data", "error", err)
		rest.WriteJSON(w, http.StatusBadGateway, rest.Envelope{"error": "failed to get video data"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": videoData})
}
