package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrUnknownEvent     = errors.New("unknown control event")
	ErrMalformedPayload = errors.New("malformed control payload")
	ErrNoVideo          = errors.New("no video loaded")
)

type EventType string

const (
	EventSetVideo EventType = "SET_VIDEO"
	EventPlay     EventType = "PLAY"
	EventPause    EventType = "PAUSE"
	EventSeek     EventType = "SEEK"
	EventRate     EventType = "RATE"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSetVideo, EventPlay, EventPause, EventSeek, EventRate:
		return true
	default:
		return false
	}
}

// ControlFields are the fields of a control payload the reducer reads. Nil
// means the client did not send the field.
type ControlFields struct {
	VideoID  *string  `json:"videoId"`
	Position *float64 `json:"position"`
	Rate     *float64 `json:"rate"`
}

var finiteRule = validation.By(func(value interface{}) error {
	f, ok := value.(*float64)
	if !ok || f == nil {
		return nil
	}
	if math.IsNaN(*f) || math.IsInf(*f, 0) {
		return errors.New("must be a finite number")
	}
	return nil
})

// ozzo threshold rules skip zero values, so a zero rate needs its own check.
var positiveRule = validation.By(func(value interface{}) error {
	f, ok := value.(*float64)
	if !ok || f == nil {
		return nil
	}
	if *f <= 0 {
		return errors.New("must be greater than 0")
	}
	return nil
})

var PositionRule = []validation.Rule{
	validation.NotNil,
	finiteRule,
	validation.Min(0.0),
}

var RateRule = []validation.Rule{
	validation.NotNil,
	finiteRule,
	positiveRule,
}

var VideoIDRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
}

func (f ControlFields) validate(eventType EventType) error {
	switch eventType {
	case EventSetVideo:
		return validation.ValidateStruct(&f,
			validation.Field(&f.VideoID, VideoIDRule...),
		)
	case EventPlay, EventPause, EventSeek:
		return validation.ValidateStruct(&f,
			validation.Field(&f.Position, PositionRule...),
		)
	case EventRate:
		return validation.ValidateStruct(&f,
			validation.Field(&f.Rate, RateRule...),
		)
	default:
		return ErrUnknownEvent
	}
}

// Broadcast is what every member of the room receives for an accepted
// control event: the client's payload plus the server stamp and sequence.
type Broadcast struct {
	Type    EventType
	Payload map[string]any
}

func decodeControlPayload(payload json.RawMessage) (ControlFields, map[string]any, error) {
	var fields ControlFields
	raw := make(map[string]any)
	if len(payload) == 0 {
		return fields, raw, nil
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return ControlFields{}, nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	if err := json.Unmarshal(payload, &fields); err != nil {
		return ControlFields{}, nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return fields, raw, nil
}

// Reduce applies one control event to state. It is pure: the caller supplies
// the clock reading and persists the returned state. On error the returned
// state is the input state unchanged.
func Reduce(state PlaybackState, eventType EventType, payload json.RawMessage, nowMs int64) (PlaybackState, Broadcast, error) {
	if !eventType.Valid() {
		return state, Broadcast{}, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	fields, raw, err := decodeControlPayload(payload)
	if err != nil {
		return state, Broadcast{}, err
	}

	if err := fields.validate(eventType); err != nil {
		return state, Broadcast{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	next := state
	switch eventType {
	case EventSetVideo:
		next.VideoID = *fields.VideoID
		next.PlayerState = PlayerStateCued
	case EventPlay:
		if state.VideoID == "" {
			return state, Broadcast{}, ErrNoVideo
		}
		next.PlayerState = PlayerStatePlaying
		next.Position = *fields.Position
	case EventPause:
		if state.VideoID == "" {
			return state, Broadcast{}, ErrNoVideo
		}
		next.PlayerState = PlayerStatePaused
		next.Position = *fields.Position
	case EventSeek:
		next.Position = *fields.Position
	case EventRate:
		next.Rate = *fields.Rate
	}

	// stamps never go backwards even if the wall clock does
	next.StampMs = max(nowMs, state.StampMs)
	next.Seq = state.Seq + 1

	raw["at"] = next.StampMs
	raw["seq"] = next.Seq

	return next, Broadcast{Type: eventType, Payload: raw}, nil
}
