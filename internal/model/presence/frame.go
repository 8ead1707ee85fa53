package presence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEvent = errors.New("unsupported event")
	ErrMissingField = errors.New("missing required field")
)

// Frame is the JSON envelope exchanged over the socket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode turns a frame into a typed event, rejecting unknown names and
// payloads with empty identifiers.
func (f Frame) Decode() (Event, error) {
	switch f.Event {
	case EventInstitutionConnected:
		var ev InstitutionConnected
		if err := unmarshalData(f, &ev); err != nil {
			return nil, err
		}
		if err := require(f.Event, "institutionId", ev.InstitutionID); err != nil {
			return nil, err
		}
		return ev, nil
	case EventUserConnected:
		var ev UserConnected
		if err := unmarshalData(f, &ev); err != nil {
			return nil, err
		}
		if err := require(f.Event, "userId", ev.UserID); err != nil {
			return nil, err
		}
		if err := require(f.Event, "institutionId", ev.InstitutionID); err != nil {
			return nil, err
		}
		return ev, nil
	case EventHelpAccepted:
		var ev HelpAccepted
		if err := unmarshalData(f, &ev); err != nil {
			return nil, err
		}
		if err := require(f.Event, "userId", ev.UserID); err != nil {
			return nil, err
		}
		if err := require(f.Event, "institutionId", ev.InstitutionID); err != nil {
			return nil, err
		}
		return ev, nil
	case EventClientDisconnected:
		var ev Disconnected
		if err := unmarshalData(f, &ev); err != nil {
			return nil, err
		}
		if err := require(f.Event, "clientId", ev.ClientID); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

func unmarshalData(f Frame, target any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: %w: data", f.Event, ErrMissingField)
	}
	if err := json.Unmarshal(f.Data, target); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", f.Event, err)
	}
	return nil
}

func require(event, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w: %s", event, ErrMissingField, field)
	}
	return nil
}
