package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
)

const (
	fieldEvent = "event"
	fieldData  = "data"
)

// Inbound is a decoded frame whose payload has not been bound yet.
type Inbound struct {
	Event string
	Data  json.RawMessage
}

// Bind decodes the payload into v. A frame without data binds to the zero value.
func (in Inbound) Bind(v any) error {
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", common.ErrMalformedFrame, in.Event, err)
	}
	return nil
}

// Encode renders an outbound event as a frame.
func Encode(out Outbound) (*structpb.Struct, error) {
	data, err := toValue(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.Event, err)
	}
	return structpb.NewStruct(map[string]any{
		fieldEvent: out.Event,
		fieldData:  data,
	})
}

// Decode splits a frame into its event name and raw payload. It works for
// frames in either direction.
func Decode(frame *structpb.Struct) (Inbound, error) {
	if frame == nil {
		return Inbound{}, fmt.Errorf("%w: empty frame", common.ErrMalformedFrame)
	}
	ev, ok := frame.GetFields()[fieldEvent]
	if !ok {
		return Inbound{}, fmt.Errorf("%w: missing event", common.ErrMalformedFrame)
	}
	name, ok := ev.GetKind().(*structpb.Value_StringValue)
	if !ok || name.StringValue == "" {
		return Inbound{}, fmt.Errorf("%w: event must be a non-empty string", common.ErrMalformedFrame)
	}

	in := Inbound{Event: name.StringValue}
	if data, ok := frame.GetFields()[fieldData]; ok {
		raw, err := json.Marshal(data.AsInterface())
		if err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", common.ErrMalformedFrame, err)
		}
		in.Data = raw
	}
	return in, nil
}

// NewFrame builds an inbound frame from a payload. Clients use it.
func NewFrame(event string, payload any) (*structpb.Struct, error) {
	return Encode(Outbound{Event: event, Payload: payload})
}

// toValue converts a payload into the JSON-like tree structpb accepts.
func toValue(payload any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
