package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/pkg/models"
)

// Wire names of the command variants.
const (
	tagNotify    = "Notify"
	tagRemove    = "Remove"
	tagRemoveAll = "RemoveAll"
	tagState     = "State"
	tagChanged   = "Changed"
)

// MarshalJSON renders the command in its externally tagged form.
func (c Command) MarshalJSON() ([]byte, error) {
	monitors := c.Monitors
	if monitors == nil {
		monitors = models.Topology{}
	}

	switch c.Kind {
	case KindNotify:
		return json.Marshal(map[string]models.Topology{tagNotify: monitors})
	case KindRemove:
		ids := c.IDs
		if ids == nil {
			ids = []models.ID{}
		}
		return json.Marshal(map[string][]models.ID{tagRemove: ids})
	case KindRemoveAll:
		return json.Marshal(tagRemoveAll)
	case KindRequestState:
		return json.Marshal(tagState)
	case KindReplyState:
		return json.Marshal(map[string]models.Topology{tagState: monitors})
	case KindChanged:
		return json.Marshal(map[string]models.Topology{tagChanged: monitors})
	default:
		return nil, fmt.Errorf("cannot encode command of kind %s", c.Kind)
	}
}

// Encode serializes c and appends the EOF sentinel, producing one frame.
func Encode(c Command) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return append(data, EOF), nil
}

// Side selects which command set a decoder accepts.
type Side int

const (
	// ServerSide accepts driver commands and state requests.
	ServerSide Side = iota
	// ClientSide accepts state replies and change events.
	ClientSide
)

func (s Side) String() string {
	if s == ServerSide {
		return "server"
	}
	return "client"
}

type variantDecoder func(raw json.RawMessage) (Command, error)

// shape is one accepted JSON form. Unit variants arrive as a bare string or
// as an object whose single value is null.
type shape struct {
	tag    string
	unit   Kind
	decode variantDecoder
}

// Shapes are tried in order. Driver commands come before requests on the
// server side, and replies come before events on the client side.
var (
	serverShapes = []shape{
		{tag: tagNotify, decode: topologyVariant(KindNotify)},
		{tag: tagRemove, decode: removeVariant},
		{tag: tagRemoveAll, unit: KindRemoveAll},
		{tag: tagState, unit: KindRequestState},
	}
	clientShapes = []shape{
		{tag: tagState, decode: topologyVariant(KindReplyState)},
		{tag: tagChanged, decode: topologyVariant(KindChanged)},
	}
)

// DecodeServerCommand parses a payload received by the driver.
func DecodeServerCommand(data []byte) (Command, error) {
	return decode(data, serverShapes)
}

// DecodeClientCommand parses a payload received by a client.
func DecodeClientCommand(data []byte) (Command, error) {
	return decode(data, clientShapes)
}

// Decode parses a payload for the given side.
func Decode(side Side, data []byte) (Command, error) {
	if side == ServerSide {
		return DecodeServerCommand(data)
	}
	return DecodeClientCommand(data)
}

func decode(data []byte, shapes []shape) (Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Command{}, errors.InvalidFrame(fmt.Errorf("empty payload"))
	}

	switch data[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return Command{}, errors.InvalidFrame(err)
		}
		for _, s := range shapes {
			if s.unit != 0 && s.tag == tag {
				return Command{Kind: s.unit}, nil
			}
		}
		return Command{}, errors.InvalidFrame(fmt.Errorf("unknown unit variant %q", tag))

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return Command{}, errors.InvalidFrame(err)
		}
		if len(obj) != 1 {
			return Command{}, errors.InvalidFrame(fmt.Errorf("expected exactly one variant key, got %d", len(obj)))
		}
		for _, s := range shapes {
			raw, ok := obj[s.tag]
			if !ok {
				continue
			}
			if s.unit != 0 {
				if !isNull(raw) {
					continue
				}
				return Command{Kind: s.unit}, nil
			}
			if cmd, err := s.decode(raw); err == nil {
				return cmd, nil
			}
		}
		return Command{}, errors.InvalidFrame(fmt.Errorf("payload matches no command variant"))

	default:
		return Command{}, errors.InvalidFrame(fmt.Errorf("unexpected payload starting with %q", data[0]))
	}
}

func topologyVariant(kind Kind) variantDecoder {
	return func(raw json.RawMessage) (Command, error) {
		if !isArray(raw) {
			return Command{}, fmt.Errorf("%s expects an array", kind)
		}
		var monitors models.Topology
		if err := json.Unmarshal(raw, &monitors); err != nil {
			return Command{}, err
		}
		if monitors == nil {
			monitors = models.Topology{}
		}
		return Command{Kind: kind, Monitors: monitors}, nil
	}
}

func removeVariant(raw json.RawMessage) (Command, error) {
	if !isArray(raw) {
		return Command{}, fmt.Errorf("remove expects an array")
	}
	var ids []models.ID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return Command{}, err
	}
	if ids == nil {
		ids = []models.ID{}
	}
	return Command{Kind: KindRemove, IDs: ids}, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
