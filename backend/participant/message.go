package participant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adwski/watchparty/backend/model"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("Invalid data")
)

// Message is an inbound message that passed validation.
// The set of implementations is closed, see Dispatch.
type Message interface {
	Type() string
}

type (
	CreateRoom struct{}
	JoinRoom   struct{ RoomID string }
	Leave      struct{}
	// SetURL carries nil when the owner clears the url.
	SetURL    struct{ URL *string }
	Chat      struct{ Text string }
	Buffering struct{ Value bool }
	Paused    struct{ Value bool }
	Timestamp struct{ Value float64 }
	Avatar    struct{ Name string }
	Sound     struct{ Name string }
)

func (CreateRoom) Type() string { return model.MessageTypeCreateRoom }
func (JoinRoom) Type() string   { return model.MessageTypeJoinRoom }
func (Leave) Type() string      { return model.MessageTypeLeave }
func (SetURL) Type() string     { return model.MessageTypeURL }
func (Chat) Type() string       { return model.MessageTypeChat }
func (Buffering) Type() string  { return model.MessageTypeBuffering }
func (Paused) Type() string     { return model.MessageTypePaused }
func (Timestamp) Type() string  { return model.MessageTypeTimestamp }
func (Avatar) Type() string     { return model.MessageTypeAvatar }
func (Sound) Type() string      { return model.MessageTypeSound }

// ParseMessage decodes a raw frame into a typed message.
//
// Returned errors wrap ErrMalformedMessage when the frame is not an envelope
// with a string type, ErrUnknownMessageType when the type is not recognized,
// and ErrInvalidPayload when data does not match the type.
func ParseMessage(raw []byte) (Message, error) {
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Join(ErrMalformedMessage, err)
	}
	typ, ok := decode[string](env.Type)
	if !ok {
		return nil, ErrMalformedMessage
	}

	var (
		msg   Message
		valid = true
	)
	switch typ {
	case model.MessageTypeCreateRoom:
		msg = CreateRoom{}
	case model.MessageTypeLeave:
		msg = Leave{}
	case model.MessageTypeJoinRoom:
		var id string
		id, valid = decode[string](env.Data)
		msg = JoinRoom{RoomID: id}
	case model.MessageTypeURL:
		if isNull(env.Data) {
			msg = SetURL{}
			break
		}
		var url string
		url, valid = decode[string](env.Data)
		msg = SetURL{URL: &url}
	case model.MessageTypeChat:
		var text string
		text, valid = decode[string](env.Data)
		msg = Chat{Text: text}
	case model.MessageTypeBuffering:
		var v bool
		v, valid = decode[bool](env.Data)
		msg = Buffering{Value: v}
	case model.MessageTypePaused:
		var v bool
		v, valid = decode[bool](env.Data)
		msg = Paused{Value: v}
	case model.MessageTypeTimestamp:
		var v float64
		v, valid = decode[float64](env.Data)
		valid = valid && v >= 0
		msg = Timestamp{Value: v}
	case model.MessageTypeAvatar:
		var name string
		name, valid = decode[string](env.Data)
		msg = Avatar{Name: name}
	case model.MessageTypeSound:
		var name string
		name, valid = decode[string](env.Data)
		msg = Sound{Name: name}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, typ)
	}
	if !valid {
		return nil, fmt.Errorf("%w for '%s'", ErrInvalidPayload, typ)
	}
	return msg, nil
}

func decode[T any](data json.RawMessage) (T, bool) {
	var v T
	if isNull(data) {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

func isNull(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
