package model

import "encoding/json"

// Inbound message types sent by clients.
const (
	MessageTypeCreateRoom = "create room"
	MessageTypeJoinRoom   = "join room"
	MessageTypeLeave      = "leave"
	MessageTypeURL        = "url"
	MessageTypeChat       = "chat"
	MessageTypeBuffering  = "buffering"
	MessageTypePaused     = "paused"
	MessageTypeTimestamp  = "timestamp"
	MessageTypeAvatar     = "avatar"
	MessageTypeSound      = "sound"
)

// Outbound event types that sent by server.
const (
	EventTypeRoomID    = "room ID"
	EventTypeURL       = "url"
	EventTypeChat      = "chat"
	EventTypeBuffering = "buffering"
	EventTypePaused    = "paused"
	EventTypeTimestamp = "timestamp"
	EventTypeError     = "error"
)

// SystemSender is the chat sender name used for server generated messages.
const SystemSender = "system"

// Envelope is the raw inbound message as it arrives from a connection.
// Type is kept raw so that non-string types can be told apart from
// missing ones.
type Envelope struct {
	Type json.RawMessage `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is an outbound message. Data is always serialized, so a nil Data
// is delivered as null.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type URLPayload struct {
	Room string  `json:"room"`
	URL  *string `json:"url"`
}

type ChatPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// RoomInfo is a read-only view of a room.
type RoomInfo struct {
	ID        string   `json:"room_id"`
	Owner     string   `json:"owner"`
	Members   []string `json:"members"`
	URL       *string  `json:"url"`
	Timestamp float64  `json:"timestamp"`
	Paused    bool     `json:"paused"`
	Buffering bool     `json:"buffering"`
}

type Stats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
}

// Wire connects transport with the session engine.
// RX carries raw inbound frames, TX carries outbound events.
type Wire struct {
	RX chan []byte
	TX chan Event
}

func NewWire(txSize int) Wire {
	return Wire{
		RX: make(chan []byte),
		TX: make(chan Event, txSize),
	}
}

// IDAlphabet is the symbol set of room identifiers and placeholder names.
const IDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
