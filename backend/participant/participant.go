package participant

import (
	"errors"
	"slices"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

type (
	// Outbox delivers events to a connection endpoint.
	Outbox interface {
		Send(endpoint string, ev model.Event) bool
	}

	// Handler receives room scoped messages of a participant.
	Handler interface {
		CreateRoom(p *Participant)
		JoinRoom(p *Participant, roomID string)
		Leave(p *Participant)
		SetURL(p *Participant, url *string)
		Chat(p *Participant, text string)
		Buffering(p *Participant, isBuffering bool)
		Paused(p *Participant, paused bool)
		Timestamp(p *Participant, ts float64)
	}

	// Participant is the server side representative of a single connection.
	Participant struct {
		outbox   Outbox
		handlers []Handler
		logger   zerolog.Logger
		id       string
		name     string
	}
)

func (p *Participant) ID() string {
	return p.id
}

// Name is the display identity of the participant.
func (p *Participant) Name() string {
	return p.name
}

// AddHandler registers h unless it is already registered.
func (p *Participant) AddHandler(h Handler) {
	if slices.Contains(p.handlers, h) {
		return
	}
	p.handlers = append(p.handlers, h)
}

func (p *Participant) RemoveHandler(h Handler) {
	if i := slices.Index(p.handlers, h); i >= 0 {
		p.handlers = slices.Delete(p.handlers, i, i+1)
	}
}

func (p *Participant) Send(eventType string, data any) {
	p.outbox.Send(p.id, model.Event{Type: eventType, Data: data})
}

func (p *Participant) Error(err error) {
	p.Send(model.EventTypeError, err.Error())
}

// Handle parses a raw inbound frame and dispatches it.
// Frames with invalid payload are answered with an error event,
// everything else that fails to parse is only logged.
func (p *Participant) Handle(raw []byte) {
	msg, err := ParseMessage(raw)
	switch {
	case err == nil:
		p.Dispatch(msg)
	case errors.Is(err, ErrInvalidPayload):
		p.logger.Debug().Err(err).Msg("invalid payload")
		p.Error(err)
	case errors.Is(err, ErrUnknownMessageType):
		p.logger.Warn().Err(err).Msg("message ignored")
	default:
		p.logger.Debug().Err(err).Msg("message dropped")
	}
}

// Dispatch delivers msg to every registered handler in registration order.
// Avatar and sound messages are participant local.
func (p *Participant) Dispatch(msg Message) {
	p.logger.Trace().Str("type", msg.Type()).Msg("dispatching message")

	switch m := msg.(type) {
	case Avatar:
		p.name = m.Name
		return
	case Sound:
		p.logger.Debug().Str("sound", m.Name).Msg("sound is not bound to any room action")
		return
	}

	for _, h := range slices.Clone(p.handlers) {
		switch m := msg.(type) {
		case CreateRoom:
			h.CreateRoom(p)
		case JoinRoom:
			h.JoinRoom(p, m.RoomID)
		case Leave:
			h.Leave(p)
		case SetURL:
			h.SetURL(p, m.URL)
		case Chat:
			h.Chat(p, m.Text)
		case Buffering:
			h.Buffering(p, m.Value)
		case Paused:
			h.Paused(p, m.Value)
		case Timestamp:
			h.Timestamp(p, m.Value)
		default:
			p.logger.Error().Str("type", msg.Type()).Msg("message has no dispatch route")
			return
		}
	}
}

func (p *Participant) clearHandlers() {
	p.handlers = nil
}
