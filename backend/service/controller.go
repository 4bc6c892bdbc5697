package service

import (
	"github.com/adwski/watchparty/backend/model"
	"github.com/adwski/watchparty/backend/participant"
	"github.com/adwski/watchparty/backend/room"
	"github.com/rs/zerolog"
)

// controller routes participant messages to rooms. Failed preconditions
// are reported to the sender only and leave rooms untouched.
type controller struct {
	rooms  *room.Directory
	logger zerolog.Logger
}

func (c *controller) CreateRoom(p *participant.Participant) {
	r, err := c.rooms.Create(p)
	if err != nil {
		c.fail(p, model.MessageTypeCreateRoom, err)
		return
	}
	p.Send(model.EventTypeRoomID, r.ID())
}

func (c *controller) JoinRoom(p *participant.Participant, roomID string) {
	r, err := c.rooms.Get(roomID)
	if err != nil {
		c.fail(p, model.MessageTypeJoinRoom, err)
		return
	}
	if err = r.AddUser(p); err != nil {
		c.fail(p, model.MessageTypeJoinRoom, err)
	}
}

func (c *controller) Leave(p *participant.Participant) {
	if err := c.leave(p); err != nil {
		c.fail(p, model.MessageTypeLeave, err)
	}
}

func (c *controller) SetURL(p *participant.Participant, url *string) {
	r, err := c.ownedRoom(p)
	if err == nil {
		err = r.SetURL(url)
	}
	if err != nil {
		c.fail(p, model.MessageTypeURL, err)
	}
}

func (c *controller) Chat(p *participant.Participant, text string) {
	r, ok := c.rooms.RoomOf(p)
	if !ok {
		c.fail(p, model.MessageTypeChat, room.ErrNotInRoom)
		return
	}
	r.SendChat(text, p)
}

func (c *controller) Buffering(p *participant.Participant, isBuffering bool) {
	r, ok := c.rooms.RoomOf(p)
	if !ok {
		c.fail(p, model.MessageTypeBuffering, room.ErrNotInRoom)
		return
	}
	if err := r.SetBuffering(p, isBuffering); err != nil {
		c.fail(p, model.MessageTypeBuffering, err)
	}
}

func (c *controller) Paused(p *participant.Participant, paused bool) {
	r, err := c.ownedRoom(p)
	if err != nil {
		c.fail(p, model.MessageTypePaused, err)
		return
	}
	r.SetPaused(paused)
}

func (c *controller) Timestamp(p *participant.Participant, ts float64) {
	r, err := c.ownedRoom(p)
	if err != nil {
		c.fail(p, model.MessageTypeTimestamp, err)
		return
	}
	r.SetTimestamp(ts)
}

// disconnect removes a closed participant from its room.
func (c *controller) disconnect(p *participant.Participant) {
	if err := c.leave(p); err != nil {
		c.logger.Trace().Str("participantID", p.ID()).Msg("disconnected outside of a room")
	}
}

func (c *controller) leave(p *participant.Participant) error {
	r, ok := c.rooms.RoomOf(p)
	if !ok {
		return room.ErrNotInRoom
	}
	return r.RemoveUser(p)
}

func (c *controller) ownedRoom(p *participant.Participant) (*room.Room, error) {
	r, ok := c.rooms.RoomOf(p)
	if !ok {
		return nil, room.ErrNotInRoom
	}
	if !r.IsOwner(p) {
		return nil, room.ErrUnauthorized
	}
	return r, nil
}

func (c *controller) fail(p *participant.Participant, msgType string, err error) {
	c.logger.Debug().
		Err(err).
		Str("participantID", p.ID()).
		Str("type", msgType).
		Msg("request rejected")
	p.Error(err)
}
