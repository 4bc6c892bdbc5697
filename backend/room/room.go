package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyInRoom = errors.New("You're already in a room")
	ErrNotInRoom     = errors.New("You're not in a room")
	ErrRoomNotFound  = errors.New("That room doesn't exist")
	ErrUnauthorized  = errors.New("You're not the owner of the room")
	ErrNoChange      = errors.New("That URL is already set")
)

type (
	// Peer is a room member as seen by the room.
	// Peers are identified by ID.
	Peer interface {
		ID() string
		Name() string
		Send(eventType string, data any)
	}

	// Scheduler runs f once after d. The returned func cancels it
	// and reports whether f was still pending.
	Scheduler interface {
		AfterFunc(d time.Duration, f func()) (stop func() bool)
	}

	Member struct {
		Peer        Peer
		IsBuffering bool
	}

	// Room is a shared playback session. It is not safe for concurrent use,
	// all calls must be serialized by the caller.
	Room struct {
		dir         *Directory
		owner       *Member
		url         *string
		stopWelcome func() bool
		logger      zerolog.Logger
		id          string
		members     []*Member
		timestamp   float64
		paused      bool
		active      bool
	}
)

func (r *Room) ID() string {
	return r.id
}

func (r *Room) Owner() Peer {
	return r.owner.Peer
}

func (r *Room) IsOwner(p Peer) bool {
	return r.owner.Peer.ID() == p.ID()
}

// Members returns peers in join order.
func (r *Room) Members() []Peer {
	peers := make([]Peer, 0, len(r.members))
	for _, m := range r.members {
		peers = append(peers, m.Peer)
	}
	return peers
}

func (r *Room) Member(p Peer) (*Member, bool) {
	i := r.memberIndex(p)
	if i < 0 {
		return nil, false
	}
	return r.members[i], true
}

func (r *Room) URL() *string {
	return r.url
}

func (r *Room) Timestamp() float64 {
	return r.timestamp
}

func (r *Room) Paused() bool {
	return r.paused
}

// Buffering is true while any member is buffering.
func (r *Room) Buffering() bool {
	for _, m := range r.members {
		if m.IsBuffering {
			return true
		}
	}
	return false
}

func (r *Room) Info() model.RoomInfo {
	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.Peer.Name())
	}
	return model.RoomInfo{
		ID:        r.id,
		Owner:     r.Owner().Name(),
		Members:   names,
		URL:       r.url,
		Timestamp: r.timestamp,
		Paused:    r.paused,
		Buffering: r.Buffering(),
	}
}

// AddUser appends p to members and sends it the current playback state.
func (r *Room) AddUser(p Peer) error {
	if !r.active {
		return ErrRoomNotFound
	}
	if _, ok := r.dir.RoomOf(p); ok {
		return ErrAlreadyInRoom
	}

	r.members = append(r.members, &Member{Peer: p})
	r.dir.index(p, r)
	r.logger.Debug().Str("participantID", p.ID()).Msg("user joined")

	p.Send(model.EventTypeURL, r.urlPayload())
	p.Send(model.EventTypeBuffering, r.Buffering())
	p.Send(model.EventTypePaused, r.paused)
	p.Send(model.EventTypeTimestamp, r.timestamp)
	r.SendChat(fmt.Sprintf("%s joined the room.", p.Name()), nil)
	return nil
}

// RemoveUser removes p from members. If p was the owner, ownership passes
// to the earliest joined remaining member, or the room is destroyed
// when nobody is left.
func (r *Room) RemoveUser(p Peer) error {
	i := r.memberIndex(p)
	if i < 0 {
		return ErrNotInRoom
	}
	member := r.members[i]
	r.members = append(r.members[:i:i], r.members[i+1:]...)
	r.dir.unindex(p)
	p.Send(model.EventTypeRoomID, nil)

	logger := r.logger.With().Str("participantID", p.ID()).Logger()
	logger.Debug().Msg("user left")

	if member != r.owner {
		r.SendChat(fmt.Sprintf("%s left the room.", p.Name()), nil)
		return nil
	}

	if len(r.members) == 0 {
		r.dir.destroy(r)
		return nil
	}

	r.owner = r.members[0]
	logger.Debug().Str("ownerID", r.owner.Peer.ID()).Msg("owner promoted")
	r.SendBufferEvent()
	r.SendChat(fmt.Sprintf("%s left the room. %s has been promoted to owner.",
		p.Name(), r.owner.Peer.Name()), nil)
	return nil
}

// SetURL switches playback to url and resets position and pause state.
// It returns ErrNoChange if url is already set.
func (r *Room) SetURL(url *string) error {
	if sameURL(r.url, url) {
		return ErrNoChange
	}
	if url != nil {
		u := *url
		url = &u
	}
	r.url = url
	r.timestamp = 0
	r.paused = false

	r.broadcast(model.EventTypeURL, r.urlPayload())
	r.broadcast(model.EventTypeTimestamp, r.timestamp)
	r.broadcast(model.EventTypePaused, r.paused)
	return nil
}

func (r *Room) SetPaused(paused bool) {
	r.paused = paused
	r.broadcast(model.EventTypePaused, r.paused)
}

func (r *Room) SetTimestamp(ts float64) {
	r.timestamp = ts
	r.broadcast(model.EventTypeTimestamp, r.timestamp)
}

// SetBuffering updates buffering flag of p and broadcasts the aggregate.
func (r *Room) SetBuffering(p Peer, isBuffering bool) error {
	m, ok := r.Member(p)
	if !ok {
		return ErrNotInRoom
	}
	m.IsBuffering = isBuffering
	r.SendBufferEvent()
	return nil
}

func (r *Room) SendBufferEvent() {
	r.broadcast(model.EventTypeBuffering, r.Buffering())
}

// SendChat broadcasts message on behalf of sender, nil sender means system.
func (r *Room) SendChat(message string, sender Peer) {
	name := model.SystemSender
	if sender != nil {
		name = sender.Name()
	}
	r.broadcast(model.EventTypeChat, model.ChatPayload{
		Sender:  name,
		Message: message,
	})
}

func (r *Room) welcome() {
	if !r.active {
		return
	}
	r.SendChat(fmt.Sprintf("Welcome to room %s.", r.id), nil)
}

func (r *Room) broadcast(eventType string, data any) {
	for _, m := range r.members {
		m.Peer.Send(eventType, data)
	}
}

func (r *Room) urlPayload() model.URLPayload {
	return model.URLPayload{Room: r.id, URL: r.url}
}

func (r *Room) memberIndex(p Peer) int {
	for i, m := range r.members {
		if m.Peer.ID() == p.ID() {
			return i
		}
	}
	return -1
}

func sameURL(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
