package participant

import (
	"errors"

	"github.com/adwski/watchparty/backend/model"
	"github.com/adwski/watchparty/backend/storage/memory"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	defaultNameSuffixLength = 3
	defaultNamePrefix       = "User "
)

var ErrDuplicate = errors.New("participant already connected")

type Event int

const (
	EventConnect Event = iota
	EventDisconnect
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

type (
	Listener func(p *Participant)

	// NameSource generates placeholder display names.
	NameSource func() string

	// Roster is the registry of connected participants. It notifies
	// subscribers about connects and disconnects.
	//
	// Roster is meant to be driven by a single goroutine.
	Roster struct {
		participants *memory.MemStore[*Participant]
		listeners    map[Event][]subscription
		outbox       Outbox
		names        NameSource
		logger       zerolog.Logger
		nextSub      int
	}

	RosterConfig struct {
		Outbox Outbox
		Logger *zerolog.Logger
		// Names is optional, DefaultName is used when nil.
		Names NameSource
	}

	subscription struct {
		fn Listener
		id int
	}
)

func NewRoster(cfg RosterConfig) *Roster {
	names := cfg.Names
	if names == nil {
		names = DefaultName
	}
	return &Roster{
		participants: memory.NewMemStore[*Participant](),
		listeners:    make(map[Event][]subscription),
		outbox:       cfg.Outbox,
		names:        names,
		logger:       cfg.Logger.With().Str("component", "roster").Logger(),
	}
}

// DefaultName returns "User " followed by three random symbols.
func DefaultName() string {
	return defaultNamePrefix + gonanoid.MustGenerate(model.IDAlphabet, defaultNameSuffixLength)
}

// Subscribe adds l to listeners of ev. The returned func removes it.
func (r *Roster) Subscribe(ev Event, l Listener) func() {
	r.nextSub++
	id := r.nextSub
	r.listeners[ev] = append(r.listeners[ev], subscription{id: id, fn: l})
	return func() {
		subs := r.listeners[ev]
		for i := range subs {
			if subs[i].id == id {
				r.listeners[ev] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Connect creates a participant for connection id and notifies subscribers.
func (r *Roster) Connect(id string) (*Participant, error) {
	p := &Participant{
		id:     id,
		name:   r.names(),
		outbox: r.outbox,
		logger: r.logger.With().Str("participantID", id).Logger(),
	}
	if !r.participants.Put(id, p) {
		return nil, ErrDuplicate
	}
	p.logger.Debug().Str("name", p.name).Msg("participant connected")

	r.notify(EventConnect, p)
	return p, nil
}

// Disconnect notifies subscribers and destroys the participant.
// It reports false if the participant is not (or no longer) connected.
func (r *Roster) Disconnect(id string) bool {
	p, ok := r.participants.Get(id)
	if !ok {
		return false
	}
	r.participants.Delete(id)

	r.notify(EventDisconnect, p)
	p.clearHandlers()

	p.logger.Debug().Msg("participant disconnected")
	return true
}

func (r *Roster) Get(id string) (*Participant, bool) {
	return r.participants.Get(id)
}

func (r *Roster) Len() int {
	return r.participants.Len()
}

// Close drops all subscribers.
func (r *Roster) Close() {
	clear(r.listeners)
}

func (r *Roster) notify(ev Event, p *Participant) {
	subs := append([]subscription(nil), r.listeners[ev]...)
	for _, s := range subs {
		s.fn(p)
	}
}
