package room

import (
	"errors"
	"strings"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/adwski/watchparty/backend/storage/memory"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultIDLength     = 4
	DefaultIDGrowEvery  = 10
	DefaultWelcomeDelay = time.Second
)

var ErrGenerateID = errors.New("unable to generate room id")

type (
	// IDSource returns a random identifier of the given length.
	IDSource func(length int) (string, error)

	// Directory is the registry of rooms. It is the only place
	// where rooms are created and destroyed.
	Directory struct {
		rooms        *memory.MemStore[*Room]
		memberOf     map[string]*Room
		sched        Scheduler
		ids          IDSource
		logger       zerolog.Logger
		idLength     int
		idGrowEvery  int
		welcomeDelay time.Duration
	}

	DirectoryConfig struct {
		Logger *zerolog.Logger
		// Scheduler runs the deferred welcome message.
		// Rooms are created without one if it is nil.
		Scheduler    Scheduler
		IDSource     IDSource
		IDLength     int
		IDGrowEvery  int
		WelcomeDelay time.Duration
	}
)

func NewDirectory(cfg DirectoryConfig) *Directory {
	d := &Directory{
		rooms:        memory.NewMemStore[*Room](),
		memberOf:     make(map[string]*Room),
		sched:        cfg.Scheduler,
		ids:          cfg.IDSource,
		logger:       cfg.Logger.With().Str("component", "directory").Logger(),
		idLength:     cfg.IDLength,
		idGrowEvery:  cfg.IDGrowEvery,
		welcomeDelay: cfg.WelcomeDelay,
	}
	if d.ids == nil {
		d.ids = RandomID
	}
	if d.idLength <= 0 {
		d.idLength = DefaultIDLength
	}
	if d.idGrowEvery <= 0 {
		d.idGrowEvery = DefaultIDGrowEvery
	}
	if d.welcomeDelay <= 0 {
		d.welcomeDelay = DefaultWelcomeDelay
	}
	return d
}

// RandomID draws length symbols from model.IDAlphabet.
func RandomID(length int) (string, error) {
	return gonanoid.Generate(model.IDAlphabet, length)
}

// Create registers a new room owned by owner.
func (d *Directory) Create(owner Peer) (*Room, error) {
	if _, ok := d.RoomOf(owner); ok {
		return nil, ErrAlreadyInRoom
	}
	id, err := d.generateID()
	if err != nil {
		return nil, errors.Join(ErrGenerateID, err)
	}

	r := &Room{
		dir:    d,
		id:     id,
		active: true,
		logger: d.logger.With().Str("roomID", id).Logger(),
	}
	r.owner = &Member{Peer: owner}
	r.members = []*Member{r.owner}
	d.rooms.Put(id, r)
	d.index(owner, r)

	if d.sched != nil {
		r.stopWelcome = d.sched.AfterFunc(d.welcomeDelay, r.welcome)
	}

	r.logger.Debug().Str("ownerID", owner.ID()).Msg("room created")
	return r, nil
}

// Get looks up a room, id is case-insensitive.
func (d *Directory) Get(id string) (*Room, error) {
	r, ok := d.rooms.Get(strings.ToUpper(id))
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// RoomOf returns the room p is a member of.
func (d *Directory) RoomOf(p Peer) (*Room, bool) {
	r, ok := d.memberOf[p.ID()]
	return r, ok
}

func (d *Directory) Rooms() []*Room {
	return d.rooms.Values()
}

func (d *Directory) Len() int {
	return d.rooms.Len()
}

// Close cancels pending deferred tasks of all rooms.
func (d *Directory) Close() {
	for _, r := range d.rooms.Values() {
		if r.stopWelcome != nil {
			r.stopWelcome()
		}
	}
}

// generateID draws identifiers until an unused one is found.
// The length grows by one after every idGrowEvery collisions.
func (d *Directory) generateID() (string, error) {
	for tries := 0; ; tries++ {
		id, err := d.ids(d.idLength + tries/d.idGrowEvery)
		if err != nil {
			return "", err
		}
		id = strings.ToUpper(id)
		if !d.rooms.Has(id) {
			return id, nil
		}
	}
}

func (d *Directory) destroy(r *Room) {
	d.rooms.Delete(r.id)
	r.active = false
	if r.stopWelcome != nil {
		r.stopWelcome()
	}
	r.logger.Debug().Msg("room destroyed")
}

func (d *Directory) index(p Peer, r *Room) {
	d.memberOf[p.ID()] = r
}

func (d *Directory) unindex(p Peer) {
	delete(d.memberOf, p.ID())
}
