package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/adwski/watchparty/backend/participant"
	"github.com/adwski/watchparty/backend/room"
	"github.com/adwski/watchparty/backend/storage/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultQueueSize = 256
)

var (
	ErrStopped = errors.New("service is stopped")
	ErrConnect = errors.New("unable to connect")
)

type (
	Switch interface {
		Connect(endpoint string, tx chan<- model.Event)
		Disconnect(endpoint string)
		Send(endpoint string, ev model.Event) bool
	}

	// Service owns all room and participant state. Every state change,
	// including connects, disconnects and timers, runs as a task on a
	// single goroutine, so each inbound message is applied with its
	// broadcasts before the next one is taken.
	Service struct {
		sw       Switch
		roster   *participant.Roster
		rooms    *room.Directory
		sessions *memory.MemStore[*session]
		tasks    chan func()
		done     chan struct{}
		logger   zerolog.Logger
	}

	Config struct {
		Switch       Switch
		Logger       *zerolog.Logger
		IDSource     room.IDSource
		QueueSize    int
		IDLength     int
		IDGrowEvery  int
		WelcomeDelay time.Duration
	}
)

func NewService(cfg Config) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	svc := &Service{
		sw:       cfg.Switch,
		sessions: memory.NewMemStore[*session](),
		tasks:    make(chan func(), queueSize),
		done:     make(chan struct{}),
		logger:   cfg.Logger.With().Str("component", "session").Logger(),
	}
	svc.roster = participant.NewRoster(participant.RosterConfig{
		Outbox: cfg.Switch,
		Logger: cfg.Logger,
	})
	svc.rooms = room.NewDirectory(room.DirectoryConfig{
		Logger:       cfg.Logger,
		Scheduler:    svc,
		IDSource:     cfg.IDSource,
		IDLength:     cfg.IDLength,
		IDGrowEvery:  cfg.IDGrowEvery,
		WelcomeDelay: cfg.WelcomeDelay,
	})

	ctrl := &controller{rooms: svc.rooms, logger: svc.logger}
	svc.roster.Subscribe(participant.EventConnect, func(p *participant.Participant) {
		p.AddHandler(ctrl)
	})
	svc.roster.Subscribe(participant.EventDisconnect, ctrl.disconnect)
	return svc
}

// Run processes tasks until ctx is done.
func (svc *Service) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer func() {
		close(svc.done)
		svc.rooms.Close()
		svc.roster.Close()
		svc.logger.Debug().Msg("session engine stopped")
		wg.Done()
	}()

	svc.logger.Debug().Msg("session engine started")
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-svc.tasks:
			task()
		}
	}
}

// OpenSession registers a new participant for wire and starts forwarding
// its inbound frames. It returns the participant id.
//
// The session ends when wire.RX is closed or CloseSession is called.
func (svc *Service) OpenSession(ctx context.Context, wire model.Wire) (string, error) {
	s := newSession(uuid.NewString())

	var err error
	if errCall := svc.call(ctx, func() {
		svc.sw.Connect(s.id, wire.TX)
		if _, err = svc.roster.Connect(s.id); err != nil {
			svc.sw.Disconnect(s.id)
			return
		}
		svc.sessions.Put(s.id, s)
		go svc.forward(s, wire.RX)
	}); errCall != nil {
		// connect task may still run, its forwarder then disconnects at once
		s.stop()
		return "", errCall
	}
	if err != nil {
		return "", errors.Join(ErrConnect, err)
	}
	return s.id, nil
}

// CloseSession ends the session and waits until the participant is
// disconnected. Frames handed over before the call are applied first.
// Events produced by the disconnect itself are not delivered to the
// closed endpoint. If ctx expires, the disconnect is still applied later.
func (svc *Service) CloseSession(ctx context.Context, id string) error {
	s, ok := svc.sessions.Get(id)
	if !ok {
		return nil
	}
	s.stop()

	select {
	case <-s.closed:
		return nil
	case <-svc.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (svc *Service) Rooms(ctx context.Context) ([]model.RoomInfo, error) {
	var infos []model.RoomInfo
	err := svc.call(ctx, func() {
		rooms := svc.rooms.Rooms()
		infos = make([]model.RoomInfo, 0, len(rooms))
		for _, r := range rooms {
			infos = append(infos, r.Info())
		}
	})
	return infos, err
}

func (svc *Service) Room(ctx context.Context, id string) (model.RoomInfo, error) {
	var (
		info  model.RoomInfo
		errRm error
	)
	err := svc.call(ctx, func() {
		var r *room.Room
		if r, errRm = svc.rooms.Get(id); errRm == nil {
			info = r.Info()
		}
	})
	if err != nil {
		return info, err
	}
	return info, errRm
}

func (svc *Service) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := svc.call(ctx, func() {
		stats.Rooms = svc.rooms.Len()
		stats.Participants = svc.roster.Len()
	})
	return stats, err
}

// AfterFunc schedules f on the engine after d.
func (svc *Service) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, func() {
		_ = svc.post(context.Background(), f)
	})
	return t.Stop
}

// forward is the only producer of tasks for a session: its frames in
// arrival order, then its disconnect.
func (svc *Service) forward(s *session, rx <-chan []byte) {
	defer func() {
		svc.sessions.Delete(s.id)
		close(s.closed)
	}()
	for {
		select {
		case <-svc.done:
			return
		case <-s.closing:
			svc.disconnect(s.id)
			return
		case raw, ok := <-rx:
			if !ok {
				svc.disconnect(s.id)
				return
			}
			if err := svc.post(context.Background(), func() {
				svc.handle(s.id, raw)
			}); err != nil {
				return
			}
		}
	}
}

func (svc *Service) handle(id string, raw []byte) {
	p, ok := svc.roster.Get(id)
	if !ok {
		svc.logger.Debug().Str("participantID", id).Msg("message from disconnected participant dropped")
		return
	}
	p.Handle(raw)
}

// disconnect is not bound to any caller context, it waits
// for a free queue slot as long as the service runs.
func (svc *Service) disconnect(id string) {
	err := svc.call(context.Background(), func() {
		svc.sw.Disconnect(id)
		svc.roster.Disconnect(id)
	})
	if err != nil {
		svc.logger.Debug().Err(err).Str("participantID", id).Msg("disconnect not applied")
	}
}

// post queues task without waiting for it.
func (svc *Service) post(ctx context.Context, task func()) error {
	select {
	case <-svc.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case svc.tasks <- task:
		return nil
	}
}

// call queues task and waits until it is executed.
func (svc *Service) call(ctx context.Context, task func()) error {
	executed := make(chan struct{})
	if err := svc.post(ctx, func() {
		defer close(executed)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-svc.done:
		select {
		case <-executed:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-executed:
		return nil
	}
}
