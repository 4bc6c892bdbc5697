package _switch

import (
	"sync"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
)

// Switch keeps outbound channels of connected endpoints
// and delivers events to them without blocking.
type Switch struct {
	logger zerolog.Logger
	mx     *sync.RWMutex
	fwd    map[string]chan<- model.Event
}

func NewSwitch(logger *zerolog.Logger) *Switch {
	return &Switch{
		logger: logger.With().Str("component", "switch").Logger(),
		mx:     &sync.RWMutex{},
		fwd:    make(map[string]chan<- model.Event),
	}
}

func (sw *Switch) Connect(endpoint string, tx chan<- model.Event) {
	sw.mx.Lock()
	sw.fwd[endpoint] = tx
	sw.mx.Unlock()

	sw.logger.Debug().
		Str("endpoint", endpoint).
		Msg("endpoint connected")
}

func (sw *Switch) Disconnect(endpoint string) {
	sw.mx.Lock()
	delete(sw.fwd, endpoint)
	sw.mx.Unlock()

	sw.logger.Debug().
		Str("endpoint", endpoint).
		Msg("endpoint disconnected")
}

// Send queues ev for endpoint. It reports false if the endpoint
// is unknown or its queue is full, in which case ev is dropped.
func (sw *Switch) Send(endpoint string, ev model.Event) bool {
	sw.mx.RLock()
	tx, ok := sw.fwd[endpoint]
	sw.mx.RUnlock()

	logger := sw.logger.With().
		Str("dst", endpoint).
		Str("type", ev.Type).
		Logger()

	if !ok {
		logger.Debug().Msg("cannot forward, dst not found")
		return false
	}

	select {
	case tx <- ev:
		logger.Trace().Msg("event is forwarded")
		return true
	default:
		logger.Warn().Msg("slow endpoint, event dropped")
		return false
	}
}
