package service

import "sync"

// session is the inbound side of one connection.
type session struct {
	closing chan struct{}
	// closed is closed once the participant is disconnected
	// or the service stopped.
	closed chan struct{}
	once   *sync.Once
	id     string
}

func newSession(id string) *session {
	return &session{
		id:      id,
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
		once:    &sync.Once{},
	}
}

// stop asks the forwarder to disconnect after frames it already took.
func (s *session) stop() {
	s.once.Do(func() {
		close(s.closing)
	})
}
