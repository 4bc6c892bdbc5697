package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second

	defaultSessionCloseTimeout = 2 * time.Second

	defaultWebsocketReadBufferSize     = 10000
	defaultWebsocketWriteBufferSize    = 10000
	defaultWebSocketMaxMessageSize     = 9000
	defaultWebSocketHandshakeTimeout   = 3 * time.Second
	defaultWebSocketCloseWriteDeadline = 2 * time.Second
	defaultWebSocketWriteDeadline      = 5 * time.Second
	defaultWebSocketCompressionLevel   = 3
	defaultOutboxSize                  = 64
	defaultPath                        = "/"

	// defaultPongWait - defaultPingInterval == is how long we give client to respond
	defaultPingInterval = 5 * time.Second
	defaultPongWait     = 7 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type (
	SessionService interface {
		OpenSession(context.Context, model.Wire) (string, error)
		CloseSession(context.Context, string) error
	}

	Config struct {
		Logger         *zerolog.Logger
		SessionService SessionService
		ListenAddr     string
		Path           string
		PingInterval   time.Duration
		PongWait       time.Duration
		WriteWait      time.Duration
		MaxMessageSize int64
		OutboxSize     int
		Compression    bool
	}

	Server struct {
		svc SessionService
		ws  *websocket.Upgrader
		*http.Server

		logger zerolog.Logger

		pingInterval   time.Duration
		pongWait       time.Duration
		writeWait      time.Duration
		maxMessageSize int64
		outboxSize     int
	}
)

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "websocket-server").Logger(),
		svc:    cfg.SessionService,
		ws: &websocket.Upgrader{
			HandshakeTimeout:  defaultWebSocketHandshakeTimeout,
			ReadBufferSize:    defaultWebsocketReadBufferSize,
			WriteBufferSize:   defaultWebsocketWriteBufferSize,
			EnableCompression: cfg.Compression,
			CheckOrigin:       func(r *http.Request) bool { return true },
		},
		pingInterval:   durationOr(cfg.PingInterval, defaultPingInterval),
		pongWait:       durationOr(cfg.PongWait, defaultPongWait),
		writeWait:      durationOr(cfg.WriteWait, defaultWebSocketWriteDeadline),
		maxMessageSize: cfg.MaxMessageSize,
		outboxSize:     cfg.OutboxSize,
	}
	if srv.maxMessageSize <= 0 {
		srv.maxMessageSize = defaultWebSocketMaxMessageSize
	}
	if srv.outboxSize <= 0 {
		srv.outboxSize = defaultOutboxSize
	}
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, srv.serve)

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return srv
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	errSrv := make(chan error)
	go func() {
		errSrv <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-errSrv:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}

func (srv *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.ws.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already replied with an http error
		srv.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	if err = conn.SetCompressionLevel(defaultWebSocketCompressionLevel); err != nil {
		srv.logger.Error().Err(err).Msg("failed to set compression level")
	}

	wire := model.NewWire(srv.outboxSize)

	ctx, cancel := context.WithCancel(context.TODO()) // long-living wire context

	participantID, err := srv.svc.OpenSession(ctx, wire)
	if err != nil {
		srv.logger.Error().Err(err).Msg("failed to open session")
		cancel()
		closeConn(conn, srv.writeWait, &srv.logger)
		return
	}
	srv.logger.Debug().
		Str("participantID", participantID).
		Str("remote", r.RemoteAddr).
		Msg("session opened")

	go srv.handleWSConn(ctx, cancel, conn, participantID, wire)
}

func (srv *Server) destroySession(participantID string, logger *zerolog.Logger) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(defaultSessionCloseTimeout))
	defer cancel()
	err := srv.svc.CloseSession(ctx, participantID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to close session")
		return
	}
	logger.Debug().Msg("session closed")
}

// handleWSConn pumps frames between conn and wire until either side fails.
// The reader owns wire.RX and closes it on exit, which lets the session
// apply every frame read so far before the participant is disconnected.
func (srv *Server) handleWSConn(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	participantID string,
	wire model.Wire,
) {
	logger := srv.logger.With().
		Str("participantID", participantID).
		Logger()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		srv.readFrames(ctx, conn, wire.RX, &logger)
	}()

	srv.writeEvents(ctx, conn, wire.TX, &logger)
	cancel()

	// unblocks the reader if the writer failed first
	closeConn(conn, srv.writeWait, &logger)
	<-readerDone

	srv.destroySession(participantID, &logger)
}

// writeEvents delivers outbound events and keeps the connection alive
// with pings. It returns when ctx is done or a write fails.
func (srv *Server) writeEvents(
	ctx context.Context,
	conn *websocket.Conn,
	tx <-chan model.Event,
	logger *zerolog.Logger,
) {
	ping := time.NewTicker(srv.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(srv.writeWait)); err != nil {
				logger.Debug().Err(err).Msg("failed to send ping")
				return
			}
			logger.Trace().Msg("ping sent")
		case ev := <-tx:
			b, err := json.Marshal(&ev)
			if err != nil {
				logger.Error().Err(err).Str("type", ev.Type).Msg("failed to marshal outgoing event")
				continue
			}
			if err = conn.SetWriteDeadline(time.Now().Add(srv.writeWait)); err != nil {
				logger.Error().Err(err).Msg("failed to set websocket write deadline")
				return
			}
			if err = conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Debug().Err(err).Str("type", ev.Type).Msg("failed to write outgoing event")
				return
			}
		}
	}
}

// readFrames hands every inbound frame to rx, in order, until the
// connection fails or is closed, or until ctx is done. It closes rx on return.
func (srv *Server) readFrames(ctx context.Context, conn *websocket.Conn, rx chan<- []byte, logger *zerolog.Logger) {
	defer close(rx)

	conn.SetReadLimit(srv.maxMessageSize)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(srv.pongWait))
	}
	conn.SetPongHandler(func(string) error {
		logger.Trace().Msg("got pong")
		return extend()
	})
	if err := extend(); err != nil {
		logger.Error().Err(err).Msg("failed to set websocket read deadline")
		return
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("connection closed by peer")
			} else {
				logger.Debug().Err(err).Msg("connection read failed")
			}
			return
		}
		select {
		case rx <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func closeConn(conn *websocket.Conn, writeWait time.Duration, logger *zerolog.Logger) {
	deadline := time.Now().Add(min(writeWait, defaultWebSocketCloseWriteDeadline))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		logger.Debug().Err(err).Msg("failed to send close message")
	}
	if err := conn.Close(); err != nil {
		logger.Debug().Err(err).Msg("failed to close websocket connection")
	}
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
