package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/watchparty/backend/model"
	"github.com/adwski/watchparty/backend/room"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second
	defaultQueryTimeout     = 3 * time.Second
)

var (
	ErrUnexpected = errors.New("unexpected server error")
)

type RoomService interface {
	Rooms(ctx context.Context) ([]model.RoomInfo, error)
	Room(ctx context.Context, roomID string) (model.RoomInfo, error)
	Stats(ctx context.Context) (model.Stats, error)
}

type GenericResponse struct {
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type Server struct {
	logger zerolog.Logger
	svc    RoomService
	*http.Server
}

type Config struct {
	Logger      *zerolog.Logger
	RoomService RoomService
	ListenAddr  string
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		svc:    cfg.RoomService,
	}

	r := http.NewServeMux()
	r.HandleFunc("GET /health", srv.health)
	r.HandleFunc("GET /api/rooms", srv.listRooms)
	r.HandleFunc("GET /api/rooms/{roomID}", srv.getRoom)
	r.HandleFunc("GET /api/stats", srv.stats)
	r.HandleFunc("OPTIONS /", corsHandler)

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	return srv
}

func corsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) health(w http.ResponseWriter, _ *http.Request) {
	srv.writeResponse(w, http.StatusOK, &GenericResponse{Message: "OK"})
}

func (srv *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultQueryTimeout)
	defer cancel()

	rooms, err := srv.svc.Rooms(ctx)
	if err != nil {
		srv.logger.Error().Err(err).Msg("failed to list rooms")
		srv.writeResponse(w, http.StatusServiceUnavailable, &GenericResponse{Error: ErrUnexpected.Error()})
		return
	}
	srv.writeResponse(w, http.StatusOK, &GenericResponse{Data: rooms})
}

func (srv *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultQueryTimeout)
	defer cancel()

	roomID := r.PathValue("roomID")
	srv.logger.Trace().Str("roomID", roomID).Msg("got room request")

	info, err := srv.svc.Room(ctx, roomID)
	switch {
	case err == nil:
		srv.writeResponse(w, http.StatusOK, &GenericResponse{Data: info})
	case errors.Is(err, room.ErrRoomNotFound):
		srv.writeResponse(w, http.StatusNotFound, &GenericResponse{Error: err.Error()})
	default:
		srv.logger.Error().Err(err).Msg("failed to get room")
		srv.writeResponse(w, http.StatusServiceUnavailable, &GenericResponse{Error: ErrUnexpected.Error()})
	}
}

func (srv *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), defaultQueryTimeout)
	defer cancel()

	stats, err := srv.svc.Stats(ctx)
	if err != nil {
		srv.logger.Error().Err(err).Msg("failed to get stats")
		srv.writeResponse(w, http.StatusServiceUnavailable, &GenericResponse{Error: ErrUnexpected.Error()})
		return
	}
	srv.writeResponse(w, http.StatusOK, &GenericResponse{Data: stats})
}

func (srv *Server) writeResponse(w http.ResponseWriter, code int, resp *GenericResponse) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	b, err := json.Marshal(resp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	if _, err = w.Write(b); err != nil {
		srv.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
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
