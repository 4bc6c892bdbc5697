package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/watchparty/backend/config"
	"github.com/adwski/watchparty/backend/logger"
	httpServer "github.com/adwski/watchparty/backend/server/http"
	websocketServer "github.com/adwski/watchparty/backend/server/websocket"
	"github.com/adwski/watchparty/backend/service"
	sw "github.com/adwski/watchparty/backend/switch"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		bootLogger.Debug().Err(err).Msg(".env not loaded")
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("failed to configure logger")
	}

	svc := service.NewService(service.Config{
		Switch:       sw.NewSwitch(&log),
		Logger:       &log,
		QueueSize:    cfg.Engine.QueueSize,
		IDLength:     cfg.Rooms.IDLength,
		IDGrowEvery:  cfg.Rooms.IDGrowEvery,
		WelcomeDelay: cfg.Rooms.WelcomeDelay,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:      &log,
		RoomService: svc,
		ListenAddr:  cfg.APIListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &log,
		SessionService: svc,
		ListenAddr:     cfg.WSListenAddr,
		Path:           cfg.WebSocket.Path,
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		OutboxSize:     cfg.WebSocket.OutboxSize,
		Compression:    cfg.WebSocket.Compression,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(3)
	go svc.Run(ctx, wg)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		log.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		log.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
