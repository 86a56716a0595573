// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/voltgames/arena/internal/auth"
	"github.com/voltgames/arena/internal/bus"
	"github.com/voltgames/arena/internal/cache"
	"github.com/voltgames/arena/internal/config"
	"github.com/voltgames/arena/internal/database"
	"github.com/voltgames/arena/internal/handlers"
	"github.com/voltgames/arena/internal/heartbeat"
	"github.com/voltgames/arena/internal/lobby"
	"github.com/voltgames/arena/internal/middleware"
	"github.com/voltgames/arena/internal/session"
	"github.com/voltgames/arena/internal/zone"
)

func main() {
	cfg := config.Load()
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer database.Close()

	b, err := bus.Connect(cfg.NATSUrl, logger)
	if err != nil {
		log.Fatalf("bus connect failed: %v", err)
	}
	defer b.Close()

	var audit session.Auditor
	if q, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.AuditQueueName, logger); err != nil {
		logger.Warnf("audit queue unavailable, lifecycle records disabled: %v", err)
	} else {
		audit = q
		defer q.Close()
	}

	// Core state: zone table, lobbies, presence slots, grace timers.
	zones := zone.NewRegistry(3 * cfg.ZoneHeartbeatInterval)
	lobbies := lobby.NewStore(zones)
	slots := session.NewSlotManager()
	timers := session.NewGraceTimers(cfg.GracePeriod)

	tracker := heartbeat.NewTracker(cfg.ZoneID, cfg.TransportURL, cfg.ZoneHeartbeatInterval, b, logger)

	orch := session.NewOrchestrator(slots, timers, b, tracker, lobbies, audit)
	defer orch.Stop()

	consumer := session.NewConsumer(orch, zones)
	if err := consumer.Start(b); err != nil {
		log.Fatalf("bus subscriptions failed: %v", err)
	}

	tracker.Start()
	defer tracker.Stop()

	srv := handlers.NewApiServer(lobbies, b, logger)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/lobby/create", logged(srv.CreateLobbyHandler()))
	mux.Handle("/lobby/join", logged(srv.JoinLobbyHandler()))
	mux.Handle("/lobby/leave", logged(srv.LeaveLobbyHandler()))
	mux.Handle("/lobby/start", logged(srv.StartLobbyHandler()))
	mux.Handle("/lobby/list", logged(srv.ListLobbiesHandler()))
	mux.Handle("/match/solo", logged(srv.SoloMatchHandler()))
	mux.Handle("/game/ws/", logged(handlers.ReconnectWSHandler(logger, b)))

	addr := ":" + cfg.Port
	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("Running on %s (zone %s)", addr, cfg.ZoneID)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server exited: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	httpSrv.Close()
}
