package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	collabhttp "github.com/parcelworks/assessor-backend/internal/collab/http"
	"github.com/parcelworks/assessor-backend/internal/collab/websocket"
	"github.com/parcelworks/assessor-backend/internal/common/clock"
	"github.com/parcelworks/assessor-backend/internal/common/config"
	"github.com/parcelworks/assessor-backend/internal/common/db"
	commonhttp "github.com/parcelworks/assessor-backend/internal/common/http"
	"github.com/parcelworks/assessor-backend/internal/common/jwtverify"
	"github.com/parcelworks/assessor-backend/internal/common/logger"
	srv "github.com/parcelworks/assessor-backend/internal/common/server"
	"github.com/parcelworks/assessor-backend/internal/store"
)

func main() {
	godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_DIR"), "collab", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg, err := config.LoadCollabConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	pgStore := store.NewPgStore(pool)

	hub := websocket.NewHub(log, pgStore, clock.NewRealClock(), websocket.Config{
		AuthTimeout:         cfg.WebSocketAuthTimeout,
		WriteWait:           cfg.WebSocketWriteWait,
		PongWait:            cfg.WebSocketPongWait,
		PingPeriod:          cfg.WebSocketPingPeriod,
		MaxMessageSize:      cfg.WebSocketMaxMsgSize,
		SendBufSize:         cfg.WebSocketSendBufSize,
		StoreTimeout:        cfg.RequestTimeout,
		RecentActivityLimit: cfg.RecentActivityLimit,
	})

	handler := collabhttp.NewHandler(hub, cfg, log)

	restMux := http.NewServeMux()
	restMux.HandleFunc("/health", commonhttp.HealthHandler(log))
	restMux.Handle("/metrics", promhttp.Handler())

	jwtMw := jwtverify.Middleware(cfg.JWTSecret, log)
	presence := handler.PresenceMux()
	restMux.Handle("/api/collab/sessions", jwtMw(presence))
	restMux.Handle("/api/collab/sessions/", jwtMw(presence))

	recovery := commonhttp.RecoveryMiddleware(log)
	wrappedRestMux := recovery(commonhttp.TraceIDMiddleware(restMux))

	mainMux := http.NewServeMux()
	mainMux.HandleFunc("/ws", handler.HandleWebSocket)
	mainMux.Handle("/", wrappedRestMux)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mainMux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srv.StartWithGracefulShutdown(server, log, "collab", hub.Shutdown)
}
