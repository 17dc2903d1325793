package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commonerrors "github.com/parcelworks/assessor-backend/internal/common/errors"
)

type CollabConfig struct {
	HTTPPort             string
	DatabaseURL          string
	JWTSecret            string
	WebSocketWriteWait   time.Duration
	WebSocketPongWait    time.Duration
	WebSocketPingPeriod  time.Duration
	WebSocketMaxMsgSize  int64
	WebSocketSendBufSize int
	WebSocketAuthTimeout time.Duration
	SendTimeout          time.Duration
	RecentActivityLimit  int
	RequestTimeout       time.Duration
}

func LoadCollabConfig() (CollabConfig, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return CollabConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return CollabConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return CollabConfig{}, err
	}

	return CollabConfig{
		HTTPPort:             getEnv("COLLAB_HTTP_PORT", "8083"),
		DatabaseURL:          databaseURL,
		JWTSecret:            jwtSecret,
		WebSocketWriteWait:   getDurationEnv("COLLAB_WS_WRITE_WAIT", 10*time.Second),
		WebSocketPongWait:    getDurationEnv("COLLAB_WS_PONG_WAIT", 60*time.Second),
		WebSocketPingPeriod:  getDurationEnv("COLLAB_WS_PING_PERIOD", 54*time.Second),
		WebSocketMaxMsgSize:  getInt64Env("COLLAB_WS_MAX_MSG_SIZE", 512*1024),
		WebSocketSendBufSize: getIntEnv("COLLAB_WS_SEND_BUF_SIZE", 256),
		WebSocketAuthTimeout: getDurationEnv("COLLAB_WS_AUTH_TIMEOUT", 30*time.Second),
		SendTimeout:          getDurationEnv("COLLAB_WS_SEND_TIMEOUT", 5*time.Second),
		RecentActivityLimit:  getIntEnv("COLLAB_RECENT_ACTIVITY_LIMIT", 50),
		RequestTimeout:       getDurationEnv("COLLAB_REQUEST_TIMEOUT", 5*time.Second),
	}, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < 32 {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64Env(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
