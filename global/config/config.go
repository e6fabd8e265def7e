package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig carries everything the gateway process needs at startup.
// Values come from the environment; defaults suit local development.
type AppConfig struct {
	NodeId string // gateway node id, stamped on presence keys
	Addr   string // http listen address

	JwtSecret []byte
	JwtAlg    string
	JwtTTL    time.Duration

	RedisAddr     string // empty disables the presence mirror
	RedisPassword string
	RedisDB       int

	SendQueueSize int           // per-connection outbound queue
	PingInterval  time.Duration // ws control ping period
	WriteWait     time.Duration // per-write deadline
	PresenceTTL   time.Duration // presence key lifetime, renewed on ping
}

func Load() AppConfig {
	return AppConfig{
		NodeId:        getEnv("GATEWAY_NODE_ID", "gateway_1"),
		Addr:          getEnv("GATEWAY_ADDR", ":8080"),
		JwtSecret:     []byte(getEnv("JWT_SECRET", "dev-secret-do-not-ship")),
		JwtAlg:        getEnv("JWT_ALG", "HS256"),
		JwtTTL:        getEnvDuration("JWT_TTL", 2*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SendQueueSize: getEnvInt("SEND_QUEUE_SIZE", 256),
		PingInterval:  getEnvDuration("PING_INTERVAL", 25*time.Second),
		WriteWait:     getEnvDuration("WRITE_WAIT", 10*time.Second),
		PresenceTTL:   getEnvDuration("PRESENCE_TTL", 60*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
