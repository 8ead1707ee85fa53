package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates every setting of the relay.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Presence PresenceConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// AuthConfig describes token signing and cookie policy.
type AuthConfig struct {
	Secret     string
	Production bool
}

// StoreConfig locates the user profile database.
type StoreConfig struct {
	Path string
}

// PresenceConfig tunes the event loop and socket transport.
type PresenceConfig struct {
	EvictOnClose bool
	QueueSize    int
	SendBuffer   int
	PingInterval time.Duration
}

// rawEnv holds environment values before normalization.
type rawEnv struct {
	Port         string        `env:"PORT" envDefault:"5000"`
	URL          string        `env:"URL" envDefault:"http://localhost:5173"`
	AccessSecret string        `env:"ACCESS_TOKEN_SECRET"`
	AppEnv       string        `env:"APP_ENV" envDefault:"development"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"safeping.db"`
	EvictOnClose bool          `env:"PRESENCE_EVICT_ON_CLOSE" envDefault:"false"`
	QueueSize    int           `env:"PRESENCE_QUEUE_SIZE" envDefault:"256"`
	SendBuffer   int           `env:"WS_SEND_BUFFER" envDefault:"32"`
	PingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"54s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	addr, err := listenAddr(raw.Port)
	if err != nil {
		return nil, err
	}

	secret := strings.TrimSpace(raw.AccessSecret)
	if secret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}

	path := strings.TrimSpace(raw.DatabasePath)
	if path == "" {
		return nil, fmt.Errorf("DATABASE_PATH must not be empty")
	}

	if raw.QueueSize < 1 {
		return nil, fmt.Errorf("invalid PRESENCE_QUEUE_SIZE value %d", raw.QueueSize)
	}
	if raw.SendBuffer < 1 {
		return nil, fmt.Errorf("invalid WS_SEND_BUFFER value %d", raw.SendBuffer)
	}
	if raw.PingInterval <= 0 {
		return nil, fmt.Errorf("invalid WS_PING_INTERVAL value %s", raw.PingInterval)
	}

	return &Config{
		Server: ServerConfig{
			Addr:           addr,
			AllowedOrigins: splitOrigins(raw.URL),
		},
		Auth: AuthConfig{
			Secret:     secret,
			Production: strings.EqualFold(strings.TrimSpace(raw.AppEnv), "production"),
		},
		Store: StoreConfig{Path: path},
		Presence: PresenceConfig{
			EvictOnClose: raw.EvictOnClose,
			QueueSize:    raw.QueueSize,
			SendBuffer:   raw.SendBuffer,
			PingInterval: raw.PingInterval,
		},
	}, nil
}

// listenAddr turns PORT into a listen address.
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// Allow ":5000" or "127.0.0.1:5000".
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return origins
}
